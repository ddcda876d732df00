package middleware

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "tsnsched.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"

[scheduler]
scenario = "scenarios/line.toml"
solve = true
solver_path = "/usr/bin/z3"

[etcd]
enabled = true
endpoints = ["10.0.0.1:2379", "10.0.0.2:2379"]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "./logs", cfg.Log.Dir)
	assert.Equal(t, "scenarios/line.toml", cfg.Scheduler.Scenario)
	assert.True(t, cfg.Scheduler.Solve)
	assert.Equal(t, "z3", cfg.Scheduler.Solver)
	assert.Equal(t, 60, cfg.Scheduler.SolverTimeoutSec)
	assert.Equal(t, 4, cfg.Report.Workers)
	assert.Equal(t, []string{"10.0.0.1:2379", "10.0.0.2:2379"}, cfg.Etcd.Endpoints)
	assert.Equal(t, "/tsnsched/schedules", cfg.Etcd.Prefix)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "[scheduler\n"))
	assert.ErrorContains(t, err, "error decoding TOML file")

	_, err = LoadConfig(writeConfig(t, "[report]\nworkers = 2\n"))
	assert.ErrorIs(t, err, ErrNoScenario)
}

func TestConfigPath(t *testing.T) {
	t.Setenv(ConfigEnv, "")
	assert.Equal(t, DefaultConfigPath, ConfigPath())
	t.Setenv(ConfigEnv, "/etc/tsnsched.toml")
	assert.Equal(t, "/etc/tsnsched.toml", ConfigPath())
}
