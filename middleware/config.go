package middleware

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/structs"
)

const (
	ConfigEnv         = "TSNSCHED_CONFIG"
	DefaultConfigPath = "tsnsched.toml"
)

var ErrNoScenario = errors.New("no scenario configured")

// ConfigPath returns the config file named by TSNSCHED_CONFIG, or the
// default path.
func ConfigPath() string {
	if path := os.Getenv(ConfigEnv); path != "" {
		return path
	}
	return DefaultConfigPath
}

// LoadConfig reads the TOML configuration file
func LoadConfig(path string) (*structs.Config, error) {
	var cfg structs.Config
	// Get absolute path for clearer error messages if file not found
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("error getting absolute path for %s: %w", path, err)
	}

	log.Infof("Attempting to load configuration from: %s", absPath)

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("error decoding TOML file %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warningf("config %s: unknown key %s", path, key)
	}
	cfg.SetDefaults()
	if cfg.Scheduler.Scenario == "" {
		return nil, fmt.Errorf("config %s: %w", path, ErrNoScenario)
	}
	return &cfg, nil
}
