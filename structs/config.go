package structs

// Config holds the overall configuration structure mapping to tsnsched.toml
type Config struct {
	Log       LogConfig       `toml:"log"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Report    ReportConfig    `toml:"report"`
	Etcd      EtcdConfig      `toml:"etcd"`
}

// LogConfig controls the rotating log file
type LogConfig struct {
	Dir        string `toml:"dir"`
	File       string `toml:"file"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type SchedulerConfig struct {
	Scenario         string `toml:"scenario"`
	OutputDir        string `toml:"output_dir"`
	PacketUpperBound int    `toml:"packet_upper_bound,omitempty"` // scenario value wins when set
	Solve            bool   `toml:"solve"`
	Solver           string `toml:"solver"`
	SolverPath       string `toml:"solver_path"`
	SolverTimeoutSec int    `toml:"solver_timeout_seconds"`
}

type ReportConfig struct {
	Workers int `toml:"workers"`
}

type EtcdConfig struct {
	Enabled        bool     `toml:"enabled"`
	Endpoints      []string `toml:"endpoints"`
	DialTimeoutSec int      `toml:"dial_timeout_seconds"`
	Prefix         string   `toml:"prefix"`
}

// SetDefaults fills every zero value that has a sensible default.
func (c *Config) SetDefaults() {
	if c.Log.Dir == "" {
		c.Log.Dir = "./logs"
	}
	if c.Log.File == "" {
		c.Log.File = "tsnsched.log"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 7
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 30
	}
	if c.Scheduler.OutputDir == "" {
		c.Scheduler.OutputDir = "./output"
	}
	if c.Scheduler.Solver == "" {
		c.Scheduler.Solver = "z3"
	}
	if c.Scheduler.SolverTimeoutSec <= 0 {
		c.Scheduler.SolverTimeoutSec = 60
	}
	if c.Report.Workers <= 0 {
		c.Report.Workers = 4
	}
	if len(c.Etcd.Endpoints) == 0 {
		c.Etcd.Endpoints = []string{"localhost:2379"}
	}
	if c.Etcd.DialTimeoutSec <= 0 {
		c.Etcd.DialTimeoutSec = 5
	}
	if c.Etcd.Prefix == "" {
		c.Etcd.Prefix = "/tsnsched/schedules"
	}
}
