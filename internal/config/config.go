// Package config holds the process-level configuration that stays constant
// for the lifetime of a run: logging and the engine's default knobs. Per-scan
// parameters (targets, ports, technique) are a scan.ScanConfig built by the
// CLI layer, not something that lives here.
package config

// LogConfig controls the logger package's output. It is the only half of
// Config that a ConfigWatcher is allowed to hot-reload, since changing the
// engine's default batch size or timeout mid-scan would violate the
// fixed-concurrency invariant the pipeline relies on.
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json or text
	Output     string `mapstructure:"output"`      // stdout, stderr, or file
	FilePath   string `mapstructure:"file_path"`   // required when Output == "file"
	MaxSize    int    `mapstructure:"max_size"`    // megabytes per rotated file
	MaxBackups int    `mapstructure:"max_backups"` // rotated files retained
	MaxAge     int    `mapstructure:"max_age"`     // days a rotated file is kept
	Compress   bool   `mapstructure:"compress"`    // gzip rotated files
	Caller     bool   `mapstructure:"caller"`      // report caller file:line
}

// EngineConfig holds engine defaults loaded from the config file and
// environment. The scan command does not read them: its flags carry their
// own defaults, and it always permits the privilege fallback.
type EngineConfig struct {
	TimeoutMS              int    `mapstructure:"timeout_ms"`
	MaxRetries             int    `mapstructure:"max_retries"`
	BatchSize              int    `mapstructure:"batch_size"`
	ScanOrder              string `mapstructure:"scan_order"` // serial or random
	Technique              string `mapstructure:"technique"`  // connect or syn
	AllowPrivilegeFallback bool   `mapstructure:"allow_privilege_fallback"`
}

// Config is the top-level, file/env-bound configuration object.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Engine EngineConfig `mapstructure:"engine"`
}

// Default returns the configuration used when no file or env var overrides
// a field.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
			Caller:     false,
		},
		Engine: EngineConfig{
			TimeoutMS:              1000,
			MaxRetries:             2,
			BatchSize:              0, // 0 defers to the FD budgeter
			ScanOrder:              "serial",
			Technique:              "connect",
			AllowPrivilegeFallback: true,
		},
	}
}
