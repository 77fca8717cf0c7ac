package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PORTSWEEP"

// ConfigLoader binds a viper instance to an optional config file, a
// .env file, and PORTSWEEP_-prefixed environment variables, in that order
// of increasing precedence.
type ConfigLoader struct {
	v *viper.Viper
}

// NewConfigLoader builds a loader with defaults already registered.
func NewConfigLoader() *ConfigLoader {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &ConfigLoader{v: v}
}

// Load reads .env (if present), then configPath (if non-empty and present),
// then lets environment variables win, and unmarshals the result.
func (l *ConfigLoader) Load(configPath string) (*Config, error) {
	_ = godotenv.Load() // a missing .env file is not an error

	if configPath != "" {
		if err := l.loadConfigFile(configPath); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func (l *ConfigLoader) loadConfigFile(configPath string) error {
	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", configPath, err)
	}

	l.v.SetConfigFile(configPath)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", configPath, err)
	}
	return nil
}

// Viper exposes the underlying instance for a ConfigWatcher to attach
// fsnotify hooks to.
func (l *ConfigLoader) Viper() *viper.Viper {
	return l.v
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("log.caller", d.Log.Caller)

	v.SetDefault("engine.timeout_ms", d.Engine.TimeoutMS)
	v.SetDefault("engine.max_retries", d.Engine.MaxRetries)
	v.SetDefault("engine.batch_size", d.Engine.BatchSize)
	v.SetDefault("engine.scan_order", d.Engine.ScanOrder)
	v.SetDefault("engine.technique", d.Engine.Technique)
	v.SetDefault("engine.allow_privilege_fallback", d.Engine.AllowPrivilegeFallback)
}
