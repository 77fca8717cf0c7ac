package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LogConfigCallback is invoked with the freshly reloaded LogConfig whenever
// the watched file changes.
type LogConfigCallback func(LogConfig)

// ConfigWatcher hot-reloads only the LogConfig half of Config. EngineConfig
// is deliberately out of scope: its values seed a scan.ScanConfig once, at
// scan start, and changing batch size or retry count mid-scan would
// contradict the fixed-concurrency-width invariant the pipeline assumes.
type ConfigWatcher struct {
	v *viper.Viper

	mu        sync.Mutex
	callbacks []LogConfigCallback
}

// NewConfigWatcher wraps the viper instance a ConfigLoader already read a
// file into. Calling Watch before any file has been loaded is a no-op until
// one is.
func NewConfigWatcher(l *ConfigLoader) *ConfigWatcher {
	return &ConfigWatcher{v: l.Viper()}
}

// OnChange registers a callback invoked after each reload with the new
// LogConfig.
func (w *ConfigWatcher) OnChange(cb LogConfigCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Watch starts fsnotify-based watching of the currently loaded config file.
// It is a no-op if no config file was loaded (viper.ConfigFileUsed() is
// empty), which is the common case when configuration comes entirely from
// flags and environment variables.
func (w *ConfigWatcher) Watch() error {
	if w.v.ConfigFileUsed() == "" {
		return nil
	}

	w.v.OnConfigChange(func(e fsnotify.Event) {
		var log LogConfig
		if err := w.v.UnmarshalKey("log", &log); err != nil {
			return
		}
		w.mu.Lock()
		callbacks := append([]LogConfigCallback(nil), w.callbacks...)
		w.mu.Unlock()
		for _, cb := range callbacks {
			cb(log)
		}
	})
	w.v.WatchConfig()
	return nil
}
