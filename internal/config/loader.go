package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads a YAML config file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Static wraps an already-built config; Reload and Watch are no-ops on it.
func Static(cfg *Config) *Loader {
	return &Loader{current: cfg}
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	if l.path == "" {
		return func() {}, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						slog.Warn("config reload failed, keeping previous config", "path", l.path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload forces an immediate re-read of the config file.
func (l *Loader) Reload() (*Config, error) {
	if l.path == "" {
		return l.Config(), nil
	}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", l.path, err)
	}
	return cfg, nil
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Default is the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Version: "v1"}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = 2
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = 16
	}
	if cfg.Engine.TimeoutMs == 0 {
		cfg.Engine.TimeoutMs = 60000
	}
	if cfg.Engine.JobHistory == 0 {
		cfg.Engine.JobHistory = 100
	}

	g := &cfg.Generator
	if g.Timezone == "" {
		g.Timezone = "UTC"
	}
	if g.MaxAttempts == 0 {
		g.MaxAttempts = 100
	}
	c := &g.Commute
	if c.EntranceDoor == "" {
		c.EntranceDoor = "Main Entrance"
	}
	if len(c.Departments) == 0 {
		c.Departments = []string{"Engineering", "Operations", "Finance", "Human Resources", "Sales", "IT"}
	}
	if c.MaxEmployees == 0 {
		c.MaxEmployees = 20
	}
	if c.Participation == 0 {
		c.Participation = 0.9
	}
	if c.Arrival == "" {
		c.Arrival = "08:00"
	}
	if c.ArrivalJitterMinutes == 0 {
		c.ArrivalJitterMinutes = 30
	}
	if c.Departure == "" {
		c.Departure = "17:00"
	}
	if c.DepartureJitterMinutes == 0 {
		c.DepartureJitterMinutes = 60
	}
	if g.Fault.DoorMatch == "" {
		g.Fault.DoorMatch = "Server Room"
	}
	if g.Fault.IntervalDays == 0 {
		g.Fault.IntervalDays = 7
	}

	b := &cfg.Budget
	if b.CapacityBytes == 0 {
		b.CapacityBytes = 100 << 20
	}
	if b.MaxUsageRatio == 0 {
		b.MaxUsageRatio = 0.8
	}
	if b.MaxCount == 0 {
		b.MaxCount = 200_000
	}
	if b.MinCount == 0 {
		b.MinCount = 1_000
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "pacs-events"
	}
}
