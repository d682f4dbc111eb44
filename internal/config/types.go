package config

import "time"

// Config represents the complete obsq configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Queue   QueueConfig   `yaml:"queue"`
	Demo    DemoConfig    `yaml:"demo"`
	Journal JournalConfig `yaml:"journal,omitempty"`
	API     APIConfig     `yaml:"api,omitempty"`
}

// ServiceConfig defines process-wide settings.
type ServiceConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// QueueConfig defines how the line queue is built.
type QueueConfig struct {
	Name string `yaml:"name"`
	Mode string `yaml:"mode"` // "threaded" or "cooperative"
}

// DemoConfig drives the interactive line loop.
type DemoConfig struct {
	Prompt       string        `yaml:"prompt"`
	EchoDelay    time.Duration `yaml:"echo_delay"`
	ExitWords    []string      `yaml:"exit_words"`
	EnableWords  []string      `yaml:"enable_words"`
	DisableWords []string      `yaml:"disable_words"`
}

// JournalConfig defines the optional SQLite delivery journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// APIConfig defines the optional HTTP front end.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	// FeedSize is the number of activity events kept for /events.
	FeedSize int `yaml:"feed_size"`
}

// Defaults returns a configuration with default values.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Queue: QueueConfig{
			Name: "lines",
			Mode: "threaded",
		},
		Demo: DemoConfig{
			Prompt:       "Type anything and press Enter: ",
			EchoDelay:    300 * time.Millisecond,
			ExitWords:    []string{"exit", "quit", "x", "q"},
			EnableWords:  []string{"magic", "secret"},
			DisableWords: []string{"regular", "normal"},
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    "./data/journal.db",
		},
		API: APIConfig{
			Enabled:  false,
			Listen:   "127.0.0.1:8080",
			FeedSize: 256,
		},
	}
}
