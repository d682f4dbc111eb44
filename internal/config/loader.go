package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file, applies defaults and
// validates the result. A directory is accepted if it holds config.yaml.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Read is Load without validation, for tools that report every problem
// rather than stopping at the first.
func Read(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}

	return applyConfigDefaults(cfg), nil
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}

	if cfg.Queue.Name == "" {
		cfg.Queue.Name = defaults.Queue.Name
	}
	if cfg.Queue.Mode == "" {
		cfg.Queue.Mode = defaults.Queue.Mode
	}

	if cfg.Demo.Prompt == "" {
		cfg.Demo.Prompt = defaults.Demo.Prompt
	}
	if cfg.Demo.EchoDelay == 0 {
		cfg.Demo.EchoDelay = defaults.Demo.EchoDelay
	}
	if cfg.Demo.ExitWords == nil {
		cfg.Demo.ExitWords = defaults.Demo.ExitWords
	}
	if cfg.Demo.EnableWords == nil {
		cfg.Demo.EnableWords = defaults.Demo.EnableWords
	}
	if cfg.Demo.DisableWords == nil {
		cfg.Demo.DisableWords = defaults.Demo.DisableWords
	}

	if cfg.Journal.Path == "" {
		cfg.Journal.Path = defaults.Journal.Path
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
	if cfg.API.FeedSize == 0 {
		cfg.API.FeedSize = defaults.API.FeedSize
	}

	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// Validate checks a configuration built in code rather than loaded from disk.
func Validate(cfg *Config) error {
	return validate(cfg)
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.Queue.Mode != "threaded" && cfg.Queue.Mode != "cooperative" {
		return fmt.Errorf("queue.mode must be threaded or cooperative (got %q)", cfg.Queue.Mode)
	}

	if cfg.Demo.EchoDelay < 0 {
		return fmt.Errorf("demo.echo_delay must not be negative")
	}
	if len(cfg.Demo.ExitWords) == 0 {
		return fmt.Errorf("demo.exit_words must not be empty")
	}
	seen := make(map[string]string)
	for _, group := range []struct {
		key   string
		words []string
	}{
		{"demo.exit_words", cfg.Demo.ExitWords},
		{"demo.enable_words", cfg.Demo.EnableWords},
		{"demo.disable_words", cfg.Demo.DisableWords},
	} {
		for _, w := range group.words {
			if prev, ok := seen[w]; ok && prev != group.key {
				return fmt.Errorf("%s: %q is already used by %s", group.key, w, prev)
			}
			seen[w] = group.key
		}
	}

	if cfg.Journal.Enabled {
		if cfg.Journal.Path == "" {
			return fmt.Errorf("journal.path is required when the journal is enabled")
		}
		if envVarPattern.MatchString(cfg.Journal.Path) {
			matches := envVarPattern.FindStringSubmatch(cfg.Journal.Path)
			return fmt.Errorf("journal.path: environment variable ${%s} is not set", matches[1])
		}
	}

	if cfg.API.Enabled && cfg.API.Listen == "" {
		return fmt.Errorf("api.listen is required when the api is enabled")
	}
	if cfg.API.FeedSize < 0 {
		return fmt.Errorf("api.feed_size must not be negative")
	}

	return nil
}
