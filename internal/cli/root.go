package cli

import (
	"github.com/spf13/cobra"

	"github.com/mattjoyce/obsq/internal/config"
	"github.com/mattjoyce/obsq/internal/log"
)

// configPath is the global --config flag value.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "obsq",
	Short: "Observable in-process queue demo",
	Long: "obsq pushes lines into an observable queue and fans each one out to " +
		"every registered consumer, either on a worker goroutine or when driven.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml or a directory holding it (defaults apply when empty)")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads --config, or validated defaults when it is unset, and
// sets up the global logger from the service section.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath == "" {
		cfg = config.Defaults()
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	} else {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	return cfg, nil
}
