// Command genesis generates, sanitizes and checks website code from the
// command line using the same pipeline as the API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smartgenesis/api/internal/backend"
	"github.com/smartgenesis/api/internal/config"
	"github.com/smartgenesis/api/internal/prompt"
)

type rootOptions struct {
	configPath string
	verbose    bool
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "genesis",
		Short:         "Generate single-component React websites",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default: $CONFIG_FILE)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Backend call timeout (default from config)")

	root.AddCommand(newGenerateCmd(opts))
	root.AddCommand(newSanitizeCmd())
	root.AddCommand(newCheckCmd(opts))
	return root
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.timeout > 0 {
		cfg.Backend.Timeout = o.timeout
	}
	return cfg, nil
}

// backendConfig carries the loaded settings over to the provider layer
func backendConfig(cfg *config.Config) backend.Config {
	return backend.Config{
		Provider:          cfg.Backend.Provider,
		APIKey:            cfg.Backend.APIKey,
		BaseURL:           cfg.Backend.BaseURL,
		Model:             cfg.Backend.Model,
		Temperature:       cfg.Backend.Temperature,
		MaxTokens:         cfg.Backend.MaxTokens,
		SystemInstruction: prompt.SystemInstruction,
		Timeout:           cfg.Backend.Timeout,
		MaxConcurrent:     cfg.Backend.MaxConcurrent,
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
