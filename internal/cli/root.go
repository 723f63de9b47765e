// Package cli holds the pledgeboard command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/pledgeboard/internal/config"
	"github.com/mmynk/pledgeboard/internal/server"
	"github.com/mmynk/pledgeboard/internal/storage/sqlite"
	"github.com/mmynk/pledgeboard/pkg/logging"
)

// configEnv names the environment variable read when --config is not given.
const configEnv = "PLEDGEBOARD_CONFIG"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pledgeboard",
		Short: "Pledgeboard - public commitments settled into a ledger",
		Long: `Pledgeboard runs the commitment settlement server: threads funded by
pledges, reverse requests won by the lowest ask, and the ledger of debts
both produce.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", os.Getenv(configEnv),
		"path to a YAML config file (env "+configEnv+")")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// loadConfig reads and validates the configuration and sets up logging.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openApp opens the database and wires the application around it. The
// caller closes app.Store.
func openApp(cfg config.Config) (*server.App, error) {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("Storage initialized", "database", cfg.DBPath)
	return server.NewApp(cfg, store), nil
}
