package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmynk/pledgeboard/internal/seed"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the Connect API, the static front end, /healthz and /metrics.

Example:
  pledgeboard serve --config ./pledgeboard.yaml
  JWT_SECRET=change-me-please-123 SEED_DEMO=true pledgeboard serve --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address, overrides http_addr")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.HTTPAddr = opts.Addr
	}

	app, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer app.Store.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDemo {
		if _, err := seed.Demo(ctx, app.Store, app.Authenticator, app.Engine); err != nil {
			return err
		}
	}

	slog.Info("Starting pledgeboard", "address", cfg.HTTPAddr, "admins", len(cfg.Admins))
	return app.Run(ctx)
}
