package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/pledgeboard/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users and a demo thread into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			app, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer app.Store.Close()

			seeded, err := seed.Demo(cmd.Context(), app.Store, app.Authenticator, app.Engine)
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "seeded demo users lucas, ana and rafa (password %q)\n", seed.DemoPassword)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "database already has threads, nothing seeded")
			}
			return nil
		},
	}
}
