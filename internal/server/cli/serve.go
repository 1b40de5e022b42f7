package cli

import (
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return rawCommand("serve", "Apply migrations and serve the HTTP API", func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		app, err := newApp(ctx, cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Migrate(ctx); err != nil {
			return err
		}
		return app.Run(ctx)
	})
}
