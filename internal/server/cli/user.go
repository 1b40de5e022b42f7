package cli

import (
	"bufio"
	"fmt"

	"github.com/axiscapital/vault/internal/server/models"
	"github.com/axiscapital/vault/internal/server/services"
	"github.com/spf13/cobra"
)

func newUserCommand(reader *bufio.Reader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer identities",
	}
	cmd.AddCommand(
		rawCommand("create", "Create an identity interactively", func(cmd *cobra.Command, args []string) error {
			return createUser(cmd, reader, args)
		}),
		newSetActiveCommand("deactivate", false),
		newSetActiveCommand("activate", true),
	)
	return cmd
}

func createUser(cmd *cobra.Command, reader *bufio.Reader, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	in := services.RegisterInput{}

	if in.Username, err = promptLine(reader, out, "Username"); err != nil {
		return err
	}
	if in.Email, err = promptLine(reader, out, "Email"); err != nil {
		return err
	}

	pw, err := promptPassword(stdinFd(), out, "Password")
	if err != nil {
		return err
	}
	defer wipe(pw)
	in.Password = string(pw)

	if in.APIKey, err = promptLine(reader, out, "Binance API key"); err != nil {
		return err
	}
	if in.APISecret, err = promptLine(reader, out, "Binance API secret"); err != nil {
		return err
	}

	risk, err := promptLine(reader, out, "Risk profile [balanced]")
	if err != nil {
		return err
	}
	if in.RiskProfile, err = models.ParseRiskProfile(risk); err != nil {
		return err
	}

	ctx := cmd.Context()
	app, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	identity, err := app.Register(ctx, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created user %s (id %d)\n", identity.Username, identity.ID)
	return nil
}

func newSetActiveCommand(use string, active bool) *cobra.Command {
	return rawCommand(use+" <username>", "Mark an identity as "+use+"d", func(cmd *cobra.Command, args []string) error {
		pos := positionals(args)
		if len(pos) != 1 {
			return fmt.Errorf("%s expects exactly one username, got %d", use, len(pos))
		}

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

		identity, err := app.SetActive(ctx, pos[0], active)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "user %s %sd\n", identity.Username, use)
		return nil
	})
}
