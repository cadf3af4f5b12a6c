package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

func NewCreateUserCommand(rootOpts *RootOptions) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "createuser",
		Short: "Create a staff account that can log in and check out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pg, err := db.New(ctx, rootOpts.cfg.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()

			u, err := auth.NewService(auth.NewRepository(pg.Pool)).CreateUser(ctx, username, password)
			if err != nil {
				return fmt.Errorf("failed to create user %q: %w", username, err)
			}

			log.Info().Stringer("user_id", u.ID).Str("username", u.Username).Msg("User created")
			fmt.Fprintln(cmd.OutOrStdout(), u.ID.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "plain-text password, hashed before storage")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
