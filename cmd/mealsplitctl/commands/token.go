package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/mealsplit/internal/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		name  string
		admin bool
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a development token signed with the configured secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			role := auth.RoleStudent
			if admin {
				role = auth.RoleAdmin
			}
			token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration).Generate(args[0], name, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	return cmd
}
