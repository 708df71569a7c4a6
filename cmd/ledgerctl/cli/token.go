package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/rbac"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}
	var (
		userID int64
		name   string
		role   string
		caps   []string
		ttl    time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.config()
			if err != nil {
				return err
			}
			principal := shared.Principal{UserID: userID, Name: name, Role: shared.Role(role)}
			if len(caps) > 0 {
				if principal.Role != shared.RoleCustom {
					return fmt.Errorf("capabilities require role %s", shared.RoleCustom)
				}
				principal.Capabilities = make(map[string]bool, len(caps))
				for _, c := range caps {
					principal.Capabilities[c] = true
				}
			}
			if ttl <= 0 {
				ttl = cfg.JWTTTL
			}
			token, err := rbac.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, ttl).Issue(principal)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(opts.out, token)
			return err
		},
	}
	issue.Flags().Int64Var(&userID, "user", 0, "user id (sub claim)")
	issue.Flags().StringVar(&name, "name", "", "display name")
	issue.Flags().StringVar(&role, "role", string(shared.RoleSeller), "ADMIN, MANAGER, SELLER, ACCOUNTANT, TECHNICIAN or CUSTOM")
	issue.Flags().StringSliceVar(&caps, "cap", nil, "capability granted to a CUSTOM principal, repeatable")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to JWT_TTL")
	_ = issue.MarkFlagRequired("user")
	cmd.AddCommand(issue)
	return cmd
}
