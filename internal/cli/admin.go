package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexora/backend/internal/bootstrap"
	"github.com/nexora/backend/internal/infrastructure/database"
	"github.com/nexora/backend/pkg/auth"
)

func newTokenCommand(load configLoader) *cobra.Command {
	var (
		user   auth.UserSession
		tenant string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the REST API",
		Long: `Signs a token with auth.jwt_secret (NEXORA_AUTH__JWT_SECRET or --jwt-secret).
Intended for development and service accounts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not set")
			}

			user.TenantID = tenant
			if user.TenantID == "" {
				user.TenantID = cfg.Auth.DefaultTenant
			}
			switch user.Role {
			case auth.RoleAdmin, auth.RoleEditor, auth.RoleViewer:
			default:
				return fmt.Errorf("unknown role %q (admin, editor or viewer)", user.Role)
			}

			token, err := auth.GenerateToken(user, []byte(cfg.Auth.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user.ID, "user", "dev", "user id")
	cmd.Flags().StringVar(&user.Name, "name", "Developer", "display name")
	cmd.Flags().StringVar(&user.Email, "email", "", "email")
	cmd.Flags().StringVar(&user.Role, "role", auth.RoleEditor, "role: admin, editor or viewer")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (default: auth.default_tenant)")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	cmd.Flags().String("jwt-secret", "", "signing secret")
	return cmd
}

func newMigrateCommand(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := bootstrap.InitializeSchema(db); err != nil {
				return err
			}
			version, err := db.MigrationVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s schema at version %d\n", db.Driver(), version)
			return nil
		},
	}
	cmd.Flags().String("db-driver", "", "database driver: mysql or sqlite")
	cmd.Flags().String("db-path", "", "sqlite database file")
	cmd.Flags().String("db-host", "", "mysql host")
	cmd.Flags().Int("db-port", 0, "mysql port")
	cmd.Flags().String("db-user", "", "mysql user")
	cmd.Flags().String("db-password", "", "mysql password")
	cmd.Flags().String("db-name", "", "mysql database")
	return cmd
}
