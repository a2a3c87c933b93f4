package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/observability"
	"github.com/equiply/workflow-service/internal/persistence"
	"github.com/equiply/workflow-service/internal/repository"
	"github.com/equiply/workflow-service/internal/service"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

// SeedFile is the YAML fixture accepted by seed.
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

// SeedUser is one account in a fixture.
type SeedUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// SeedResult counts what a seed run did.
type SeedResult struct {
	Created int
	Skipped int
}

// SeedCmd returns the seed command
func SeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create accounts from a YAML fixture",
		Long: `Create users listed in a YAML fixture. Accounts whose email already
exists are skipped, so the command can be re-run safely.

  users:
    - name: Morgan
      email: morgan@example.com
      password: change-me-now
      role: MANAGER`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open fixture: %w", err)
			}
			defer f.Close()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN is required")
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()

			store := repository.NewPostgresStore(pg.PoolHandle())
			authService := service.NewAuthService(cfg.Auth, store.Repositories().Users, logger)
			result, err := SeedUsers(ctx, f, authService, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d created, %d skipped\n", result.Created, result.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "users.yaml", "YAML fixture to load")

	return cmd
}

// SeedUsers decodes a fixture from r and creates each account through
// accounts. Existing emails are skipped; any other failure stops the run.
func SeedUsers(ctx context.Context, r io.Reader, accounts *service.AuthService, out io.Writer) (SeedResult, error) {
	var fixture SeedFile
	if err := yaml.NewDecoder(r).Decode(&fixture); err != nil {
		return SeedResult{}, fmt.Errorf("decode fixture: %w", err)
	}

	var result SeedResult
	for i, u := range fixture.Users {
		role, err := domain.ParseRole(u.Role)
		if err != nil {
			return result, fmt.Errorf("user %d (%s): %w", i, u.Email, err)
		}
		_, err = accounts.CreateUser(ctx, service.NewUserInput{
			Name:     u.Name,
			Email:    u.Email,
			Password: u.Password,
			Role:     role,
		})
		switch {
		case err == nil:
			result.Created++
			fmt.Fprintf(out, "%s %s (%s)\n", color.New(color.FgGreen).Sprint("CREATE"), u.Email, role)
		case apperrors.HasCode(err, apperrors.CodeConflict):
			result.Skipped++
			fmt.Fprintf(out, "%s %s\n", color.New(color.FgBlue).Sprint("EXISTS"), u.Email)
		default:
			return result, fmt.Errorf("user %d (%s): %w", i, u.Email, err)
		}
	}
	return result, nil
}
