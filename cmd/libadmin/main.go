// Command libadmin runs maintenance tasks against the library database.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"

	"pkujx.cn/library/internal/bootstrap"
	"pkujx.cn/library/internal/config"
	sessionRepo "pkujx.cn/library/internal/modules/session/repository"
	sessionService "pkujx.cn/library/internal/modules/session/service"
	"pkujx.cn/library/pkg/database"
	"pkujx.cn/library/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "libadmin",
		Short:         "Maintenance commands for the library backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update database tables",
			RunE: withDB(func(_ *cobra.Command, _ *config.Config, db *gorm.DB) error {
				return bootstrap.Migrate(db)
			}),
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert default settings and blog topics that are missing",
			RunE: withDB(func(_ *cobra.Command, _ *config.Config, db *gorm.DB) error {
				if err := bootstrap.SeedSettings(db); err != nil {
					return err
				}
				return bootstrap.SeedTopics(db)
			}),
		},
		&cobra.Command{
			Use:   "purge-sessions",
			Short: "Delete expired sessions",
			RunE: withDB(func(cmd *cobra.Command, cfg *config.Config, db *gorm.DB) error {
				sessions := sessionService.NewSessionService(sessionRepo.NewSessionRepository(db), cfg.Auth)
				n, err := sessions.PurgeExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired sessions\n", n)
				return nil
			}),
		},
		newCreateAdminCmd(),
	)
	return root
}

func newCreateAdminCmd() *cobra.Command {
	var email, username string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, prompting for its password",
		RunE: withDB(func(cmd *cobra.Command, _ *config.Config, db *gorm.DB) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			admin, err := bootstrap.CreateAdmin(db, strings.ToLower(strings.TrimSpace(email)), username, password)
			if errors.Is(err, bootstrap.ErrAdminExists) {
				return fmt.Errorf("%s: %w", email, err)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", admin.Email, admin.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&username, "username", "admin", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), "Repeat password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimSpace(string(first))
	if password != strings.TrimSpace(string(second)) {
		return "", errors.New("passwords do not match")
	}
	if len(password) < 6 {
		return "", errors.New("password must be at least 6 characters")
	}
	return password, nil
}

type dbRunner func(cmd *cobra.Command, cfg *config.Config, db *gorm.DB) error

// withDB loads configuration and opens the database before running fn.
func withDB(fn dbRunner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger.Setup(cfg.AppEnv)

		db, err := database.Open(cfg.DatabaseOptions())
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		return fn(cmd, cfg, db)
	}
}
