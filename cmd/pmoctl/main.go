// Command pmoctl is the operator CLI for a PMO Network deployment.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pmonetwork/pmo-network/internal/bootstrap"
	"github.com/pmonetwork/pmo-network/internal/config"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
)

type appKey struct{}

// app holds what the subcommands share.
type app struct {
	cfg   *config.Config
	db    *sql.DB
	repos bootstrap.Repositories
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pmoctl",
	Short: "Operate a PMO Network deployment",
	Long: `pmoctl inspects and maintains the PMO Network database.
It reads the same configuration as the server; DATABASE_URL must be set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromEnv(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
		if cfg.Database.URL == "" {
			return errors.New("DATABASE_URL is required")
		}
		db, err := bootstrap.OpenDatabase(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		a := &app{cfg: cfg, db: db, repos: bootstrap.PostgresRepositories(db)}
		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if a := appFrom(cmd); a != nil {
			return a.db.Close()
		}
		return nil
	},
}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the config file")
	rootCmd.AddCommand(statsCmd, usersCmd, tokensCmd, cleanupCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
