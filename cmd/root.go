// Package cmd implements the command-line interface for the citegap
// service.
package cmd

import (
	"context"
	"fmt"

	"github.com/citegap/citegap/internal/bootstrap"
	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/database"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "citegap",
	Short: "AI citation monitoring and content gap pipeline",
	Long: `Citegap probes AI answer engines for how a product is cited against
its competitors, turns the misses into prioritized content gaps, and
generates, publishes, and redistributes articles to close them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newMigrateCmd(),
	)
}

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and in-process scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Start()
		},
	}
}

// newRunCmd creates the run command.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute a single pipeline run and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.RunOnce()
		},
	}
}

// newMigrateCmd creates the migrate command.
func newMigrateCmd() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, configErr := bootstrap.LoadConfig()
			if configErr != nil {
				return fmt.Errorf("config: %w", configErr)
			}

			return runMigrations(cfg, down)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back all migrations")

	return cmd
}

func runMigrations(cfg *config.Config, down bool) error {
	dbCfg := &database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}

	if down {
		if downErr := database.MigrateDown(dbCfg, database.DefaultMigrationsPath); downErr != nil {
			return fmt.Errorf("migrate down: %w", downErr)
		}
		fmt.Println("Migrations rolled back")
		return nil
	}

	if upErr := database.MigrateUp(dbCfg, database.DefaultMigrationsPath); upErr != nil {
		return fmt.Errorf("migrate up: %w", upErr)
	}
	fmt.Println("Migrations applied")
	return nil
}
