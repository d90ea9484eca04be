package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/internal/storage"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// loadConfig loads the configuration and applies command line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = viper.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, utils.WrapError(utils.ErrCodeConfiguration, "Invalid configuration", err)
	}
	return cfg, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "dao-reconciler",
	Short:         "DAO blockchain/backend state reconciler",
	Long:          `Compares the voting platform's backend records with on-chain program state and repairs divergent rows.`,
	Version:       AppVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// serveCmd runs the scheduler and admin API until interrupted
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled reconciliation and the admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		app, err := NewApplication(cfg)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

		if err := app.Start(); err != nil {
			app.Stop()
			return fmt.Errorf("failed to start application: %w", err)
		}

		<-signalChan
		fmt.Println("\nReceived shutdown signal, stopping application...")
		app.Stop()
		return nil
	},
}

// runCmd performs a single forced pass
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		app, err := NewApplication(cfg)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		defer app.Stop()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if cfg.Reconciliation.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Reconciliation.RunTimeout)
			defer cancel()
		}

		result, err := app.reconciler.ForceReconciliation(ctx)
		if err != nil {
			return fmt.Errorf("reconciliation failed: %w", err)
		}

		fmt.Printf("✓ Reconciliation completed in %s\n", result.Duration)
		fmt.Printf("Conflicts: %d\n", result.Conflicts)
		fmt.Printf("Data repairs: %d\n", result.DataRepairs)
		if result.Stale > 0 {
			fmt.Printf("Stale: %d\n", result.Stale)
		}
		return nil
	},
}

// summaryCmd prints the current conflicts without repairing them
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a conflict summary without repairing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		app, err := NewApplication(cfg)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		defer app.Stop()

		summary, err := app.reconciler.GetConflictSummary(cmd.Context())
		if err != nil {
			return fmt.Errorf("conflict detection failed: %w", err)
		}
		if details, _ := cmd.Flags().GetBool("details"); !details {
			summary.Conflicts = nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// migrateCmd applies database migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.File); err != nil {
			return err
		}

		store, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		if err := store.Connect(); err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		defer store.Close()

		if err := store.Migrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Printf("✓ Migrations applied (%s)\n", cfg.Storage.Type)
		return nil
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("DAO Reconciler %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("RPC endpoint: %s\n", cfg.Blockchain.RPCURL)
		fmt.Printf("Program namespace: %s\n", cfg.Blockchain.Namespace)
		fmt.Printf("Database: %s\n", cfg.Storage.Type)
		if cfg.Reconciliation.Enabled {
			fmt.Printf("Schedule: %s\n", cfg.Reconciliation.Schedule)
		}
		if cfg.Redis.Addr != "" {
			fmt.Printf("Run lock: redis %s\n", cfg.Redis.Addr)
		}
		return nil
	},
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	summaryCmd.Flags().Bool("details", false, "include every conflict in the output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
