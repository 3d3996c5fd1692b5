package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	tubelinkscribe "github.com/Gelzieny/tube-link-scribe"
	"github.com/Gelzieny/tube-link-scribe/internal/config"
	"github.com/Gelzieny/tube-link-scribe/internal/database"
)

func newRootCommand() *cobra.Command {
	var overrides config.Overrides

	rootCmd := &cobra.Command{
		Use:           "tube-link-scribe",
		Short:         "YouTube transcription service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), overrides)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&overrides.EnvFile, "env-file", "", "Path to .env file (default .env)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&overrides.DatabaseURL, "database-url", "", "PostgreSQL connection URL")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and transcription workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), overrides)
		},
	}
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address")
		c.Flags().StringVar(&overrides.WorkerMode, "worker-mode", "", "Dispatch mode: local or remote")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newMigrateCommand(&overrides))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return rootCmd
}

func newMigrateCommand(overrides *config.Overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*overrides)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := openDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			db.Close()
			log.Info().Msg("schema up to date")
			return nil
		},
	}
}

// setup loads config and builds the root logger.
func setup(overrides config.Overrides) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	return cfg, log, nil
}

// openDatabase connects, applies the base schema on an empty database and
// runs pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*database.DB, error) {
	dbLog := log.With().Str("component", "database").Logger()
	db, err := database.Connect(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.InitSchema(ctx, tubelinkscribe.SchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
