package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	redisRepo "github.com/iho/goposition/internal/adapter/repository/redis"
	"github.com/iho/goposition/internal/infrastructure/config"
	"github.com/iho/goposition/internal/infrastructure/logger"
	"github.com/iho/goposition/internal/infrastructure/postgres"
	"github.com/iho/goposition/internal/infrastructure/redis"
)

type migrator interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
}

type cacheFlusher interface {
	Invalidate(ctx context.Context) error
}

// deps are the collaborators the commands are built from.
type deps struct {
	loadConfig  func() (*config.Config, error)
	newMigrator func(cfg *config.Config, log zerolog.Logger) migrator
	openCache   func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (cacheFlusher, func(), error)
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.Load,
		newMigrator: func(cfg *config.Config, log zerolog.Logger) migrator {
			return postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log)
		},
		openCache: func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (cacheFlusher, func(), error) {
			client, err := redis.NewClient(ctx, cfg.RedisURL)
			if err != nil {
				return nil, nil, err
			}
			repo := redisRepo.NewCachedReferenceRepository(nil, redisRepo.NewCache(client, ""), cfg.ReferenceCacheTTL, log)
			return repo, func() { _ = client.Close() }, nil
		},
	}
}

func main() {
	if err := newRootCmd(defaultDeps(), os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(d deps, out io.Writer) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "positionctl",
		Short:         "Operate the position handler",
		Long:          `Administrative commands for the batch position handler: schema migrations, configuration checks and cache maintenance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	newLogger := func() zerolog.Logger {
		return logger.NewWithWriter(logger.Config{Level: logLevel, Format: "console"}, out)
	}

	rootCmd.AddCommand(
		newMigrateCmd(d, out, newLogger),
		newConfigCmd(d, out),
		newCacheCmd(d, out, newLogger),
	)

	return rootCmd
}

func newMigrateCmd(d deps, out io.Writer, newLogger func() zerolog.Logger) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}

	withMigrator := func(fn func(m migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := d.loadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return fn(d.newMigrator(cfg, newLogger()))
		}
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(func(m migrator) error { return m.Up() }),
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(func(m migrator) error { return m.Down(steps) }),
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(m migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Fprintf(out, "version: %d\ndirty: %v\n", version, dirty)
			return nil
		}),
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

func newConfigCmd(d deps, out io.Writer) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the environment the handler would start with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := d.loadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}

			fmt.Fprintf(out, "broker: %s\n", cfg.Broker)
			fmt.Fprintf(out, "position topic: %s\n", cfg.PositionTopic)
			fmt.Fprintf(out, "batch size: %d..%d (linger %s)\n", cfg.BatchMinSize, cfg.BatchMaxSize, cfg.BatchLinger)
			fmt.Fprintf(out, "checkpoint order: %s\n", cfg.CheckpointOrder)
			fmt.Fprintln(out, "configuration OK")
			return nil
		},
	}

	configCmd.AddCommand(checkCmd)
	return configCmd
}

func newCacheCmd(d deps, out io.Writer, newLogger func() zerolog.Logger) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Reference data cache maintenance",
	}

	var timeout time.Duration
	flushCmd := &cobra.Command{
		Use:   "flush",
		Short: "Drop the cached participant directory and settlement models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := d.loadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			flusher, closeFn, err := d.openCache(ctx, cfg, newLogger())
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			defer closeFn()

			if err := flusher.Invalidate(ctx); err != nil {
				return fmt.Errorf("flush reference cache: %w", err)
			}

			fmt.Fprintln(out, "reference cache flushed")
			return nil
		},
	}
	flushCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Redis timeout")

	cacheCmd.AddCommand(flushCmd)
	return cacheCmd
}
