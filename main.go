package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/songplay-warehouse/pkg/config"
	"github.com/ekaya-inc/songplay-warehouse/pkg/database"
	"github.com/ekaya-inc/songplay-warehouse/pkg/etl"
	"github.com/ekaya-inc/songplay-warehouse/pkg/logging"
	"github.com/ekaya-inc/songplay-warehouse/pkg/storage"
	"github.com/ekaya-inc/songplay-warehouse/pkg/warehouse"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cli.Command{
		Name:    "songplay-warehouse",
		Usage:   "Load songplay events from S3 into a Redshift star schema",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: config.DefaultPath, Usage: "settings file", Sources: cli.EnvVars("DWH_CONFIG")},
		},
		Commands: []*cli.Command{
			{
				Name:  "create-tables",
				Usage: "Drop and recreate the staging and warehouse tables",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDriver(ctx, c, false, func(ctx context.Context, d *etl.Driver) error {
						return d.CreateTables(ctx)
					})
				},
			},
			{
				Name:  "etl",
				Usage: "Load staging from S3 and populate the warehouse tables",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDriver(ctx, c, true, func(ctx context.Context, d *etl.Driver) error {
						if err := d.Run(ctx); err != nil {
							return err
						}
						_, err := d.Summarize(ctx)
						return err
					})
				},
			},
			{
				Name:  "run",
				Usage: "Recreate the tables, then load and populate them",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDriver(ctx, c, true, func(ctx context.Context, d *etl.Driver) error {
						if err := d.CreateTables(ctx); err != nil {
							return err
						}
						if err := d.Run(ctx); err != nil {
							return err
						}
						_, err := d.Summarize(ctx)
						return err
					})
				},
			},
			{
				Name:   "check-sources",
				Usage:  "Verify that the S3 sources exist without touching the warehouse",
				Action: checkSources,
			},
			{
				Name:   "show-config",
				Usage:  "Print the effective configuration (password omitted)",
				Action: showConfig,
			},
		},
	}

	if err := root.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup loads configuration and builds a logger tagged with a fresh run ID.
func setup(c *cli.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.String("config"), Version)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("command", c.Name),
		zap.String("dialect", cfg.Cluster.Dialect),
		zap.String("host", cfg.Cluster.Host),
		zap.String("database", cfg.Cluster.Database))

	return cfg, logger, nil
}

// withDriver opens the run's single session, hands a driver to fn and
// closes the session whatever fn returns. preflight enables the S3 source
// check when s3.preflight is set.
func withDriver(ctx context.Context, c *cli.Command, preflight bool, fn func(context.Context, *etl.Driver) error) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var checker etl.SourceChecker
	if preflight && cfg.S3.Preflight {
		client, err := storage.NewS3Client(cfg.S3.Region)
		if err != nil {
			return err
		}
		checker = storage.NewChecker(client, logger)
	}

	session, err := database.Open(ctx, cfg.Cluster.ConnectionString(), logger)
	if err != nil {
		logger.Error("Failed to connect", zap.String("error", logging.SanitizeError(err)))
		return err
	}
	defer func() {
		if err := session.Close(context.Background()); err != nil {
			logger.Warn("Failed to close session", zap.String("error", logging.SanitizeError(err)))
		}
	}()

	driver, err := etl.NewDriver(session, cfg, checker, logger)
	if err != nil {
		return err
	}

	if err := fn(ctx, driver); err != nil {
		logger.Error("Run failed", zap.String("command", c.Name), zap.String("error", logging.SanitizeError(err)))
		return err
	}

	logger.Info("Run complete", zap.String("command", c.Name))
	return nil
}

func checkSources(ctx context.Context, c *cli.Command) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := storage.NewS3Client(cfg.S3.Region)
	if err != nil {
		return err
	}

	checker := storage.NewChecker(client, logger)
	if err := checker.CheckSources(ctx, warehouse.CopySources(cfg.S3)); err != nil {
		return err
	}
	fmt.Println("all sources present")
	return nil
}

func showConfig(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load(c.String("config"), Version)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
