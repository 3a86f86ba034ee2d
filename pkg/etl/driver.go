package etl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/songplay-warehouse/pkg/config"
	"github.com/ekaya-inc/songplay-warehouse/pkg/logging"
	"github.com/ekaya-inc/songplay-warehouse/pkg/warehouse"
)

// Executor is the warehouse session a run is bound to. database.Session
// implements it.
type Executor interface {
	// ExecCommit runs one statement in its own transaction and commits it.
	ExecCommit(ctx context.Context, statement string) error

	// CountRows returns the number of rows in a table.
	CountRows(ctx context.Context, table string) (int64, error)
}

// SourceChecker verifies that the S3 data a COPY names exists before the
// load begins. storage.Checker implements it.
type SourceChecker interface {
	CheckSources(ctx context.Context, sources []warehouse.CopySource) error
}

// Driver runs the pipeline stages over a single session, strictly in order.
// Nothing is retried and nothing is rolled back across statements: when a
// statement fails, everything committed before it stays.
type Driver struct {
	exec    Executor
	cfg     *config.Config
	dialect warehouse.Dialect
	checker SourceChecker
	logger  *zap.Logger
}

// NewDriver creates a driver for one run. checker may be nil, in which case
// sources are not checked before loading.
func NewDriver(exec Executor, cfg *config.Config, checker SourceChecker, logger *zap.Logger) (*Driver, error) {
	dialect, err := warehouse.DialectByName(cfg.Cluster.Dialect)
	if err != nil {
		return nil, err
	}

	return &Driver{
		exec:    exec,
		cfg:     cfg,
		dialect: dialect,
		checker: checker,
		logger:  logger.Named("etl"),
	}, nil
}

// CreateTables drops every table and recreates it.
func (d *Driver) CreateTables(ctx context.Context) error {
	for _, stage := range SchemaStages(d.dialect) {
		if err := d.RunStage(ctx, stage); err != nil {
			return err
		}
	}
	return nil
}

// LoadStaging bulk-loads the staging tables: events, then songs.
func (d *Driver) LoadStaging(ctx context.Context) error {
	stage, err := LoadStage(d.dialect, d.cfg)
	if err != nil {
		return err
	}

	if d.checker != nil {
		d.logger.Info("Checking source data", zap.String("region", d.cfg.S3.Region))
		if err := d.checker.CheckSources(ctx, warehouse.CopySources(d.cfg.S3)); err != nil {
			return fmt.Errorf("source check failed: %w", err)
		}
	}

	return d.RunStage(ctx, stage)
}

// InsertTables populates the fact and dimension tables from staging.
func (d *Driver) InsertTables(ctx context.Context) error {
	stage, err := InsertStage()
	if err != nil {
		return err
	}
	return d.RunStage(ctx, stage)
}

// Run loads staging and then populates the warehouse tables.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.LoadStaging(ctx); err != nil {
		return err
	}
	return d.InsertTables(ctx)
}

// RunStage executes every statement of a stage in order, stopping at the
// first failure.
func (d *Driver) RunStage(ctx context.Context, stage Stage) error {
	d.logger.Info("Execute stage",
		zap.String("stage", stage.Name),
		zap.Int("statements", len(stage.Statements)))

	stageStart := time.Now()
	for i, stmt := range stage.Statements {
		d.logger.Debug("Executing statement",
			zap.String("stage", stage.Name),
			zap.String("statement", stmt.Name),
			zap.Int("step", i+1),
			zap.String("sql", logging.SanitizeStatement(stmt.SQL)))

		start := time.Now()
		if err := d.exec.ExecCommit(ctx, stmt.SQL); err != nil {
			d.logger.Error("Statement failed",
				zap.String("stage", stage.Name),
				zap.String("statement", stmt.Name),
				zap.String("error", logging.SanitizeError(err)))
			return &apperrors.StatementError{Stage: stage.Name, Statement: stmt.Name, Err: err}
		}

		d.logger.Info("Statement committed",
			zap.String("stage", stage.Name),
			zap.String("statement", stmt.Name),
			zap.Duration("elapsed", time.Since(start)))
	}

	d.logger.Info("Stage done",
		zap.String("stage", stage.Name),
		zap.Duration("elapsed", time.Since(stageStart)))
	return nil
}

// TableCount is the row count of one warehouse table after a run.
type TableCount struct {
	Table string
	Rows  int64
}

// Summarize counts the rows of every fact and dimension table and logs them.
func (d *Driver) Summarize(ctx context.Context) ([]TableCount, error) {
	tables := warehouse.WarehouseTables()
	counts := make([]TableCount, 0, len(tables))
	for _, t := range tables {
		rows, err := d.exec.CountRows(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		counts = append(counts, TableCount{Table: t.Name, Rows: rows})
		d.logger.Info("Table populated",
			zap.String("table", t.Name),
			zap.String("kind", t.Kind.String()),
			zap.Int64("rows", rows))
	}
	return counts, nil
}
