package etl

import (
	"fmt"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/songplay-warehouse/pkg/config"
	"github.com/ekaya-inc/songplay-warehouse/pkg/warehouse"
)

// Stage names, as they appear in logs and StatementError.
const (
	StageDropTables   = "drop_tables"
	StageCreateTables = "create_tables"
	StageLoadStaging  = "load_staging_tables"
	StageInsertTables = "insert_tables"
)

// Stage is an ordered list of statements executed one at a time, each
// committed before the next begins.
type Stage struct {
	Name       string
	Statements []warehouse.Statement
}

// SchemaStages drops every table and then recreates it.
func SchemaStages(d warehouse.Dialect) []Stage {
	return []Stage{
		{Name: StageDropTables, Statements: warehouse.DropStatements()},
		{Name: StageCreateTables, Statements: warehouse.CreateStatements(d)},
	}
}

// LoadStage bulk-loads both staging tables from S3.
func LoadStage(d warehouse.Dialect, cfg *config.Config) (Stage, error) {
	if !d.CopyFromS3 {
		return Stage{}, fmt.Errorf("%w: %s cannot COPY from S3", apperrors.ErrUnsupportedDialect, d.Name)
	}

	stmts, err := warehouse.CopyStatements(cfg.IAMRole, cfg.S3)
	if err != nil {
		return Stage{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, err)
	}
	return Stage{Name: StageLoadStaging, Statements: stmts}, nil
}

// InsertStage populates the fact and dimension tables from staging.
func InsertStage() (Stage, error) {
	stmts := warehouse.InsertStatements()
	if err := ValidateOrder(stmts); err != nil {
		return Stage{}, err
	}
	return Stage{Name: StageInsertTables, Statements: stmts}, nil
}

// ValidateOrder checks that no statement reads a table that a later (or the
// same) statement in the list populates.
func ValidateOrder(stmts []warehouse.Statement) error {
	populatedAt := make(map[string]int, len(stmts))
	for i, s := range stmts {
		if _, ok := populatedAt[s.Target]; !ok {
			populatedAt[s.Target] = i
		}
	}

	for i, s := range stmts {
		for _, table := range s.Reads {
			if at, ok := populatedAt[table]; ok && at >= i {
				return fmt.Errorf("%w: %q reads %s, which %q populates", apperrors.ErrStatementOrder, s.Name, table, stmts[at].Name)
			}
		}
	}
	return nil
}
