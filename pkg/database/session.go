package database

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/songplay-warehouse/pkg/logging"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Session owns the single warehouse connection used for a whole run.
type Session struct {
	conn   *pgx.Conn
	logger *zap.Logger
}

// Open connects to the warehouse and verifies the connection with a ping.
// Statements are sent with the simple query protocol; none of them take
// parameters.
func Open(ctx context.Context, connString string, logger *zap.Logger) (*Session, error) {
	connConfig, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse connection string: %s", apperrors.ErrConnection, logging.SanitizeError(err))
	}
	connConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	logger = logger.Named("database")
	logger.Info("Connecting to warehouse",
		zap.String("host", connConfig.Host),
		zap.Uint16("port", connConfig.Port),
		zap.String("database", connConfig.Database),
		zap.String("user", connConfig.User))

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConnection, logging.SanitizeError(err))
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("%w: failed to ping warehouse: %s", apperrors.ErrConnection, logging.SanitizeError(err))
	}

	return &Session{conn: conn, logger: logger}, nil
}

// ExecCommit runs one statement in its own transaction and commits it.
// On failure the transaction is rolled back; earlier commits are unaffected.
func (s *Session) ExecCommit(ctx context.Context, statement string) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tag, err := tx.Exec(ctx, statement)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Warn("Failed to roll back statement", zap.String("error", logging.SanitizeError(rbErr)))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Debug("Statement committed",
		zap.String("tag", tag.String()),
		zap.Int64("rows_affected", tag.RowsAffected()))
	return nil
}

// CountRows returns the number of rows in table.
func (s *Session) CountRows(ctx context.Context, table string) (int64, error) {
	if !identifierPattern.MatchString(table) {
		return 0, fmt.Errorf("%w: table name %q", apperrors.ErrUnsafeInterpolation, table)
	}

	var count int64
	if err := s.conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

// Conn exposes the underlying connection for tests.
func (s *Session) Conn() *pgx.Conn {
	return s.conn
}

// Close releases the connection.
func (s *Session) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
