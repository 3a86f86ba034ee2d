package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrConnection          = errors.New("database connection failed")
	ErrSourceNotFound      = errors.New("source data not found")
	ErrUnsupportedDialect  = errors.New("operation not supported by dialect")
	ErrStatementOrder      = errors.New("statement reads a table before it is populated")
	ErrMultipleStatements  = errors.New("multiple SQL statements not allowed")
	ErrUnsafeInterpolation = errors.New("value is not safe to interpolate into SQL")
)

// StatementError reports the statement that aborted a stage. Statements that
// ran before it have already been committed.
type StatementError struct {
	Stage     string
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("stage %s: statement %s: %v", e.Stage, e.Statement, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}
