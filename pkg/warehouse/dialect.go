package warehouse

import (
	"fmt"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
)

// Dialect captures the differences between the warehouse engines the schema
// is rendered for.
type Dialect struct {
	Name string

	// CopyFromS3 reports whether the engine can bulk-load straight from S3.
	CopyFromS3 bool

	// InformationalConstraints reports whether PRIMARY KEY and REFERENCES are
	// recorded without being enforced, and whether distribution and sort
	// hints are accepted. When false, only keys that the inserts keep unique
	// are declared.
	InformationalConstraints bool
}

var (
	Redshift = Dialect{Name: "redshift", CopyFromS3: true, InformationalConstraints: true}
	Postgres = Dialect{Name: "postgres"}
)

// DialectByName resolves the cluster.dialect setting.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case Redshift.Name:
		return Redshift, nil
	case Postgres.Name:
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("%w: unknown dialect %q", apperrors.ErrUnsupportedDialect, name)
	}
}

func (d Dialect) identity() string {
	if d.InformationalConstraints {
		return "IDENTITY(0,1)"
	}
	return "GENERATED BY DEFAULT AS IDENTITY (MINVALUE 0 START WITH 0)"
}
