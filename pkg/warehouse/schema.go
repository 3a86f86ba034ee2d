// Package warehouse holds the star schema of the songplay warehouse and the
// fixed statements that populate it: the staging and warehouse table layouts,
// the COPY statements that fill staging from S3, and the INSERT … SELECT
// statements that build the fact and dimension tables.
package warehouse

import (
	"fmt"
	"strings"
)

// Kind classifies a table by its role in the pipeline.
type Kind int

const (
	KindStaging Kind = iota
	KindDimension
	KindFact
)

func (k Kind) String() string {
	switch k {
	case KindStaging:
		return "staging"
	case KindDimension:
		return "dimension"
	case KindFact:
		return "fact"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column describes one column. Names are emitted unquoted, so the engines
// fold them to lower case.
type Column struct {
	Name     string
	Type     string
	NotNull  bool
	Default  string
	Identity bool

	// PrimaryKey marks the table key. It is only declared on dialects with
	// informational constraints unless UniqueByConstruction is also set.
	PrimaryKey           bool
	UniqueByConstruction bool

	// References is the "table(column)" this column logically points at.
	References string

	SortKey bool
	DistKey bool
}

// Table is the layout of one staging or warehouse table.
type Table struct {
	Name         string
	Kind         Kind
	Columns      []Column
	DistStyleAll bool
}

// CreateSQL renders CREATE TABLE IF NOT EXISTS for the dialect.
func (t Table) CreateSQL(d Dialect) string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, c.render(d))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", t.Name, strings.Join(defs, ",\n    "))
	if t.DistStyleAll && d.InformationalConstraints {
		sb.WriteString(" DISTSTYLE ALL")
	}
	return sb.String()
}

// DropSQL renders DROP TABLE IF EXISTS.
func (t Table) DropSQL() string {
	return "DROP TABLE IF EXISTS " + t.Name
}

func (c Column) render(d Dialect) string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteByte(' ')
	sb.WriteString(c.Type)

	if c.Identity {
		sb.WriteByte(' ')
		sb.WriteString(d.identity())
	}
	if c.NotNull {
		sb.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(c.Default)
	}
	if c.PrimaryKey && (d.InformationalConstraints || c.UniqueByConstruction) {
		sb.WriteString(" PRIMARY KEY")
	}
	if d.InformationalConstraints {
		if c.References != "" {
			sb.WriteString(" REFERENCES ")
			sb.WriteString(c.References)
		}
		if c.SortKey {
			sb.WriteString(" SORTKEY")
		}
		if c.DistKey {
			sb.WriteString(" DISTKEY")
		}
	}
	return sb.String()
}
