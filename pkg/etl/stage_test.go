package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/songplay-warehouse/pkg/warehouse"
)

func TestInsertStage_TimeAfterSongplays(t *testing.T) {
	stage, err := InsertStage()
	require.NoError(t, err)

	position := map[string]int{}
	for i, stmt := range stage.Statements {
		position[stmt.Target] = i
	}
	assert.Less(t, position[warehouse.Songplays], position[warehouse.Time])
}

func TestValidateOrder(t *testing.T) {
	stmts := warehouse.InsertStatements()
	require.NoError(t, ValidateOrder(stmts))

	// Moving the time insert to the front makes it read the fact table
	// before anything has filled it.
	reordered := append([]warehouse.Statement{stmts[len(stmts)-1]}, stmts[:len(stmts)-1]...)
	err := ValidateOrder(reordered)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStatementOrder)
	assert.Contains(t, err.Error(), warehouse.Songplays)
}

func TestValidateOrder_SelfRead(t *testing.T) {
	stmts := []warehouse.Statement{
		{Name: "loop", Target: "a", Reads: []string{"a"}},
	}
	assert.ErrorIs(t, ValidateOrder(stmts), apperrors.ErrStatementOrder)
}

func TestValidateOrder_StagingReadsAllowed(t *testing.T) {
	stmts := []warehouse.Statement{
		{Name: "users", Target: warehouse.Users, Reads: []string{warehouse.StageEvents}},
	}
	assert.NoError(t, ValidateOrder(stmts))
}

func TestSchemaStages(t *testing.T) {
	stages := SchemaStages(warehouse.Redshift)
	require.Len(t, stages, 2)
	assert.Equal(t, StageDropTables, stages[0].Name)
	assert.Equal(t, StageCreateTables, stages[1].Name)
	assert.Len(t, stages[0].Statements, len(warehouse.Tables()))
	assert.Len(t, stages[1].Statements, len(warehouse.Tables()))
}
