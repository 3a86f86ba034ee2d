package etl

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/songplay-warehouse/pkg/config"
	"github.com/ekaya-inc/songplay-warehouse/pkg/warehouse"
)

// recordingExecutor records every statement it is given and fails the first
// one containing failOn.
type recordingExecutor struct {
	executed []string
	failOn   string
	failErr  error
	counts   map[string]int64
}

func (r *recordingExecutor) ExecCommit(ctx context.Context, statement string) error {
	if r.failOn != "" && strings.Contains(statement, r.failOn) {
		return r.failErr
	}
	r.executed = append(r.executed, statement)
	return nil
}

func (r *recordingExecutor) CountRows(ctx context.Context, table string) (int64, error) {
	return r.counts[table], nil
}

type stubChecker struct {
	called  bool
	sources []warehouse.CopySource
	err     error
}

func (s *stubChecker) CheckSources(ctx context.Context, sources []warehouse.CopySource) error {
	s.called = true
	s.sources = sources
	return s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Env:      "test",
		LogLevel: "info",
		Cluster: config.ClusterConfig{
			Host:     "localhost",
			Port:     5439,
			Database: "dwh",
			User:     "dwhuser",
			SSLMode:  "require",
			Dialect:  config.DialectRedshift,
		},
		IAMRole: config.IAMRoleConfig{ARN: "arn:aws:iam::123456789012:role/dwhRole"},
		S3: config.S3Config{
			Region:        "us-west-2",
			LogData:       "s3://udacity-dend/log_data",
			LogJSONPath:   "s3://udacity-dend/log_json_path.json",
			LogTimeFormat: "epochmillisecs",
			SongData:      "s3://udacity-dend/song_data",
		},
	}
}

func newTestDriver(t *testing.T, exec Executor, cfg *config.Config, checker SourceChecker) *Driver {
	t.Helper()
	d, err := NewDriver(exec, cfg, checker, zap.NewNop())
	require.NoError(t, err)
	return d
}

func firstLine(statement string) string {
	return strings.SplitN(strings.TrimSpace(statement), "\n", 2)[0]
}

func TestNewDriver_UnknownDialect(t *testing.T) {
	cfg := testConfig()
	cfg.Cluster.Dialect = "oracle"

	_, err := NewDriver(&recordingExecutor{}, cfg, nil, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDialect)
}

func TestCreateTables_DropsThenCreatesInOrder(t *testing.T) {
	exec := &recordingExecutor{}
	d := newTestDriver(t, exec, testConfig(), nil)

	require.NoError(t, d.CreateTables(context.Background()))

	tables := warehouse.Tables()
	require.Len(t, exec.executed, 2*len(tables))

	drops := exec.executed[:len(tables)]
	creates := exec.executed[len(tables):]

	assert.Equal(t, "DROP TABLE IF EXISTS factSongplays", drops[0])
	for _, stmt := range drops {
		assert.True(t, strings.HasPrefix(stmt, "DROP TABLE IF EXISTS "), stmt)
	}
	for i, stmt := range creates {
		assert.Equal(t, "CREATE TABLE IF NOT EXISTS "+tables[i].Name+" (", firstLine(stmt))
	}
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS factSongplays (", firstLine(creates[len(creates)-1]))
}

func TestRun_LoadsThenInserts(t *testing.T) {
	exec := &recordingExecutor{}
	d := newTestDriver(t, exec, testConfig(), nil)

	require.NoError(t, d.Run(context.Background()))

	got := make([]string, 0, len(exec.executed))
	for _, stmt := range exec.executed {
		got = append(got, firstLine(stmt))
	}
	assert.Equal(t, []string{
		"COPY stageEvents",
		"COPY stageSongs",
		"INSERT INTO factSongplays (",
		"INSERT INTO dimUsers (",
		"INSERT INTO dimSongs (",
		"INSERT INTO dimArtists (",
		"INSERT INTO dimTime (",
	}, got)
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	cause := errors.New("relation \"stagesongs\" does not exist")
	exec := &recordingExecutor{failOn: "INSERT INTO dimSongs", failErr: cause}
	d := newTestDriver(t, exec, testConfig(), nil)

	err := d.Run(context.Background())
	require.Error(t, err)

	var stmtErr *apperrors.StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, StageInsertTables, stmtErr.Stage)
	assert.Equal(t, "insert dimSongs", stmtErr.Statement)
	assert.ErrorIs(t, err, cause)

	// Both copies, the fact insert and the users insert ran; nothing after.
	require.Len(t, exec.executed, 4)
	assert.Equal(t, "INSERT INTO dimUsers (", firstLine(exec.executed[3]))
}

func TestRun_LoadFailureSkipsInserts(t *testing.T) {
	exec := &recordingExecutor{failOn: "COPY stageEvents", failErr: errors.New("S3ServiceException: Access Denied")}
	d := newTestDriver(t, exec, testConfig(), nil)

	err := d.Run(context.Background())

	var stmtErr *apperrors.StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, StageLoadStaging, stmtErr.Stage)
	assert.Equal(t, "copy stageEvents", stmtErr.Statement)
	assert.Empty(t, exec.executed)
}

func TestLoadStaging_PostgresUnsupported(t *testing.T) {
	cfg := testConfig()
	cfg.Cluster.Dialect = config.DialectPostgres
	exec := &recordingExecutor{}
	d := newTestDriver(t, exec, cfg, nil)

	err := d.LoadStaging(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDialect)
	assert.Empty(t, exec.executed)
}

func TestLoadStaging_InvalidConfigRejectedBeforeExecution(t *testing.T) {
	cfg := testConfig()
	cfg.S3.LogData = "s3://udacity-dend/log_data' CREDENTIALS 'x"
	exec := &recordingExecutor{}
	d := newTestDriver(t, exec, cfg, nil)

	err := d.LoadStaging(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
	assert.ErrorIs(t, err, apperrors.ErrUnsafeInterpolation)
	assert.Empty(t, exec.executed)
}

func TestLoadStaging_ChecksSourcesFirst(t *testing.T) {
	checker := &stubChecker{}
	exec := &recordingExecutor{}
	d := newTestDriver(t, exec, testConfig(), checker)

	require.NoError(t, d.LoadStaging(context.Background()))

	assert.True(t, checker.called)
	require.Len(t, checker.sources, 2)
	assert.Equal(t, warehouse.StageEvents, checker.sources[0].Table)
	assert.Equal(t, warehouse.StageSongs, checker.sources[1].Table)
	assert.Len(t, exec.executed, 2)
}

func TestLoadStaging_MissingSourceAbortsLoad(t *testing.T) {
	checker := &stubChecker{err: apperrors.ErrSourceNotFound}
	exec := &recordingExecutor{}
	d := newTestDriver(t, exec, testConfig(), checker)

	err := d.LoadStaging(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)
	assert.Empty(t, exec.executed)
}

func TestRunStage_LogsProgress(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	exec := &recordingExecutor{}
	d, err := NewDriver(exec, testConfig(), nil, zap.New(core))
	require.NoError(t, err)

	require.NoError(t, d.LoadStaging(context.Background()))

	committed := logs.FilterMessage("Statement committed").All()
	require.Len(t, committed, 2)
	assert.Equal(t, "copy stageEvents", committed[0].ContextMap()["statement"])
	assert.Equal(t, StageLoadStaging, committed[0].ContextMap()["stage"])

	// The role ARN never reaches the logs.
	for _, entry := range logs.FilterMessage("Executing statement").All() {
		assert.NotContains(t, entry.ContextMap()["sql"], "123456789012")
	}
}

func TestSummarize(t *testing.T) {
	exec := &recordingExecutor{counts: map[string]int64{
		warehouse.Songplays: 6820,
		warehouse.Users:     104,
		warehouse.Songs:     14896,
		warehouse.Artists:   10025,
		warehouse.Time:      6813,
	}}
	d := newTestDriver(t, exec, testConfig(), nil)

	counts, err := d.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TableCount{
		{Table: warehouse.Songplays, Rows: 6820},
		{Table: warehouse.Users, Rows: 104},
		{Table: warehouse.Songs, Rows: 14896},
		{Table: warehouse.Artists, Rows: 10025},
		{Table: warehouse.Time, Rows: 6813},
	}, counts)
}
