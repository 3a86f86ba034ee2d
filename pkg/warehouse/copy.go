package warehouse

import (
	"fmt"

	"github.com/ekaya-inc/songplay-warehouse/pkg/config"
	dwhsql "github.com/ekaya-inc/songplay-warehouse/pkg/sql"
)

// JSONAuto tells COPY to match JSON keys to column names.
const JSONAuto = "auto"

// CopySource binds a staging table to the S3 data that fills it.
type CopySource struct {
	Table string

	Location string

	// JSONPaths is an s3:// jsonpaths file, or JSONAuto.
	JSONPaths string

	// TimeFormat is the TIMEFORMAT option, empty to omit it.
	TimeFormat string

	// Config paths of the values above, used in error messages.
	LocationKey, JSONPathsKey, TimeFormatKey string
}

// CopySources returns the staging sources in load order: events, then songs.
func CopySources(s3 config.S3Config) []CopySource {
	return []CopySource{
		{
			Table:         StageEvents,
			Location:      s3.LogData,
			JSONPaths:     s3.LogJSONPath,
			TimeFormat:    s3.LogTimeFormat,
			LocationKey:   "s3.log_data",
			JSONPathsKey:  "s3.log_jsonpath",
			TimeFormatKey: "s3.log_time_format",
		},
		{
			Table:        StageSongs,
			Location:     s3.SongData,
			JSONPaths:    JSONAuto,
			LocationKey:  "s3.song_data",
			JSONPathsKey: "format",
		},
	}
}

// CopyStatements renders one COPY per staging table. Values are interpolated
// as string literals, so each is checked again here even though config.Load
// has already validated them; a statement that fails either check is never
// returned.
func CopyStatements(role config.IAMRoleConfig, s3 config.S3Config) ([]Statement, error) {
	arn, err := dwhsql.QuoteLiteral("iam_role.arn", role.ARN)
	if err != nil {
		return nil, err
	}
	region, err := dwhsql.QuoteLiteral("s3.region", s3.Region)
	if err != nil {
		return nil, err
	}

	sources := CopySources(s3)
	stmts := make([]Statement, 0, len(sources))
	for _, src := range sources {
		stmt, err := copyStatement(src, arn, region)
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", src.Table, err)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func copyStatement(src CopySource, arn, region string) (Statement, error) {
	location, err := dwhsql.QuoteLiteral(src.LocationKey, src.Location)
	if err != nil {
		return Statement{}, err
	}
	jsonPaths, err := dwhsql.QuoteLiteral(src.JSONPathsKey, src.JSONPaths)
	if err != nil {
		return Statement{}, err
	}

	text := fmt.Sprintf("COPY %s\nFROM %s\nIAM_ROLE %s\nREGION %s\nFORMAT AS JSON %s",
		src.Table, location, arn, region, jsonPaths)

	if src.TimeFormat != "" {
		timeFormat, err := dwhsql.QuoteLiteral(src.TimeFormatKey, src.TimeFormat)
		if err != nil {
			return Statement{}, err
		}
		text += "\nTIMEFORMAT AS " + timeFormat
	}

	normalized, err := dwhsql.Normalize(text)
	if err != nil {
		return Statement{}, err
	}

	return Statement{
		Name:   "copy " + src.Table,
		Target: src.Table,
		SQL:    normalized,
	}, nil
}
