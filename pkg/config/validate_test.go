package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
)

func validConfig() *Config {
	return &Config{
		Env:      "test",
		LogLevel: "info",
		Cluster: ClusterConfig{
			Host:     "dwhcluster.abc123.us-west-2.redshift.amazonaws.com",
			Port:     5439,
			Database: "dwh",
			User:     "dwhuser",
			SSLMode:  "require",
			Dialect:  DialectRedshift,
		},
		IAMRole: IAMRoleConfig{ARN: "arn:aws:iam::123456789012:role/dwhRole"},
		S3: S3Config{
			Region:        "us-west-2",
			LogData:       "s3://udacity-dend/log_data",
			LogJSONPath:   "s3://udacity-dend/log_json_path.json",
			LogTimeFormat: "epochmillisecs",
			SongData:      "s3://udacity-dend/song_data",
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_GovCloudAndPartitionedARN(t *testing.T) {
	cfg := validConfig()
	cfg.S3.Region = "us-gov-west-1"
	cfg.IAMRole.ARN = "arn:aws-us-gov:iam::123456789012:role/service-role/dwhRole"

	require.NoError(t, cfg.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"missing host", func(c *Config) { c.Cluster.Host = "" }, "cluster.host"},
		{"port out of range", func(c *Config) { c.Cluster.Port = 70000 }, "cluster.port"},
		{"missing database", func(c *Config) { c.Cluster.Database = " " }, "cluster.database"},
		{"missing user", func(c *Config) { c.Cluster.User = "" }, "cluster.user"},
		{"unknown ssl mode", func(c *Config) { c.Cluster.SSLMode = "sometimes" }, "cluster.ssl_mode"},
		{"unknown dialect", func(c *Config) { c.Cluster.Dialect = "snowflake" }, "cluster.dialect"},
		{"arn with quote", func(c *Config) { c.IAMRole.ARN = "arn:aws:iam::123456789012:role/x' --" }, "iam_role.arn"},
		{"arn without account", func(c *Config) { c.IAMRole.ARN = "arn:aws:iam:::role/dwhRole" }, "iam_role.arn"},
		{"region injection", func(c *Config) { c.S3.Region = "us-west-2'; DROP TABLE dimUsers; --" }, "s3.region"},
		{"log data not s3", func(c *Config) { c.S3.LogData = "https://udacity-dend/log_data" }, "s3.log_data"},
		{"jsonpath with quote", func(c *Config) { c.S3.LogJSONPath = "s3://udacity-dend/x.json'" }, "s3.log_jsonpath"},
		{"song data with semicolon", func(c *Config) { c.S3.SongData = "s3://udacity-dend/song;data" }, "s3.song_data"},
		{"bucket too short", func(c *Config) { c.S3.SongData = "s3://a" }, "s3.song_data"},
		{"time format with quote", func(c *Config) { c.S3.LogTimeFormat = "auto'" }, "s3.log_time_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Cluster.Host = ""
	cfg.S3.Region = "nowhere"
	cfg.S3.SongData = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster.host")
	assert.Contains(t, err.Error(), "s3.region")
	assert.Contains(t, err.Error(), "s3.song_data")
}
