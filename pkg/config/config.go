package config

import (
	"fmt"
	"net/url"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the settings file read when no --config flag is given.
const DefaultPath = "dwh.yaml"

// Supported SQL dialects.
const (
	DialectRedshift = "redshift"
	DialectPostgres = "postgres"
)

// Config holds all configuration for a warehouse run.
// Configuration can come from a YAML, TOML or JSON file; environment variables
// always override file values. The cluster password must only come from the
// environment.
type Config struct {
	Env      string `yaml:"env" env:"DWH_ENV" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"DWH_LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Cluster ClusterConfig `yaml:"cluster"`
	IAMRole IAMRoleConfig `yaml:"iam_role"`
	S3      S3Config      `yaml:"s3"`
}

// ClusterConfig holds the warehouse connection settings.
type ClusterConfig struct {
	Host     string `yaml:"host" env:"DWH_HOST"`
	Port     int    `yaml:"port" env:"DWH_PORT" env-default:"5439"`
	Database string `yaml:"database" env:"DWH_DATABASE"`
	User     string `yaml:"user" env:"DWH_USER"`
	Password string `yaml:"-" env:"DWH_PASSWORD"` // Secret - not in config file
	SSLMode  string `yaml:"ssl_mode" env:"DWH_SSLMODE" env-default:"require"`

	// Dialect selects how schema statements are rendered. COPY is only
	// available on redshift.
	Dialect string `yaml:"dialect" env:"DWH_DIALECT" env-default:"redshift"`
}

// IAMRoleConfig holds the role the warehouse assumes to read from S3.
type IAMRoleConfig struct {
	ARN string `yaml:"arn" env:"DWH_IAM_ROLE_ARN"`
}

// S3Config locates the two source datasets.
type S3Config struct {
	Region string `yaml:"region" env:"DWH_S3_REGION" env-default:"us-west-2"`

	// LogData is the prefix holding user-activity event files.
	LogData string `yaml:"log_data" env:"DWH_LOG_DATA"`

	// LogJSONPath is the jsonpath file mapping event keys to stageEvents columns.
	LogJSONPath string `yaml:"log_jsonpath" env:"DWH_LOG_JSONPATH"`

	// LogTimeFormat tells COPY how the event ts field is encoded.
	LogTimeFormat string `yaml:"log_time_format" env:"DWH_LOG_TIME_FORMAT" env-default:"epochmillisecs"`

	// SongData is the prefix holding song catalog files.
	SongData string `yaml:"song_data" env:"DWH_SONG_DATA"`

	// Preflight makes the etl command list every source before the first COPY.
	Preflight bool `yaml:"preflight" env:"DWH_S3_PREFLIGHT" env-default:"false"`
}

// Load reads configuration from path with environment variable overrides and
// validates it. The version parameter is injected at build time and set on the
// returned Config.
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL URL for the cluster.
// User-provided fields are escaped so that special characters in passwords
// do not break URL parsing.
func (c *ClusterConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
