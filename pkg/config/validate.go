package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
	dwhsql "github.com/ekaya-inc/songplay-warehouse/pkg/sql"
)

var (
	// s3://bucket[/key], bucket names per the S3 naming rules.
	s3URIPattern = regexp.MustCompile(`^s3://[a-z0-9][a-z0-9.-]{1,61}[a-z0-9](/[A-Za-z0-9!_.*()/=-]*)?$`)

	iamRoleARNPattern = regexp.MustCompile(`^arn:aws[a-z-]*:iam::\d{12}:role/[A-Za-z0-9+=,.@_/-]{1,512}$`)

	regionPattern = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-\d$`)

	timeFormatPattern = regexp.MustCompile(`^[A-Za-z0-9 :.\-/]{1,64}$`)
)

// Validate checks every value that will be interpolated into statement text,
// plus the connection settings. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.Cluster.validate()...)

	if !iamRoleARNPattern.MatchString(c.IAMRole.ARN) {
		errs = append(errs, fmt.Errorf("iam_role.arn: %q is not an IAM role ARN", c.IAMRole.ARN))
	}

	errs = append(errs, c.S3.validate()...)

	// The allow-lists above already exclude quotes and semicolons; libinjection
	// is a second opinion on the values that reach COPY text.
	for name, value := range c.interpolated() {
		if r := dwhsql.CheckValueForInjection(name, value); r != nil {
			errs = append(errs, fmt.Errorf("%s: value rejected by injection check (fingerprint %q)", name, r.Fingerprint))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *ClusterConfig) validate() []error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("cluster.host is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("cluster.port: %d is out of range", c.Port))
	}
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, errors.New("cluster.database is required"))
	}
	if strings.TrimSpace(c.User) == "" {
		errs = append(errs, errors.New("cluster.user is required"))
	}
	switch c.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		errs = append(errs, fmt.Errorf("cluster.ssl_mode: unknown mode %q", c.SSLMode))
	}
	switch c.Dialect {
	case DialectRedshift, DialectPostgres:
	default:
		errs = append(errs, fmt.Errorf("cluster.dialect: unknown dialect %q", c.Dialect))
	}
	return errs
}

func (s *S3Config) validate() []error {
	var errs []error
	if !regionPattern.MatchString(s.Region) {
		errs = append(errs, fmt.Errorf("s3.region: %q is not an AWS region", s.Region))
	}
	for _, f := range []struct{ name, value string }{
		{"s3.log_data", s.LogData},
		{"s3.log_jsonpath", s.LogJSONPath},
		{"s3.song_data", s.SongData},
	} {
		if !s3URIPattern.MatchString(f.value) {
			errs = append(errs, fmt.Errorf("%s: %q is not an s3:// URI", f.name, f.value))
		}
	}
	if !timeFormatPattern.MatchString(s.LogTimeFormat) {
		errs = append(errs, fmt.Errorf("s3.log_time_format: %q is not a COPY time format", s.LogTimeFormat))
	}
	return errs
}

// interpolated returns the values that are formatted into COPY statements,
// keyed by their config path.
func (c *Config) interpolated() map[string]string {
	return map[string]string{
		"iam_role.arn":       c.IAMRole.ARN,
		"s3.region":          c.S3.Region,
		"s3.log_data":        c.S3.LogData,
		"s3.log_jsonpath":    c.S3.LogJSONPath,
		"s3.song_data":       c.S3.SongData,
		"s3.log_time_format": c.S3.LogTimeFormat,
	}
}
