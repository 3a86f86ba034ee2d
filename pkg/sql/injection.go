package sql

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
)

// InjectionCheckResult describes a configuration value that libinjection
// recognised as an SQL injection pattern.
type InjectionCheckResult struct {
	Name        string // Config key the value came from
	Value       string
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckValueForInjection runs libinjection over a value that will be
// interpolated into statement text. Returns nil when the value is clean.
//
// Example:
//
//	result := CheckValueForInjection("s3.log_data", "s3://bucket/log_data")
//	// result == nil
//
//	result := CheckValueForInjection("s3.region", "us-west-2' OR '1'='1")
//	// result.Fingerprint == "s&sos" (or similar)
func CheckValueForInjection(name, value string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		Name:        name,
		Value:       value,
		Fingerprint: string(fingerprint),
	}
}

// QuoteLiteral renders value as a single-quoted SQL string literal.
// Values containing a quote, a backslash or a NUL byte are rejected rather
// than escaped; every interpolated value comes from configuration and none
// of them may legitimately contain those characters.
func QuoteLiteral(name, value string) (string, error) {
	if strings.ContainsAny(value, "'\\\x00") {
		return "", fmt.Errorf("%w: %s contains a quote, backslash or NUL", apperrors.ErrUnsafeInterpolation, name)
	}
	if r := CheckValueForInjection(name, value); r != nil {
		return "", fmt.Errorf("%w: %s (fingerprint %q)", apperrors.ErrUnsafeInterpolation, name, r.Fingerprint)
	}
	return "'" + value + "'", nil
}
