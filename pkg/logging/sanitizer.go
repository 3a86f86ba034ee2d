package logging

import (
	"regexp"
	"strings"
)

const (
	// MaxStatementLogLength is the maximum length of a statement to log
	MaxStatementLogLength = 120
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches user:pass@host in URL connection strings
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// IAM role ARNs identify the account and role the warehouse assumes
	iamRolePattern = regexp.MustCompile(`arn:aws[a-z-]*:iam::\d{12}:role/[A-Za-z0-9+=,.@_/-]+`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeConnectionString removes credentials from a connection string.
// Use this before logging any DSN.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might carry a DSN or role ARN.
// pgx includes the connection config in dial errors.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := SanitizeConnectionString(err.Error())
	sanitized = iamRolePattern.ReplaceAllString(sanitized, RedactedText)

	return sanitized
}

// SanitizeStatement flattens a statement onto one line, redacts role ARNs and
// truncates it for logging.
func SanitizeStatement(statement string) string {
	if statement == "" {
		return ""
	}

	sanitized := strings.TrimSpace(whitespacePattern.ReplaceAllString(statement, " "))
	sanitized = iamRolePattern.ReplaceAllString(sanitized, RedactedText)

	return TruncateString(sanitized, MaxStatementLogLength)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
