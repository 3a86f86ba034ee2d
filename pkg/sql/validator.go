// Package sql provides the checks applied to statement text before it is sent
// to the warehouse.
package sql

import (
	"strings"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
)

// Normalize trims whitespace and a trailing semicolon, then rejects any
// statement text that still holds a semicolon outside string literals.
// Every statement the driver issues must be exactly one statement, so a
// config value that smuggled in a second one fails here even if it slipped
// past value validation.
func Normalize(statement string) (string, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(statement))
	if hasSemicolonOutsideStrings(normalized) {
		return "", apperrors.ErrMultipleStatements
	}
	return normalized, nil
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals and quoted identifiers.
func hasSemicolonOutsideStrings(statement string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	for _, char := range statement {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// A doubled quote ('') exits and immediately re-enters.
			if char == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' {
				state = stateNormal
			}
		}
	}

	return false
}

func stripTrailingSemicolon(statement string) string {
	statement = strings.TrimRight(statement, " \t\n\r")
	if strings.HasSuffix(statement, ";") {
		statement = strings.TrimRight(strings.TrimSuffix(statement, ";"), " \t\n\r")
	}
	return statement
}
