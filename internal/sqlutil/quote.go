// Package sqlutil provides SQL utility functions for statsync.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a Postgres identifier (table name, column name) with
// double quotes, escaping any embedded quote by doubling it.
// Example: "my_table" -> "\"my_table\""
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// validIdentifierRegex matches the identifier alphabet this pipeline
// produces: normalized column names and table names derived from catalog
// paths contain letters (the catalog is Swedish, so å/ä/ö appear), digits
// and underscores. Separator characters are already replaced upstream.
var validIdentifierRegex = regexp.MustCompile(`^[\p{L}\p{N}_]+$`)

// IsValidIdentifier checks if a name is a valid identifier.
// This is a defense-in-depth measure against SQL injection, since table and
// column names originate from a remote catalog.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes an identifier after validating it.
// Returns an error if the identifier contains invalid characters.
// Use this for identifiers derived from API responses.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only letters, digits and underscores)"
}
