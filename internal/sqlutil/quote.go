// Package sqlutil builds the identifier parts of legacy queries. Values always
// travel as placeholders; only schema, table and column names are spliced in.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a MySQL identifier with backticks, doubling any
// embedded backtick.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier reports whether name contains only alphanumerics and underscores.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QualifiedName returns `schema`.`table` after validating both parts.
func QualifiedName(schema, table string) (string, error) {
	if !IsValidIdentifier(schema) {
		return "", &InvalidIdentifierError{Name: schema}
	}
	if !IsValidIdentifier(table) {
		return "", &InvalidIdentifierError{Name: table}
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(table), nil
}

// MustQualifiedName is QualifiedName for compile-time constant names.
func MustQualifiedName(schema, table string) string {
	name, err := QualifiedName(schema, table)
	if err != nil {
		panic(err)
	}
	return name
}

// ColumnList quotes and joins column names for a SELECT list.
func ColumnList(cols ...string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// Placeholders returns n comma-separated question marks.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
