package sqlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple", input: "objects", expected: "`objects`"},
		{name: "underscore", input: "objects_pictures", expected: "`objects_pictures`"},
		{name: "empty", input: "", expected: "``"},
		{name: "embedded backtick", input: "my`table", expected: "`my``table`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteIdentifier(tt.input))
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, IsValidIdentifier("mwnf3_thematic_gallery"))
	assert.True(t, IsValidIdentifier("theme_i18n"))
	assert.False(t, IsValidIdentifier(""))
	assert.False(t, IsValidIdentifier("objects; DROP TABLE x"))
	assert.False(t, IsValidIdentifier("a.b"))
	assert.False(t, IsValidIdentifier("a-b"))
}

func TestQualifiedName(t *testing.T) {
	name, err := QualifiedName("mwnf3", "objects_pictures")
	require.NoError(t, err)
	assert.Equal(t, "`mwnf3`.`objects_pictures`", name)

	_, err = QualifiedName("mwnf3", "bad name")
	require.Error(t, err)
	var idErr *InvalidIdentifierError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "bad name", idErr.Name)

	_, err = QualifiedName("", "t")
	assert.Error(t, err)
}

func TestMustQualifiedName(t *testing.T) {
	assert.Equal(t, "`a`.`b`", MustQualifiedName("a", "b"))
	assert.Panics(t, func() { MustQualifiedName("a", "b`c") })
}

func TestColumnList(t *testing.T) {
	assert.Equal(t, "`project_id`, `country`, `number`", ColumnList("project_id", "country", "number"))
	assert.Equal(t, "", ColumnList())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))
}

func TestInvalidIdentifierError_Error(t *testing.T) {
	err := &InvalidIdentifierError{Name: "x y"}
	assert.Contains(t, err.Error(), "invalid identifier: x y")
}
