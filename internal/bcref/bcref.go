// Package bcref encodes legacy composite primary keys as backward-compatibility
// tokens. A token is the only identity a migrated record carries across runs.
package bcref

import (
	"errors"
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/legacymigrate/internal/types"
)

// Separator joins the token segments.
const Separator = ":"

// DefaultContextToken identifies the target's default context. It is not a
// legacy key and never parses.
const DefaultContextToken = "__default_context__"

// ErrMalformedReference is returned when a token has fewer than three segments.
var ErrMalformedReference = errors.New("malformed backward-compatibility reference")

// DefaultExcludedColumns are dropped from denormalized keys so that every
// language variant of a legacy record maps to the same token.
var DefaultExcludedColumns = []string{"lang", "language", "language_id"}

// Reference identifies one logical legacy record.
type Reference struct {
	Schema   string
	Table    string
	PKValues []string
}

// New builds a Reference, coercing every key value to its string form.
func New(schema, table string, pkValues ...any) Reference {
	values := make([]string, len(pkValues))
	for i, v := range pkValues {
		values[i] = types.ToString(v)
	}
	return Reference{Schema: schema, Table: table, PKValues: values}
}

// String returns the serialized token.
func (r Reference) String() string {
	return Format(r)
}

// Format serializes a reference as schema:table:pk1:pk2:...
func Format(ref Reference) string {
	parts := make([]string, 0, len(ref.PKValues)+2)
	parts = append(parts, ref.Schema, ref.Table)
	parts = append(parts, ref.PKValues...)
	return strings.Join(parts, Separator)
}

// Parse is the inverse of Format.
func Parse(token string) (Reference, error) {
	parts := strings.Split(token, Separator)
	if len(parts) < 3 {
		return Reference{}, fmt.Errorf("%w: %q has %d segment(s), need at least 3",
			ErrMalformedReference, token, len(parts))
	}
	pk := make([]string, len(parts)-2)
	copy(pk, parts[2:])
	return Reference{Schema: parts[0], Table: parts[1], PKValues: pk}, nil
}

// FormatDenormalized formats the ordered primary-key columns of a denormalized
// table, skipping the excluded columns (compared case-insensitively). When no
// exclusions are given DefaultExcludedColumns apply.
func FormatDenormalized(schema, table string, pkColumns *orderedmap.OrderedMap[string, any], exclude ...string) string {
	if len(exclude) == 0 {
		exclude = DefaultExcludedColumns
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, col := range exclude {
		skip[strings.ToLower(col)] = struct{}{}
	}

	var values []any
	for el := pkColumns.Front(); el != nil; el = el.Next() {
		if _, excluded := skip[strings.ToLower(el.Key)]; excluded {
			continue
		}
		values = append(values, el.Value)
	}
	return Format(New(schema, table, values...))
}

// FormatImage formats the token of an ordered child (image) of an item. The
// index must be stable across runs for the same parent.
func FormatImage(schema, table string, itemPK []any, index int) string {
	values := make([]any, 0, len(itemPK)+1)
	values = append(values, itemPK...)
	values = append(values, index)
	return Format(New(schema, table, values...))
}

// Columns is a convenience constructor for an ordered column map.
// Arguments alternate column name and value.
func Columns(kv ...any) *orderedmap.OrderedMap[string, any] {
	m := orderedmap.NewOrderedMap[string, any]()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return m
}
