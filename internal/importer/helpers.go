package importer

import (
	"path"
	"regexp"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/google/uuid"

	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/types"
)

// Legacy schemas.
const (
	schemaMWNF3          = "mwnf3"
	schemaThematic       = "mwnf3_thematic_gallery"
	schemaSharingHistory = "mwnf3_sharing_history"
)

const placeholderPrefix = "placeholder-"

// placeholderID mints the synthetic id registered in dry-run and sample-only mode.
func placeholderID() string {
	return placeholderPrefix + uuid.NewString()
}

// IsPlaceholder reports whether id was minted without a target write.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}

// groupRows collapses adjacent denormalized rows into logical records keyed
// by keyCols. Group order is first-seen order, which is legacy query order.
func groupRows(rows []database.Row, keyCols ...string) *orderedmap.OrderedMap[string, []database.Row] {
	groups := orderedmap.NewOrderedMap[string, []database.Row]()
	for _, row := range rows {
		key := rowKey(row, keyCols)
		existing, _ := groups.Get(key)
		groups.Set(key, append(existing, row))
	}
	return groups
}

func rowKey(row database.Row, keyCols []string) string {
	parts := make([]string, len(keyCols))
	for i, col := range keyCols {
		parts[i] = row.String(col)
	}
	return strings.Join(parts, "\x1f")
}

// joinTexts expands every base row into one row per matching per-language
// text row, text columns winning over base columns. A base row without texts
// is kept as it is.
func joinTexts(base, texts []database.Row, keyCols ...string) []database.Row {
	byKey := newGroupedRows(texts, keyCols...)
	out := make([]database.Row, 0, len(base))
	for _, b := range base {
		matches := byKey.get(rowKey(b, keyCols))
		if len(matches) == 0 {
			out = append(out, b)
			continue
		}
		for _, t := range matches {
			merged := make(database.Row, len(b)+len(t))
			for k, v := range b {
				merged[k] = v
			}
			for k, v := range t {
				merged[k] = v
			}
			out = append(out, merged)
		}
	}
	return out
}

// joinCols joins the non-blank values of cols, or returns nil.
func joinCols(r database.Row, sep string, cols ...string) *string {
	var parts []string
	for _, c := range cols {
		if v := r.Nullable(c); v != nil {
			parts = append(parts, *v)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, sep)
	return &s
}

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
}

// mimeType guesses from the file extension; legacy pictures are mostly JPEG.
func mimeType(p string) string {
	if m, ok := mimeTypes[strings.ToLower(path.Ext(p))]; ok {
		return m
	}
	return "image/jpeg"
}

// originalName is the last path segment of a legacy picture path.
func originalName(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_"), "_")
}

func strPtr(s string) *string {
	return &s
}

func intPtr(n int) *int {
	return &n
}

// truncPtr truncates a nullable value and reports whether it was cut.
func truncPtr(s *string, max int) (*string, bool) {
	if s == nil {
		return nil, false
	}
	t := types.Truncate(*s, max)
	return &t, t != *s
}
