package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/legacymigrate/internal/database"
)

func TestLanguageID(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"en", "eng", false},
		{" FR ", "fra", false},
		{"ch", "zho", false},
		{"zh", "zho", false},
		{"eng", "eng", false},
		{"xx", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := LanguageID(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCountryID(t *testing.T) {
	for in, want := range map[string]string{
		"jo":  "jor",
		"uk":  "gbr",
		"ab":  "alb",
		"sw":  "che",
		"pd":  "zzzpd",
		"EGY": "egy",
	} {
		got, err := CountryID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := CountryID("qq")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown country code "qq"`)
}

func TestGroupRows(t *testing.T) {
	rows := []database.Row{
		objectRow(1, "en", "Bowl"),
		objectRow(2, "en", "Lamp"),
		objectRow(1, "fr", "Bol"),
	}
	groups := groupRows(rows, "project_id", "country", "museum_id", "number")
	require.Equal(t, 2, groups.Len())

	keys := groups.Keys()
	first, _ := groups.Get(keys[0])
	assert.Len(t, first, 2)
	assert.Equal(t, "Bol", first[1].String("name"))
	second, _ := groups.Get(keys[1])
	assert.Equal(t, "Lamp", second[0].String("name"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "light_and_glass", slugify("  Light and Glass "))
	assert.Equal(t, "water", slugify("water"))
	assert.Equal(t, "a_b_c", slugify("A--b//C!"))
	assert.Equal(t, "", slugify("***"))
}

func TestTruncPtr(t *testing.T) {
	got, cut := truncPtr(nil, 3)
	assert.Nil(t, got)
	assert.False(t, cut)

	got, cut = truncPtr(strPtr("abc"), 3)
	assert.Equal(t, "abc", *got)
	assert.False(t, cut)

	got, cut = truncPtr(strPtr("çàéü"), 2)
	assert.Equal(t, "çà", *got)
	assert.True(t, cut)
}

func TestPicturePathHelpers(t *testing.T) {
	assert.Equal(t, "image/png", mimeType("logos/jm.PNG"))
	assert.Equal(t, "image/jpeg", mimeType("objects/1"))
	assert.Equal(t, "image/tiff", mimeType("a.tif"))

	assert.Equal(t, "1.jpg", originalName(`details\ISL\1.jpg`))
	assert.Equal(t, "x.jpg", originalName(" x.jpg "))
	assert.Equal(t, "", originalName("  "))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Bowl with inscription", stripHTML(" <b>Bowl</b> with <i>inscription</i> "))
	assert.Equal(t, "plain", stripHTML("plain"))
}

func TestPlaceholderID(t *testing.T) {
	id := placeholderID()
	assert.True(t, IsPlaceholder(id))
	assert.NotEqual(t, id, placeholderID())
	assert.False(t, IsPlaceholder("item-1"))
}

func TestThemeItemReference(t *testing.T) {
	tests := []struct {
		name string
		row  database.Row
		want string
	}{
		{
			"object",
			database.Row{"mwnf3_object_project_id": "ISL", "mwnf3_object_country_id": "jo",
				"mwnf3_object_partner_id": "M1", "mwnf3_object_item_id": 1},
			"mwnf3:objects:ISL:jo:M1:1",
		},
		{
			"partial object falls through to monument detail",
			database.Row{"mwnf3_object_project_id": "ISL", "mwnf3_object_country_id": nil,
				"mwnf3_monument_detail_project_id": "ISL", "mwnf3_monument_detail_country_id": "eg",
				"mwnf3_monument_detail_partner_id": "I1", "mwnf3_monument_detail_item_id": 1,
				"mwnf3_monument_detail_detail_id": 2},
			"mwnf3:monument_details:ISL:eg:I1:1:2",
		},
		{
			"sharing history",
			database.Row{"sh_monument_project_id": "SH", "sh_monument_country_id": "tr", "sh_monument_item_id": 4},
			"mwnf3_sharing_history:sh_monuments:SH:tr:4",
		},
		{"none", database.Row{"gallery_id": 1, "thg_item_id": 3}, ""},
		{"blank", database.Row{"mwnf3_object_project_id": "", "mwnf3_object_country_id": "jo",
			"mwnf3_object_partner_id": "M1", "mwnf3_object_item_id": 1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, themeItemReference(tt.row))
		})
	}
}

func TestOrderThemes(t *testing.T) {
	theme := func(g, id, parent any) database.Row {
		return database.Row{"gallery_id": g, "theme_id": id, "parent_theme_id": parent}
	}
	ids := func(rows []database.Row) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.String("gallery_id") + "/" + r.String("theme_id")
		}
		return out
	}

	rows := []database.Row{
		theme(1, 3, 2),
		theme(1, 2, 1),
		theme(2, 1, 0),
		theme(1, 1, nil),
		theme(1, 9, 42), // parent not in the data
	}
	assert.Equal(t, []string{"2/1", "1/1", "1/9", "1/2", "1/3"}, ids(orderThemes(rows)))

	cycle := []database.Row{theme(1, 1, 2), theme(1, 2, 1)}
	assert.Equal(t, []string{"1/1", "1/2"}, ids(orderThemes(cycle)))
}

func TestResult(t *testing.T) {
	r := NewResult(UnitObject)
	r.Imported = 3
	r.AddError(errors.New("first"))
	r.AddError(errors.New("second"))
	r.AddWarning("missing %s", "translation")

	other := NewResult(UnitObject)
	other.Skipped = 2
	other.AddError(errors.New("third"))
	r.Merge(other)
	r.Merge(nil)
	r.Finalize()

	assert.False(t, r.Success)
	assert.Equal(t, 2, r.Skipped)
	assert.Equal(t, []string{"first", "second"}, r.FirstErrors(2))
	assert.Len(t, r.FirstErrors(0), 3)
	assert.Equal(t, []string{"missing translation"}, r.Warnings)
	assert.True(t, strings.HasPrefix(r.Summary(), "object FAILED: imported=3 skipped=2 errors=3 warnings=1"))

	ok := NewResult(UnitProject).Finalize()
	assert.True(t, ok.Success)
	assert.Contains(t, ok.Summary(), "project OK")
}

func TestJoinTexts(t *testing.T) {
	base := []database.Row{
		{"project_id": "SH1", "number": 1, "name": "base name", "inventory_id": "INV-1"},
		{"project_id": "SH1", "number": 2, "name": "untranslated"},
	}
	texts := []database.Row{
		{"project_id": "SH1", "number": 1, "lang": "en", "name": "Astrolabe"},
		{"project_id": "SH1", "number": 1, "lang": "fr", "name": "Astrolabe (fr)"},
		{"project_id": "SH9", "number": 1, "lang": "en", "name": "orphan"},
	}

	rows := joinTexts(base, texts, "project_id", "number")
	require.Len(t, rows, 3)
	assert.Equal(t, "Astrolabe", rows[0].String("name"))
	assert.Equal(t, "INV-1", rows[0].String("inventory_id"), "base columns carried over")
	assert.Equal(t, "fr", rows[1].String("lang"))
	assert.Equal(t, "untranslated", rows[2].String("name"))
	assert.True(t, rows[2].IsNull("lang"))
	assert.Equal(t, "base name", base[0].String("name"), "base rows are not modified")
}

func TestJoinCols(t *testing.T) {
	r := database.Row{"description": "First.", "description2": "  ", "history": "Second.", "empty": nil}

	got := joinCols(r, "\n\n", "description", "description2", "history")
	require.NotNil(t, got)
	assert.Equal(t, "First.\n\nSecond.", *got)
	assert.Nil(t, joinCols(r, "; ", "description2", "empty", "absent"))
}
