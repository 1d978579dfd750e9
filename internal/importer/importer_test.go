package importer

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/rehydrate"
	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/target/targettest"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fromTable = regexp.MustCompile(`(?i)FROM\s+([a-z0-9_]+\.[a-z0-9_]+)`)

// fakeLegacy serves canned rows per schema.table. Tables that are not
// present behave like a missing MySQL table.
type fakeLegacy struct {
	mu      sync.Mutex
	tables  map[string][]database.Row
	errs    map[string]error
	queries []string
}

func newFakeLegacy(tables map[string][]database.Row) *fakeLegacy {
	return &fakeLegacy{tables: tables, errs: make(map[string]error)}
}

func (f *fakeLegacy) Query(_ context.Context, q string, _ ...any) ([]database.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	m := fromTable.FindStringSubmatch(q)
	if m == nil {
		return nil, fmt.Errorf("unexpected query %q", q)
	}
	if err := f.errs[m[1]]; err != nil {
		return nil, err
	}
	rows, ok := f.tables[m[1]]
	if !ok {
		return nil, fmt.Errorf("%w: Error 1146: Table '%s' doesn't exist", database.ErrSchemaUnavailable, m[1])
	}
	// units may annotate rows they sample
	out := make([]database.Row, len(rows))
	for i, r := range rows {
		c := make(database.Row, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out, nil
}

type harness struct {
	legacy  *fakeLegacy
	target  *targettest.Fake
	tracker *tracker.Tracker
	ctx     *Context
}

func newHarness(tables map[string][]database.Row, mode Mode) *harness {
	fake := targettest.New()
	h := &harness{legacy: newFakeLegacy(tables), target: fake}
	h.reset()
	h.ctx.Mode = mode
	return h
}

// reset simulates a new process against the same legacy source and target.
func (h *harness) reset() {
	h.tracker = tracker.New(h.target, 0)
	mode := ModeNormal
	if h.ctx != nil {
		mode = h.ctx.Mode
	}
	h.ctx = &Context{
		Legacy:            h.legacy,
		Target:            h.target,
		Tracker:           h.tracker,
		Mode:              mode,
		ErrorDisplayLimit: 5,
	}
}

func (h *harness) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(h.ctx, rehydrate.New(h.target, h.tracker, 2, nil))
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

// entityWrites counts writes that create an entity or translation.
// Associations are re-set on every run and left out.
func entityWrites(f *targettest.Fake) int {
	return f.WriteCount() - len(f.Writes("attach-items")) - len(f.Writes("partner-monument"))
}

func itemsByName(f *targettest.Fake) map[string]target.ItemInput {
	out := make(map[string]target.ItemInput)
	for _, w := range f.Writes(target.ResourceItem) {
		in := w.Payload.(target.ItemInput)
		out[in.InternalName] = in
	}
	return out
}

func objectRow(number int, lang, name string) database.Row {
	return database.Row{
		"project_id":       "ISL",
		"country":          "jo",
		"museum_id":        "M1",
		"number":           number,
		"lang":             lang,
		"name":             name,
		"name2":            nil,
		"description":      "Description of " + name,
		"inventory_id":     fmt.Sprintf("INV-%d", number),
		"working_number":   nil,
		"date_description": "12th century",
		"dynasty":          "Ayyubid",
	}
}

func objectPictureRow(number int, typ string, image int) database.Row {
	return database.Row{
		"project_id":   "ISL",
		"country":      "jo",
		"museum_id":    "M1",
		"number":       number,
		"lang":         "en",
		"type":         typ,
		"image_number": image,
		"path":         fmt.Sprintf("objects/ISL/jo/M1/%d_%s%d.jpg", number, typ, image),
		"caption":      fmt.Sprintf("Caption %d", image),
		"copyright":    "MWNF",
	}
}

// fixture is a small but complete legacy database.
func fixture() map[string][]database.Row {
	return map[string][]database.Row{
		"mwnf3.projects": {
			{"project_id": "ISL", "name": "Discover Islamic Art", "launchdate": "2005-03-01", "active": 1},
		},
		"mwnf3.projectnames": {
			{"project_id": "ISL", "lang": "en", "name": "Discover Islamic Art"},
			{"project_id": "ISL", "lang": "fr", "name": "Découvrir l'art islamique"},
		},
		"mwnf3.museums": {
			{"museum_id": "M1", "country": "jo", "name": "Jordan Museum", "city": "Amman", "url": "https://jm.example",
				"logo": "logos/jm.png", "logo1": nil, "logo2": nil, "logo3": nil,
				"mon_project_id": "ISL", "mon_country_id": "eg", "mon_institution_id": "I1", "mon_monument_id": 1,
				"mon_lang_id": "en"},
		},
		"mwnf3.museumnames": {
			{"museum_id": "M1", "country": "jo", "lang": "en", "name": "The Jordan Museum"},
		},
		"mwnf3.institutions": {
			{"institution_id": "I1", "country": "eg", "name": "Supreme Council", "logo": nil, "logo1": nil, "logo2": nil},
		},
		"mwnf3.institutionnames": {},
		"mwnf3.objects": {
			objectRow(1, "en", "Bowl"),
			objectRow(1, "fr", "Bol"),
			objectRow(2, "en", "Lamp"),
		},
		"mwnf3.monuments": {
			{"project_id": "ISL", "country": "eg", "institution_id": "I1", "number": 1, "lang": "en",
				"name": "Mosque of Ibn Tulun", "description": "A mosque."},
		},
		"mwnf3.monument_details": {
			{"project_id": "ISL", "country_id": "eg", "institution_id": "I1", "monument_id": 1, "detail_id": 1,
				"lang_id": "en", "name": "Minaret", "description": "Spiral minaret."},
		},
		"mwnf3.objects_objects": {
			{"o1_project_id": "ISL", "o1_country_id": "jo", "o1_museum_id": "M1", "o1_number": 1,
				"o2_project_id": "ISL", "o2_country_id": "jo", "o2_museum_id": "M1", "o2_number": 2},
		},
		"mwnf3.objects_monuments": {
			{"o1_project_id": "ISL", "o1_country_id": "jo", "o1_museum_id": "M1", "o1_number": 1,
				"m1_project_id": "ISL", "m1_country_id": "eg", "m1_institution_id": "I1", "m1_number": 1},
		},
		"mwnf3.monuments_monuments": {},
		"mwnf3.objects_pictures": {
			objectPictureRow(1, "", 1),
			objectPictureRow(1, "", 2),
		},
		"mwnf3.monument_detail_pictures": {
			{"project_id": "ISL", "country_id": "eg", "institution_id": "I1", "monument_id": 1, "detail_id": 1,
				"picture_id": 1, "lang_id": "en", "path": "details/1.jpg", "caption": "Minaret"},
		},
		"mwnf3.museums_pictures": {
			{"museum_id": "M1", "country": "jo", "image_number": 1, "path": "museums/jm1.jpg", "caption": nil},
		},
		"mwnf3_thematic_gallery.thg_gallery": {
			{"gallery_id": 1, "project_id": "ISL", "name": "Water", "link": "water", "sort_order": 1, "status": "A"},
			{"gallery_id": 2, "project_id": "EXH", "name": "Light and Glass", "link": nil, "sort_order": 2, "status": "A"},
		},
		"mwnf3_thematic_gallery.theme": {
			{"gallery_id": 1, "theme_id": 2, "parent_theme_id": 1, "display_order": 1, "name": "Fountains"},
			{"gallery_id": 1, "theme_id": 1, "parent_theme_id": nil, "display_order": 1, "name": "Water in the city"},
		},
		"mwnf3_thematic_gallery.theme_i18n": {
			{"gallery_id": 1, "theme_id": 1, "language_id": "en", "title": "Water in the city", "quote": nil, "presentation": "Intro"},
		},
		"mwnf3_thematic_gallery.thg_gallery_mwnf3_objects": {
			{"gallery_id": 1, "objects_project_id": "ISL", "objects_country": "jo", "objects_museum_id": "M1", "objects_number": 1},
			{"gallery_id": 1, "objects_project_id": "ISL", "objects_country": "jo", "objects_museum_id": "M1", "objects_number": 1},
		},
		"mwnf3_thematic_gallery.theme_item": {
			{"gallery_id": 1, "theme_id": 2, "item_id": 1,
				"mwnf3_monument_project_id": "ISL", "mwnf3_monument_country_id": "eg",
				"mwnf3_monument_partner_id": "I1", "mwnf3_monument_item_id": 1},
			{"gallery_id": 1, "theme_id": 2, "item_id": 2},
			{"gallery_id": 1, "theme_id": 2, "item_id": 3,
				"sh_object_project_id": "SH1", "sh_object_country_id": "jo", "sh_object_item_id": 1},
		},
		"mwnf3_sharing_history.sh_projects": {
			{"project_id": "SH1", "name": "Sharing History", "addeddate": "2009-06-01", "show": "Y"},
		},
		"mwnf3_sharing_history.sh_project_names": {
			{"project_id": "SH1", "lang": "en", "title": "<b>Sharing History</b>", "short_introduction": "Arab-Ottoman-European relations"},
		},
		"mwnf3.partner_sh_partners": {},
		"mwnf3_sharing_history.sh_partners": {
			{"partners_id": "SHP1", "country": "jo", "partner_category": "Museum", "name": "Sharing Museum",
				"logo": "sh/logos/shp1.png", "logo1": nil, "logo2": nil, "logo3": nil},
		},
		"mwnf3_sharing_history.sh_partner_names": {
			{"partners_id": "SHP1", "lang": "en", "name": "The Sharing Museum", "opening_hours": "9-17"},
		},
		"mwnf3_sharing_history.sh_objects": {
			{"project_id": "SH1", "country": "jo", "number": 1, "partners_id": "SHP1", "inventory_id": "SH-1"},
		},
		"mwnf3_sharing_history.sh_objects_texts": {
			{"project_id": "SH1", "country": "jo", "number": 1, "lang": "en", "name": "Astrolabe",
				"description": "Brass astrolabe.", "second_name": "Planispheric astrolabe"},
		},
		"mwnf3_sharing_history.sh_monuments": {
			{"project_id": "SH1", "country": "eg", "number": 1, "partners_id": nil},
		},
		"mwnf3_sharing_history.sh_monument_texts": {
			{"project_id": "SH1", "country": "eg", "number": 1, "lang": "en", "name": "Citadel", "history": "Built in 1176."},
		},
		"mwnf3_sharing_history.sh_monument_details": {
			{"project_id": "SH1", "country": "eg", "number": 1, "detail_id": 1},
		},
		"mwnf3_sharing_history.sh_monument_detail_texts": {
			{"project_id": "SH1", "country": "eg", "number": 1, "detail_id": 1, "lang": "en", "name": "Gate", "description": "Main gate."},
		},
		"mwnf3_sharing_history.sh_monument_images": {
			{"project_id": "SH1", "country": "eg", "number": 1, "type": "", "image_number": 1, "path": "sh/citadel1.jpg"},
		},
		"mwnf3_sharing_history.sh_monument_image_texts": {
			{"project_id": "SH1", "country": "eg", "number": 1, "type": "", "image_number": 1, "lang": "en",
				"caption": "Citadel from the south", "photographer": "A. Photographer"},
		},
		"mwnf3_sharing_history.sh_monument_detail_pictures": {
			{"project_id": "SH1", "country": "eg", "number": 1, "detail_id": 1, "picture_id": 1, "path": "sh/gate1.jpg"},
		},
	}
}
