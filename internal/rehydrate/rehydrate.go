// Package rehydrate reloads already persisted target entities into the
// identity tracker so a later phase can run without the earlier ones having
// run in the same process.
package rehydrate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/legacymigrate/internal/bcref"
	"github.com/dbsmedya/legacymigrate/internal/logger"
	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// Key names one loadable dependency.
type Key string

const (
	KeyLanguage        Key = "language"
	KeyCountry         Key = "country"
	KeyDefaultContext  Key = "default_context"
	KeyProject         Key = "project"
	KeyPartner         Key = "partner"
	KeyObject          Key = "object"
	KeyMonument        Key = "monument"
	KeyMonumentDetail  Key = "monument_detail"
	KeyPicture         Key = "picture"
	KeyItemTranslation Key = "item_translation"
	KeyItemLink        Key = "item_link"
	KeyTHG             Key = "thg"
)

// DefaultPageSize is used when the configured page size is not positive.
const DefaultPageSize = 100

// source is one paginated index feeding a category.
type source struct {
	resource target.Resource
	typ      string
	category tracker.Category
}

var sources = map[Key][]source{
	KeyLanguage: {{resource: target.ResourceLanguage, category: tracker.CategoryLanguage}},
	KeyCountry:  {{resource: target.ResourceCountry, category: tracker.CategoryCountry}},
	KeyProject: {
		{resource: target.ResourceContext, category: tracker.CategoryContext},
		{resource: target.ResourceCollection, category: tracker.CategoryCollection},
		{resource: target.ResourceProject, category: tracker.CategoryProject},
	},
	KeyPartner:        {{resource: target.ResourcePartner, category: tracker.CategoryPartner}},
	KeyObject:         {{resource: target.ResourceItem, typ: "object", category: tracker.CategoryItem}},
	KeyMonument:       {{resource: target.ResourceItem, typ: "monument", category: tracker.CategoryItem}},
	KeyMonumentDetail: {{resource: target.ResourceItem, typ: "detail", category: tracker.CategoryItem}},
	KeyPicture: {
		{resource: target.ResourceItem, typ: "picture", category: tracker.CategoryItem},
		{resource: target.ResourceItemImage, category: tracker.CategoryImage},
		{resource: target.ResourcePartnerImage, category: tracker.CategoryImage},
		{resource: target.ResourcePartnerLogo, category: tracker.CategoryImage},
	},
	KeyItemTranslation: {{resource: target.ResourceItemTranslation, category: tracker.CategoryTranslation}},
	KeyItemLink:        {{resource: target.ResourceItemItemLink, category: tracker.CategoryLink}},
	KeyTHG:             {{resource: target.ResourceCollection, category: tracker.CategoryCollection}},
}

// Keys lists every loadable key.
func Keys() []Key {
	return []Key{
		KeyLanguage, KeyCountry, KeyDefaultContext, KeyProject, KeyPartner,
		KeyObject, KeyMonument, KeyMonumentDetail, KeyPicture, KeyItemTranslation, KeyItemLink,
		KeyTHG,
	}
}

// Rehydrator loads target state into a tracker.
type Rehydrator struct {
	api      target.Reader
	tracker  *tracker.Tracker
	pageSize int
	log      *logger.Logger

	mu     sync.Mutex
	loaded map[Key]int
}

// New creates a Rehydrator.
func New(api target.Reader, t *tracker.Tracker, pageSize int, log *logger.Logger) *Rehydrator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Rehydrator{
		api:      api,
		tracker:  t,
		pageSize: pageSize,
		log:      log,
		loaded:   make(map[Key]int),
	}
}

// Loaded reports whether key was loaded by this Rehydrator, and how many
// entities it registered.
func (r *Rehydrator) Loaded(key Key) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.loaded[key]
	return n, ok
}

// LoadDependency fetches one dependency and registers every record that has a
// backward-compatibility token. Already known tokens are left alone, so
// calling it twice is harmless. It returns the number of new registrations.
func (r *Rehydrator) LoadDependency(ctx context.Context, key Key) (int, error) {
	log := r.log.WithFields(map[string]interface{}{"dependency": string(key)})

	var (
		n   int
		err error
	)
	if key == KeyDefaultContext {
		n, err = r.loadDefaultContext(ctx)
	} else {
		srcs, ok := sources[key]
		if !ok {
			return 0, fmt.Errorf("unknown dependency %q", key)
		}
		for _, src := range srcs {
			var added int
			added, err = r.loadSource(ctx, src)
			n += added
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		return n, fmt.Errorf("rehydrate %s: %w", key, err)
	}

	r.mu.Lock()
	r.loaded[key] += n
	r.mu.Unlock()

	log.Infow("Dependency rehydrated", "registered", n)
	return n, nil
}

// LoadAll loads independent keys concurrently. Each key is loaded once.
func (r *Rehydrator) LoadAll(ctx context.Context, keys ...Key) error {
	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[Key]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		g.Go(func() error {
			_, err := r.LoadDependency(gctx, key)
			return err
		})
	}
	return g.Wait()
}

func (r *Rehydrator) loadSource(ctx context.Context, src source) (int, error) {
	registered := 0
	for page := 1; ; page++ {
		recs, err := r.api.List(ctx, src.resource, target.ListOptions{Page: page, PerPage: r.pageSize, Type: src.typ})
		if err != nil {
			if errors.Is(err, target.ErrNotFound) {
				r.log.Infow("Optional dependency absent, treating as empty", "resource", string(src.resource), "type", src.typ)
				return registered, nil
			}
			return registered, err
		}

		for _, rec := range recs {
			ok, err := r.register(rec.BackwardCompatibility, rec.ID, src.category)
			if err != nil {
				return registered, err
			}
			if ok {
				registered++
			}
		}

		if len(recs) < r.pageSize {
			return registered, nil
		}
	}
}

func (r *Rehydrator) loadDefaultContext(ctx context.Context) (int, error) {
	rec, found, err := r.api.DefaultContext(ctx)
	if err != nil {
		return 0, err
	}
	if !found {
		r.log.Infow("No default context in target yet")
		return 0, nil
	}
	ok, err := r.register(bcref.DefaultContextToken, rec.ID, tracker.CategoryContext)
	if err != nil || !ok {
		return 0, err
	}
	return 1, nil
}

func (r *Rehydrator) register(token, id string, category tracker.Category) (bool, error) {
	if token == "" {
		return false, nil
	}
	if id == "" {
		return false, fmt.Errorf("%w: %s record %q has no id", target.ErrMalformedResponse, category, token)
	}
	if r.tracker.Exists(token) {
		return false, nil
	}
	if err := r.tracker.Register(tracker.Entity{Token: token, TargetID: id, Category: category}); err != nil {
		// lost a race with a concurrent loader for the same token
		if errors.Is(err, tracker.ErrDuplicateRegistration) {
			r.log.Warnw("Token already registered with a different id", "token", token, "id", id)
			return false, nil
		}
		return false, err
	}
	return true, nil
}
