// Package tracker maps backward-compatibility tokens to target-system ids for
// the lifetime of one migration process.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Category groups tracked entities by target kind.
type Category string

const (
	CategoryContext     Category = "context"
	CategoryCollection  Category = "collection"
	CategoryProject     Category = "project"
	CategoryPartner     Category = "partner"
	CategoryItem        Category = "item"
	CategoryImage       Category = "image"
	CategoryLanguage    Category = "language"
	CategoryCountry     Category = "country"
	// CategoryTranslation covers per-language variants written after their owner.
	CategoryTranslation Category = "translation"
	CategoryLink        Category = "link"
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	CategoryContext,
	CategoryCollection,
	CategoryProject,
	CategoryPartner,
	CategoryItem,
	CategoryImage,
	CategoryLanguage,
	CategoryCountry,
	CategoryTranslation,
	CategoryLink,
}

// ErrDuplicateRegistration is returned when a token is already mapped to a
// different target id. It signals a logic error in the caller.
var ErrDuplicateRegistration = errors.New("duplicate registration")

// Entity is one resolved mapping.
type Entity struct {
	Token     string
	TargetID  string
	Category  Category
	CreatedAt time.Time
}

// Lookup finds an already persisted target entity by its backward-compatibility token.
type Lookup interface {
	FindByBackwardCompatibility(ctx context.Context, category Category, token string) (id string, found bool, err error)
}

// Tracker is the in-memory identity map. It is safe for concurrent use, but
// callers must still serialize logically dependent registrations.
type Tracker struct {
	mu       sync.RWMutex
	entities map[string]Entity
	metadata map[string]any

	lookup Lookup
	misses *cache.Cache
	now    func() time.Time
}

// New creates a Tracker. lookup may be nil, in which case Resolve only
// consults local state. missTTL bounds how long a failed remote lookup is
// remembered; zero disables miss caching.
func New(lookup Lookup, missTTL time.Duration) *Tracker {
	t := &Tracker{
		entities: make(map[string]Entity),
		metadata: make(map[string]any),
		lookup:   lookup,
		now:      time.Now,
	}
	if missTTL > 0 {
		t.misses = cache.New(missTTL, 2*missTTL)
	}
	return t
}

// Exists reports whether the token is registered locally.
func (t *Tracker) Exists(token string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entities[token]
	return ok
}

// GetID returns the target id registered for token.
func (t *Tracker) GetID(token string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entities[token]
	if !ok {
		return "", false
	}
	return e.TargetID, true
}

// Get returns the full entity registered for token.
func (t *Tracker) Get(token string) (Entity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entities[token]
	return e, ok
}

// Register records a new mapping. Registering the same id twice is a no-op;
// registering a different id for a known token fails with ErrDuplicateRegistration.
func (t *Tracker) Register(e Entity) error {
	if e.Token == "" {
		return fmt.Errorf("register: empty token")
	}
	if e.TargetID == "" {
		return fmt.Errorf("register %q: empty target id", e.Token)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entities[e.Token]; ok {
		if existing.TargetID == e.TargetID {
			return nil
		}
		return fmt.Errorf("%w: token %q already maps to %s, refusing %s",
			ErrDuplicateRegistration, e.Token, existing.TargetID, e.TargetID)
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.now()
	}
	t.entities[e.Token] = e
	if t.misses != nil {
		t.misses.Delete(e.Token)
	}
	return nil
}

// ByCategory returns all entities of a category ordered by token.
func (t *Tracker) ByCategory(category Category) []Entity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Entity
	for _, e := range t.entities {
		if e.Category == category {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Count returns the number of registered entities.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entities)
}

// CountByCategory returns per-category entity counts.
func (t *Tracker) CountByCategory() map[Category]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	counts := make(map[Category]int)
	for _, e := range t.entities {
		counts[e.Category]++
	}
	return counts
}

// Resolve returns the target id for token, consulting the target system when
// the token is not known locally. A remote hit is registered before returning.
// found is false when neither local state nor the lookup knows the token.
func (t *Tracker) Resolve(ctx context.Context, token string, category Category) (string, bool, error) {
	if id, ok := t.GetID(token); ok {
		return id, true, nil
	}
	if t.lookup == nil {
		return "", false, nil
	}
	if t.misses != nil {
		if _, missed := t.misses.Get(token); missed {
			return "", false, nil
		}
	}

	id, found, err := t.lookup.FindByBackwardCompatibility(ctx, category, token)
	if err != nil {
		return "", false, fmt.Errorf("resolve %q: %w", token, err)
	}
	if !found {
		if t.misses != nil {
			t.misses.SetDefault(token, struct{}{})
		}
		return "", false, nil
	}

	if err := t.Register(Entity{Token: token, TargetID: id, Category: category}); err != nil {
		return "", false, err
	}
	return id, true, nil
}

// ExistsAsync is the remote-aware variant of Exists.
func (t *Tracker) ExistsAsync(ctx context.Context, token string, category Category) (bool, error) {
	_, found, err := t.Resolve(ctx, token, category)
	return found, err
}

// GetMetadata returns a metadata value.
func (t *Tracker) GetMetadata(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.metadata[key]
	return v, ok
}

// SetMetadata stores a metadata value.
func (t *Tracker) SetMetadata(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metadata[key] = value
}

func sequenceKey(parentID string) string {
	return "display_order:" + parentID
}

// Sequence returns the current display-order counter of a parent (0 if unset).
func (t *Tracker) Sequence(parentID string) int {
	v, ok := t.GetMetadata(sequenceKey(parentID))
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}

// NextSequence increments and returns the display-order counter of a parent.
func (t *Tracker) NextSequence(parentID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := sequenceKey(parentID)
	n, _ := t.metadata[key].(int)
	n++
	t.metadata[key] = n
	return n
}
