// Package targettest provides an in-memory target API for tests.
package targettest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// Write is one recorded write call.
type Write struct {
	Resource target.Resource
	ID       string
	Payload  any
}

// Fake implements target.API in memory. Written entities become visible to
// List and FindByBackwardCompatibility, so a second run against the same Fake
// behaves like a rerun against a populated target.
type Fake struct {
	mu          sync.Mutex
	seq         int
	records     map[target.Resource][]target.Record
	writes      []Write
	attachments map[string][]string
	monuments   map[string]string

	// Fail, when set, is consulted before every write; a non-nil error is returned as-is.
	Fail func(resource target.Resource, payload any) error
	// ListErr, when set, is returned by List for the given resource.
	ListErr map[target.Resource]error
}

var _ target.API = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		records:     make(map[target.Resource][]target.Record),
		attachments: make(map[string][]string),
		monuments:   make(map[string]string),
		ListErr:     make(map[target.Resource]error),
	}
}

// Seed stores a pre-existing record.
func (f *Fake) Seed(resource target.Resource, rec target.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[resource] = append(f.records[resource], rec)
}

// Writes returns all recorded writes to resource, in call order.
func (f *Fake) Writes(resource target.Resource) []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Write
	for _, w := range f.writes {
		if w.Resource == resource {
			out = append(out, w)
		}
	}
	return out
}

// WriteCount returns the number of writes across all resources.
func (f *Fake) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// Attached returns item ids attached to a collection.
func (f *Fake) Attached(collectionID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.attachments[collectionID]...)
}

func (f *Fake) store(resource target.Resource, payload any, rec target.Record) (string, error) {
	if f.Fail != nil {
		if err := f.Fail(resource, payload); err != nil {
			return "", err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	rec.ID = fmt.Sprintf("%s-%d", resource, f.seq)
	f.records[resource] = append(f.records[resource], rec)
	f.writes = append(f.writes, Write{Resource: resource, ID: rec.ID, Payload: payload})
	return rec.ID, nil
}

func (f *Fake) WriteContext(_ context.Context, in target.ContextInput) (string, error) {
	return f.store(target.ResourceContext, in, target.Record{
		BackwardCompatibility: in.BackwardCompatibility, InternalName: in.InternalName, IsDefault: in.IsDefault,
	})
}

func (f *Fake) WriteCollection(_ context.Context, in target.CollectionInput) (string, error) {
	return f.store(target.ResourceCollection, in, target.Record{
		BackwardCompatibility: in.BackwardCompatibility, InternalName: in.InternalName, Type: in.Type,
	})
}

func (f *Fake) WriteCollectionTranslation(_ context.Context, in target.CollectionTranslationInput) (string, error) {
	return f.store("collection-translation", in, target.Record{BackwardCompatibility: in.BackwardCompatibility})
}

func (f *Fake) WriteProject(_ context.Context, in target.ProjectInput) (string, error) {
	return f.store(target.ResourceProject, in, target.Record{
		BackwardCompatibility: in.BackwardCompatibility, InternalName: in.InternalName,
	})
}

func (f *Fake) WritePartner(_ context.Context, in target.PartnerInput) (string, error) {
	return f.store(target.ResourcePartner, in, target.Record{
		BackwardCompatibility: in.BackwardCompatibility, InternalName: in.InternalName, Type: in.Type,
	})
}

func (f *Fake) WritePartnerTranslation(_ context.Context, in target.PartnerTranslationInput) (string, error) {
	return f.store("partner-translation", in, target.Record{BackwardCompatibility: in.BackwardCompatibility})
}

func (f *Fake) WriteItem(_ context.Context, in target.ItemInput) (string, error) {
	return f.store(target.ResourceItem, in, target.Record{
		BackwardCompatibility: in.BackwardCompatibility, InternalName: in.InternalName, Type: in.Type,
	})
}

func (f *Fake) WriteItemTranslation(_ context.Context, in target.ItemTranslationInput) (string, error) {
	return f.store(target.ResourceItemTranslation, in, target.Record{BackwardCompatibility: in.BackwardCompatibility})
}

func (f *Fake) WriteItemImage(_ context.Context, in target.ItemImageInput) (string, error) {
	return f.store(target.ResourceItemImage, in, target.Record{BackwardCompatibility: in.BackwardCompatibility})
}

func (f *Fake) WritePartnerImage(_ context.Context, in target.PartnerImageInput) (string, error) {
	return f.store(target.ResourcePartnerImage, in, target.Record{BackwardCompatibility: in.BackwardCompatibility})
}

func (f *Fake) WritePartnerLogo(_ context.Context, in target.PartnerLogoInput) (string, error) {
	return f.store(target.ResourcePartnerLogo, in, target.Record{BackwardCompatibility: in.BackwardCompatibility})
}

func (f *Fake) WriteItemItemLink(_ context.Context, in target.ItemItemLinkInput) (string, error) {
	return f.store(target.ResourceItemItemLink, in, target.Record{BackwardCompatibility: in.BackwardCompatibility})
}

func (f *Fake) AttachItemsToCollection(_ context.Context, collectionID string, itemIDs []string) error {
	if f.Fail != nil {
		if err := f.Fail("attach-items", itemIDs); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachments[collectionID] = append(f.attachments[collectionID], itemIDs...)
	f.writes = append(f.writes, Write{Resource: "attach-items", ID: collectionID, Payload: itemIDs})
	return nil
}

// SetPartnerMonument records the update as a "partner-monument" write keyed
// by partner id.
func (f *Fake) SetPartnerMonument(_ context.Context, partnerID, monumentItemID string) error {
	if f.Fail != nil {
		if err := f.Fail("partner-monument", monumentItemID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monuments[partnerID] = monumentItemID
	f.writes = append(f.writes, Write{Resource: "partner-monument", ID: partnerID, Payload: monumentItemID})
	return nil
}

// PartnerMonument returns the monument item id last set on a partner.
func (f *Fake) PartnerMonument(partnerID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.monuments[partnerID]
}

func (f *Fake) List(_ context.Context, resource target.Resource, opts target.ListOptions) ([]target.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ListErr[resource]; err != nil {
		return nil, err
	}

	var all []target.Record
	for _, r := range f.records[resource] {
		if opts.Type == "" || r.Type == opts.Type {
			all = append(all, r)
		}
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(all) {
		return nil, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return append([]target.Record(nil), all[start:end]...), nil
}

func (f *Fake) FindByBackwardCompatibility(_ context.Context, category tracker.Category, token string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records[target.ResourceFor(category)] {
		if r.BackwardCompatibility == token {
			return r.ID, true, nil
		}
	}
	return "", false, nil
}

func (f *Fake) DefaultContext(_ context.Context) (target.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records[target.ResourceContext] {
		if r.IsDefault {
			return r, true, nil
		}
	}
	return target.Record{}, false, nil
}
