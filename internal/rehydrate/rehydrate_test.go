package rehydrate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dbsmedya/legacymigrate/internal/bcref"
	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/target/targettest"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func seedItems(f *targettest.Fake, typ string, n int) []string {
	tokens := make([]string, n)
	for i := 0; i < n; i++ {
		tokens[i] = fmt.Sprintf("mwnf3:objects:ISL:jo:M1:%d", i)
		f.Seed(target.ResourceItem, target.Record{
			ID:                    fmt.Sprintf("%s-%d", typ, i),
			BackwardCompatibility: tokens[i],
			Type:                  typ,
		})
	}
	return tokens
}

func TestLoadDependency_PaginatesAndRegisters(t *testing.T) {
	fake := targettest.New()
	tokens := seedItems(fake, "object", 7)
	// a record without token is ignored
	fake.Seed(target.ResourceItem, target.Record{ID: "orphan", Type: "object"})

	tr := tracker.New(nil, 0)
	r := New(fake, tr, 3, nil)

	n, err := r.LoadDependency(context.Background(), KeyObject)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	for _, tok := range tokens {
		assert.True(t, tr.Exists(tok), tok)
	}
	id, ok := tr.GetID(tokens[4])
	require.True(t, ok)
	assert.Equal(t, "object-4", id)
	assert.Zero(t, fake.WriteCount(), "rehydration never writes")

	loaded, ok := r.Loaded(KeyObject)
	assert.True(t, ok)
	assert.Equal(t, 7, loaded)
}

func TestLoadDependency_Idempotent(t *testing.T) {
	fake := targettest.New()
	seedItems(fake, "object", 4)
	tr := tracker.New(nil, 0)
	r := New(fake, tr, 2, nil)

	_, err := r.LoadDependency(context.Background(), KeyObject)
	require.NoError(t, err)
	n, err := r.LoadDependency(context.Background(), KeyObject)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 4, tr.Count())
}

func TestLoadDependency_TypeFilter(t *testing.T) {
	fake := targettest.New()
	seedItems(fake, "object", 2)
	fake.Seed(target.ResourceItem, target.Record{ID: "m1", BackwardCompatibility: "mwnf3:monuments:ISL:jo:1", Type: "monument"})

	tr := tracker.New(nil, 0)
	r := New(fake, tr, 10, nil)

	_, err := r.LoadDependency(context.Background(), KeyMonument)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Count())
	assert.True(t, tr.Exists("mwnf3:monuments:ISL:jo:1"))
}

func TestLoadDependency_DefaultContext(t *testing.T) {
	ctx := context.Background()
	fake := targettest.New()
	tr := tracker.New(nil, 0)
	r := New(fake, tr, 10, nil)

	n, err := r.LoadDependency(ctx, KeyDefaultContext)
	require.NoError(t, err, "missing default context is empty state")
	assert.Zero(t, n)

	fake.Seed(target.ResourceContext, target.Record{ID: "ctx-0", IsDefault: true})
	n, err = r.LoadDependency(ctx, KeyDefaultContext)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	id, _ := tr.GetID(bcref.DefaultContextToken)
	assert.Equal(t, "ctx-0", id)
}

func TestLoadDependency_NotFoundIsEmpty(t *testing.T) {
	fake := targettest.New()
	fake.ListErr[target.ResourcePartnerLogo] = &target.APIError{Method: "GET", Path: "/partner-logo", Status: 404}
	fake.Seed(target.ResourceItemImage, target.Record{ID: "img-1", BackwardCompatibility: "mwnf3:objects_pictures:ISL:jo:M1:7:1"})

	tr := tracker.New(nil, 0)
	r := New(fake, tr, 10, nil)

	n, err := r.LoadDependency(context.Background(), KeyPicture)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoadDependency_MalformedIsFatal(t *testing.T) {
	fake := targettest.New()
	fake.ListErr[target.ResourcePartner] = fmt.Errorf("%w: GET /partner: bad json", target.ErrMalformedResponse)

	r := New(fake, tracker.New(nil, 0), 10, nil)
	_, err := r.LoadDependency(context.Background(), KeyPartner)
	require.Error(t, err)
	assert.True(t, errors.Is(err, target.ErrMalformedResponse))

	_, ok := r.Loaded(KeyPartner)
	assert.False(t, ok)
}

func TestLoadDependency_ItemTranslations(t *testing.T) {
	fake := targettest.New()
	fake.Seed(target.ResourceItemTranslation, target.Record{ID: "tr-1", BackwardCompatibility: "mwnf3:objects:ISL:jo:M1:1:eng"})
	fake.Seed(target.ResourceItemTranslation, target.Record{ID: "tr-2", BackwardCompatibility: "mwnf3:objects_pictures:ISL:jo:M1:1:1:fra"})

	tr := tracker.New(nil, 0)
	n, err := New(fake, tr, 1, nil).LoadDependency(context.Background(), KeyItemTranslation)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	e, ok := tr.Get("mwnf3:objects:ISL:jo:M1:1:eng")
	require.True(t, ok)
	assert.Equal(t, tracker.CategoryTranslation, e.Category)
}

func TestLoadDependency_ItemLinks(t *testing.T) {
	fake := targettest.New()
	fake.Seed(target.ResourceItemItemLink, target.Record{ID: "link-1", BackwardCompatibility: "mwnf3:link:object_object:ISL:jo:M1:1:ISL:jo:M1:2"})

	tr := tracker.New(nil, 0)
	n, err := New(fake, tr, 10, nil).LoadDependency(context.Background(), KeyItemLink)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	e, ok := tr.Get("mwnf3:link:object_object:ISL:jo:M1:1:ISL:jo:M1:2")
	require.True(t, ok)
	assert.Equal(t, tracker.CategoryLink, e.Category)
}

func TestLoadDependency_RecordWithoutID(t *testing.T) {
	fake := targettest.New()
	fake.Seed(target.ResourcePartner, target.Record{BackwardCompatibility: "mwnf3:museums:M1:jo"})

	r := New(fake, tracker.New(nil, 0), 10, nil)
	_, err := r.LoadDependency(context.Background(), KeyPartner)
	assert.True(t, errors.Is(err, target.ErrMalformedResponse))
}

func TestLoadDependency_UnknownKey(t *testing.T) {
	r := New(targettest.New(), tracker.New(nil, 0), 10, nil)
	_, err := r.LoadDependency(context.Background(), Key("nope"))
	assert.Error(t, err)
}

func TestLoadAll_Concurrent(t *testing.T) {
	fake := targettest.New()
	seedItems(fake, "object", 5)
	fake.Seed(target.ResourcePartner, target.Record{ID: "p1", BackwardCompatibility: "mwnf3:museums:M1:jo"})
	fake.Seed(target.ResourceContext, target.Record{ID: "c1", BackwardCompatibility: "mwnf3:projects:ISL"})
	fake.Seed(target.ResourceCollection, target.Record{ID: "col1", BackwardCompatibility: "ISL:collection"})
	fake.Seed(target.ResourceProject, target.Record{ID: "pr1", BackwardCompatibility: "ISL:project"})

	tr := tracker.New(nil, 0)
	r := New(fake, tr, 2, nil)

	// KeyTHG and KeyProject both read collections
	err := r.LoadAll(context.Background(), KeyObject, KeyPartner, KeyProject, KeyTHG, KeyObject)
	require.NoError(t, err)
	assert.Equal(t, 9, tr.Count())
	assert.Len(t, tr.ByCategory(tracker.CategoryCollection), 1)
}

func TestLoadAll_PropagatesError(t *testing.T) {
	fake := targettest.New()
	fake.ListErr[target.ResourceLanguage] = target.ErrConnectionFailed

	r := New(fake, tracker.New(nil, 0), 10, nil)
	err := r.LoadAll(context.Background(), KeyLanguage, KeyCountry)
	assert.True(t, errors.Is(err, target.ErrConnectionFailed))
}

func TestKeysAllResolvable(t *testing.T) {
	for _, k := range Keys() {
		if k == KeyDefaultContext {
			continue
		}
		_, ok := sources[k]
		assert.True(t, ok, k)
	}
}
