package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	mu    sync.Mutex
	ids   map[string]string
	err   error
	calls int
}

func (f *fakeLookup) FindByBackwardCompatibility(_ context.Context, _ Category, token string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	id, ok := f.ids[token]
	return id, ok, nil
}

func TestRegisterAndLookup(t *testing.T) {
	tr := New(nil, 0)

	assert.False(t, tr.Exists("mwnf3:projects:ISL"))

	require.NoError(t, tr.Register(Entity{Token: "mwnf3:projects:ISL", TargetID: "ctx-1", Category: CategoryContext}))

	assert.True(t, tr.Exists("mwnf3:projects:ISL"))
	id, ok := tr.GetID("mwnf3:projects:ISL")
	require.True(t, ok)
	assert.Equal(t, "ctx-1", id)

	e, ok := tr.Get("mwnf3:projects:ISL")
	require.True(t, ok)
	assert.False(t, e.CreatedAt.IsZero())
	assert.Equal(t, 1, tr.Count())
}

func TestRegister_SameIDIsNoop(t *testing.T) {
	tr := New(nil, 0)
	e := Entity{Token: "a:b:c", TargetID: "1", Category: CategoryItem}

	require.NoError(t, tr.Register(e))
	require.NoError(t, tr.Register(e))
	assert.Equal(t, 1, tr.Count())
}

func TestRegister_DifferentIDFails(t *testing.T) {
	tr := New(nil, 0)
	require.NoError(t, tr.Register(Entity{Token: "a:b:c", TargetID: "1", Category: CategoryItem}))

	err := tr.Register(Entity{Token: "a:b:c", TargetID: "2", Category: CategoryItem})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateRegistration))

	id, _ := tr.GetID("a:b:c")
	assert.Equal(t, "1", id, "first mapping is kept")
}

func TestRegister_RejectsEmptyFields(t *testing.T) {
	tr := New(nil, 0)
	assert.Error(t, tr.Register(Entity{TargetID: "1"}))
	assert.Error(t, tr.Register(Entity{Token: "a:b:c"}))
}

func TestByCategory(t *testing.T) {
	tr := New(nil, 0)
	require.NoError(t, tr.Register(Entity{Token: "s:t:2", TargetID: "i2", Category: CategoryItem}))
	require.NoError(t, tr.Register(Entity{Token: "s:t:1", TargetID: "i1", Category: CategoryItem}))
	require.NoError(t, tr.Register(Entity{Token: "s:p:1", TargetID: "p1", Category: CategoryPartner}))

	items := tr.ByCategory(CategoryItem)
	require.Len(t, items, 2)
	assert.Equal(t, "s:t:1", items[0].Token)
	assert.Equal(t, "s:t:2", items[1].Token)

	assert.Empty(t, tr.ByCategory(CategoryImage))
	assert.Equal(t, map[Category]int{CategoryItem: 2, CategoryPartner: 1}, tr.CountByCategory())
}

func TestResolve_LocalHitSkipsLookup(t *testing.T) {
	lookup := &fakeLookup{}
	tr := New(lookup, time.Minute)
	require.NoError(t, tr.Register(Entity{Token: "s:t:1", TargetID: "i1", Category: CategoryItem}))

	id, found, err := tr.Resolve(context.Background(), "s:t:1", CategoryItem)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "i1", id)
	assert.Equal(t, 0, lookup.calls)
}

func TestResolve_RemoteHitRegisters(t *testing.T) {
	lookup := &fakeLookup{ids: map[string]string{"s:t:9": "remote-9"}}
	tr := New(lookup, time.Minute)

	id, found, err := tr.Resolve(context.Background(), "s:t:9", CategoryItem)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "remote-9", id)
	assert.True(t, tr.Exists("s:t:9"))

	_, _, err = tr.Resolve(context.Background(), "s:t:9", CategoryItem)
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.calls, "second resolve is served locally")
}

func TestResolve_MissIsCached(t *testing.T) {
	lookup := &fakeLookup{ids: map[string]string{}}
	tr := New(lookup, time.Minute)

	for i := 0; i < 3; i++ {
		found, err := tr.ExistsAsync(context.Background(), "s:t:missing", CategoryItem)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 1, lookup.calls)

	require.NoError(t, tr.Register(Entity{Token: "s:t:missing", TargetID: "x", Category: CategoryItem}))
	found, err := tr.ExistsAsync(context.Background(), "s:t:missing", CategoryItem)
	require.NoError(t, err)
	assert.True(t, found, "registration clears the cached miss")
}

func TestResolve_MissNotCachedWhenDisabled(t *testing.T) {
	lookup := &fakeLookup{ids: map[string]string{}}
	tr := New(lookup, 0)

	_, _, _ = tr.Resolve(context.Background(), "s:t:x", CategoryItem)
	_, _, _ = tr.Resolve(context.Background(), "s:t:x", CategoryItem)
	assert.Equal(t, 2, lookup.calls)
}

func TestResolve_LookupError(t *testing.T) {
	boom := errors.New("connection refused")
	tr := New(&fakeLookup{err: boom}, time.Minute)

	_, found, err := tr.Resolve(context.Background(), "s:t:1", CategoryItem)
	require.Error(t, err)
	assert.False(t, found)
	assert.True(t, errors.Is(err, boom))
}

func TestResolve_NoLookup(t *testing.T) {
	tr := New(nil, time.Minute)
	_, found, err := tr.Resolve(context.Background(), "s:t:1", CategoryItem)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSequence(t *testing.T) {
	tr := New(nil, 0)

	assert.Equal(t, 0, tr.Sequence("item-1"))
	assert.Equal(t, 1, tr.NextSequence("item-1"))
	assert.Equal(t, 2, tr.NextSequence("item-1"))
	assert.Equal(t, 1, tr.NextSequence("item-2"))
	assert.Equal(t, 2, tr.Sequence("item-1"))

	v, ok := tr.GetMetadata("display_order:item-1")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestMetadata(t *testing.T) {
	tr := New(nil, 0)
	_, ok := tr.GetMetadata("k")
	assert.False(t, ok)

	tr.SetMetadata("k", "v")
	v, ok := tr.GetMetadata("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestConcurrentRegister(t *testing.T) {
	tr := New(nil, 0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tr.Register(Entity{Token: "s:t:shared", TargetID: "same", Category: CategoryItem})
			tr.NextSequence("p")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, tr.Count())
	assert.Equal(t, 50, tr.Sequence("p"))
}
