package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SierraSoftworks/automate/pkg/storage"
)

// newCollectorStore creates a fresh in-memory SQLite store for each test.
func newCollectorStore(t *testing.T) *storage.GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")
	require.NoError(t, storage.ConfigurePool(db), "cap pool for in-memory sqlite")

	s := storage.NewGormStore(db)
	require.NoError(t, s.Migrate(context.Background()), "migrate schema")
	return s
}

type release struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type fakeReleaseSource struct {
	key   string
	items []release
	err   error
}

func (s *fakeReleaseSource) Kind() string                  { return "fake-releases" }
func (s *fakeReleaseSource) Key() string                   { return s.key }
func (s *fakeReleaseSource) Identifier(r release) string   { return r.ID }
func (s *fakeReleaseSource) Fetch(context.Context) ([]release, error) {
	return s.items, s.err
}

func ids(changes Changes[release, string]) []string {
	var out []string
	for _, item := range changes.Added {
		out = append(out, item.ID)
	}
	return out
}

func TestDifferential_FirstRunReportsEverythingAdded(t *testing.T) {
	ctx := context.Background()
	store := newCollectorStore(t)
	source := &fakeReleaseSource{key: "octo/repo", items: []release{{ID: "v1"}, {ID: "v2"}}}
	c := NewDifferential[release, string](store, source)

	changes, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, ids(changes))
	assert.Empty(t, changes.Removed)

	// A second run over the same collection is quiet.
	changes, err = c.Collect(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes.Added)
	assert.Empty(t, changes.Removed)
}

func TestDifferential_DetectsAddedAndRemoved(t *testing.T) {
	ctx := context.Background()
	store := newCollectorStore(t)
	source := &fakeReleaseSource{key: "octo/repo", items: []release{{ID: "v1"}, {ID: "v2"}}}
	c := NewDifferential[release, string](store, source)

	_, err := c.Collect(ctx)
	require.NoError(t, err)

	source.items = []release{{ID: "v2"}, {ID: "v3"}}
	changes, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v3"}, ids(changes))
	assert.Equal(t, []string{"v1"}, changes.Removed)
}

func TestDifferential_EmptyFetchRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store := newCollectorStore(t)
	source := &fakeReleaseSource{key: "octo/repo", items: []release{{ID: "v1"}, {ID: "v2"}}}
	c := NewDifferential[release, string](store, source)

	_, err := c.Collect(ctx)
	require.NoError(t, err)

	source.items = nil
	changes, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes.Added)
	assert.ElementsMatch(t, []string{"v1", "v2"}, changes.Removed)
}

func TestDifferential_DeduplicatesFetchedItems(t *testing.T) {
	ctx := context.Background()
	store := newCollectorStore(t)
	source := &fakeReleaseSource{key: "octo/repo", items: []release{{ID: "v1", Name: "a"}, {ID: "v1", Name: "b"}}}
	c := NewDifferential[release, string](store, source)

	changes, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, ids(changes))
}

func TestDifferential_ResetForgetsSeenIDs(t *testing.T) {
	ctx := context.Background()
	store := newCollectorStore(t)
	source := &fakeReleaseSource{key: "octo/repo", items: []release{{ID: "v1"}}}
	c := NewDifferential[release, string](store, source)

	_, err := c.Collect(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Reset(ctx))

	changes, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, ids(changes), "reset should make everything new again")
}

func TestDifferential_FetchErrorLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := newCollectorStore(t)
	source := &fakeReleaseSource{key: "octo/repo", items: []release{{ID: "v1"}}}
	c := NewDifferential[release, string](store, source)

	_, err := c.Collect(ctx)
	require.NoError(t, err)

	source.err = assert.AnError
	_, err = c.Collect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	source.err = nil
	changes, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes.Added, "failed run should not have dropped the seen set")
}

func TestDifferential_KeysIsolateSourceInstances(t *testing.T) {
	ctx := context.Background()
	store := newCollectorStore(t)
	first := NewDifferential[release, string](store, &fakeReleaseSource{key: "octo/alpha", items: []release{{ID: "v1"}}})
	second := NewDifferential[release, string](store, &fakeReleaseSource{key: "octo/beta", items: []release{{ID: "v1"}}})

	_, err := first.Collect(ctx)
	require.NoError(t, err)

	changes, err := second.Collect(ctx)
	require.NoError(t, err)
	assert.Len(t, changes.Added, 1, "sources with different keys should not share state")
}
