package searcher

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gatestub/internal/storage"
	"github.com/dshills/gatestub/pkg/types"
)

func setupStore(t *testing.T) *storage.SQLiteStorage {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func stubResult(pkg string, bucket types.Bucket, symbols ...string) types.StubResult {
	return types.StubResult{
		InitPath:    "/repo/" + pkg + "/__init__.py",
		StubPath:    "/repo/" + pkg + "/__init__.pyi",
		Body:        pkg,
		SymbolCount: len(symbols),
		Symbols:     symbols,
		Bucket:      bucket,
	}
}

func record(t *testing.T, store storage.Storage, finished time.Time, results ...types.StubResult) *storage.Run {
	var b types.Buckets
	for _, r := range results {
		b.Add(r)
	}
	run, err := storage.RecordRun(context.Background(), store, "/repo", finished.Add(-time.Second), finished, b, false)
	require.NoError(t, err)
	return run
}

func TestFindSymbol(t *testing.T) {
	store := setupStore(t)
	run := record(t, store, time.Now(),
		stubResult("b", types.BucketCreate, "Model", "View"),
		stubResult("a", types.BucketOverwrite, "Model"),
		stubResult("c", types.BucketUnchanged, "Other"),
	)

	s := New(store, 16)
	resp, err := s.FindSymbol(context.Background(), "/repo", "Model")
	require.NoError(t, err)

	assert.Equal(t, "Model", resp.Symbol)
	assert.Equal(t, run.ID, resp.RunID)
	assert.False(t, resp.CacheHit)
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, "/repo/a/__init__.pyi", resp.Matches[0].StubPath)
	assert.Equal(t, "overwrite", resp.Matches[0].Bucket)
	assert.Equal(t, "/repo/b/__init__.py", resp.Matches[1].InitPath)
}

func TestFindSymbol_NoMatches(t *testing.T) {
	store := setupStore(t)
	record(t, store, time.Now(), stubResult("a", types.BucketCreate, "Model"))

	resp, err := New(store, 16).FindSymbol(context.Background(), "/repo", "Missing")
	require.NoError(t, err)
	assert.Empty(t, resp.Matches)
}

func TestFindSymbol_CacheHit(t *testing.T) {
	store := setupStore(t)
	record(t, store, time.Now(), stubResult("a", types.BucketCreate, "Model"))

	s := New(store, 16)
	first, err := s.FindSymbol(context.Background(), "/repo", "Model")
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.FindSymbol(context.Background(), "/repo", "Model")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Matches, second.Matches)

	// Mutating a response must not leak into the cache
	second.Matches[0].StubPath = "changed"
	third, err := s.FindSymbol(context.Background(), "/repo", "Model")
	require.NoError(t, err)
	assert.Equal(t, "/repo/a/__init__.pyi", third.Matches[0].StubPath)

	s.Purge()
	fourth, err := s.FindSymbol(context.Background(), "/repo", "Model")
	require.NoError(t, err)
	assert.False(t, fourth.CacheHit)
}

func TestFindSymbol_NewRunBypassesCache(t *testing.T) {
	store := setupStore(t)
	now := time.Now()
	record(t, store, now.Add(-time.Hour), stubResult("a", types.BucketCreate, "Model"))

	s := New(store, 16)
	resp, err := s.FindSymbol(context.Background(), "/repo", "Model")
	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)

	latest := record(t, store, now, stubResult("b", types.BucketCreate, "Model"))

	resp, err = s.FindSymbol(context.Background(), "/repo", "Model")
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
	assert.Equal(t, latest.ID, resp.RunID)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "/repo/b/__init__.pyi", resp.Matches[0].StubPath)
}

func TestFindSymbol_NoHistory(t *testing.T) {
	store := setupStore(t)

	_, err := New(store, 16).FindSymbol(context.Background(), "/elsewhere", "Model")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoHistory))
}

func TestFindSymbol_EmptyName(t *testing.T) {
	_, err := New(setupStore(t), 16).FindSymbol(context.Background(), "/repo", "  ")
	assert.Error(t, err)
}

func TestNew_DefaultCacheSize(t *testing.T) {
	s := New(nil, 0)
	require.NotNil(t, s.cache)
	assert.Equal(t, 0, s.cache.Len())
}
