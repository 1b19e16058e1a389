package indexer

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeenSet_Claim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "__init__.py")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s := NewSeenSet()
	assert.True(t, s.Claim(path))
	assert.False(t, s.Claim(path))
	assert.False(t, s.Claim(filepath.Join(dir, ".", "__init__.py")))
	assert.True(t, s.Contains(path))
	assert.Equal(t, 1, s.Len())

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Claim(path))
}

func TestSeenSet_SymlinkIdentity(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.py")
	link := filepath.Join(dir, "link.py")
	require.NoError(t, os.WriteFile(target, nil, 0644))
	require.NoError(t, os.Symlink(target, link))

	s := NewSeenSet()
	assert.True(t, s.Claim(link))
	assert.False(t, s.Claim(target))
}

func TestSeenSet_ConcurrentClaims(t *testing.T) {
	s := NewSeenSet()
	path := filepath.Join(t.TempDir(), "x.py")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Claim(path) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRunLock(t *testing.T) {
	var l RunLock
	assert.False(t, l.Held())
	assert.True(t, l.TryAcquire())
	assert.True(t, l.Held())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.False(t, l.Held())
	assert.True(t, l.TryAcquire())
}
