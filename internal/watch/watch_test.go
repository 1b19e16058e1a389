package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testDebounce = 50 * time.Millisecond

func setupTree(t *testing.T) string {
	root := t.TempDir()
	for _, dir := range []string{"pkg", "pkg/sub", ".venv/lib", "build"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	return root
}

func startWatcher(t *testing.T, root string, fn Handler, opts ...Option) *Watcher {
	t.Helper()
	opts = append([]Option{WithDebounce(testDebounce)}, opts...)
	w, err := New(root, []string{".venv", "build"}, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, fn)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	return w
}

func counter(n *atomic.Int32) Handler {
	return func(ctx context.Context) error {
		n.Add(1)
		return nil
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_SkipsIgnoredDirectories(t *testing.T) {
	root := setupTree(t)
	w, err := New(root, []string{".venv", "build"})
	require.NoError(t, err)
	defer w.Close()

	watched := w.Watched()
	assert.Contains(t, watched, root)
	assert.Contains(t, watched, filepath.Join(root, "pkg"))
	assert.Contains(t, watched, filepath.Join(root, "pkg", "sub"))
	assert.NotContains(t, watched, filepath.Join(root, ".venv"))
	assert.NotContains(t, watched, filepath.Join(root, ".venv", "lib"))
	assert.NotContains(t, watched, filepath.Join(root, "build"))
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(t.TempDir(), []string{"[unclosed"})
	assert.Error(t, err)
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestRun_DebouncesSourceChanges(t *testing.T) {
	root := setupTree(t)
	var runs atomic.Int32
	startWatcher(t, root, counter(&runs))

	for i := 0; i < 5; i++ {
		write(t, filepath.Join(root, "pkg", "models.py"), "X = 1\n")
	}

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(4 * testDebounce)
	assert.Equal(t, int32(1), runs.Load())
}

func TestRun_IgnoresNonSourceFiles(t *testing.T) {
	root := setupTree(t)
	var runs atomic.Int32
	startWatcher(t, root, counter(&runs))

	write(t, filepath.Join(root, "pkg", "__init__.pyi"), "__all__ = []\n")
	write(t, filepath.Join(root, "pkg", "notes.txt"), "hello\n")

	time.Sleep(6 * testDebounce)
	assert.Equal(t, int32(0), runs.Load())
}

func TestRun_WatchesNewDirectories(t *testing.T) {
	root := setupTree(t)
	var runs atomic.Int32
	w := startWatcher(t, root, counter(&runs))

	fresh := filepath.Join(root, "fresh")
	require.NoError(t, os.Mkdir(fresh, 0o755))

	assert.Eventually(t, func() bool {
		for _, p := range w.Watched() {
			if p == fresh {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	before := runs.Load()
	write(t, filepath.Join(fresh, "mod.py"), "Y = 2\n")
	assert.Eventually(t, func() bool { return runs.Load() > before }, 2*time.Second, 10*time.Millisecond)
}

func TestRun_HandlerErrorIsLogged(t *testing.T) {
	root := setupTree(t)
	core, logs := observer.New(zapcore.WarnLevel)
	var runs atomic.Int32
	fn := func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	}
	startWatcher(t, root, fn, WithLogger(zap.New(core)))

	write(t, filepath.Join(root, "pkg", "a.py"), "A = 1\n")
	assert.Eventually(t, func() bool { return logs.FilterMessage("re-run failed").Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	write(t, filepath.Join(root, "pkg", "b.py"), "B = 1\n")
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestRun_StopsOnCancel(t *testing.T) {
	root := setupTree(t)
	w, err := New(root, nil, WithDebounce(testDebounce))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx, func(context.Context) error { return nil }))
}
