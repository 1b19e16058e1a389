// Package writer applies classified stub results to disk.
//
// Only results in the create and overwrite buckets are written. Each file is
// the provenance header line followed by the rendered body; an overwrite
// keeps the header the existing stub carried.
package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/internal/stub"
	"github.com/dshills/gatestub/pkg/types"
)

// FileMode is the permission of written stubs
const FileMode os.FileMode = 0o644

// Result describes what Apply did
type Result struct {
	Written  []string // Stub paths written, in application order
	Pending  int      // Stubs that needed writing
	DryRun   bool
	Declined bool // The confirmation was answered "no"
}

// Writer writes stubs below a scan root
type Writer struct {
	root      string
	dryRun    bool
	confirmer Confirmer
	logger    *zap.Logger
}

// Option configures a Writer
type Option func(*Writer)

// WithDryRun makes Apply report without writing
func WithDryRun(dryRun bool) Option {
	return func(w *Writer) {
		w.dryRun = dryRun
	}
}

// WithConfirmer sets how Apply asks for permission
func WithConfirmer(c Confirmer) Option {
	return func(w *Writer) {
		w.confirmer = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// New creates a Writer for root. Without a confirmer every write is approved.
func New(root string, opts ...Option) *Writer {
	w := &Writer{
		root:      root,
		confirmer: AlwaysConfirm{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Apply writes the pending results of buckets, creates first. Failures do not
// stop the remaining writes; they are combined into the returned error.
func (w *Writer) Apply(ctx context.Context, buckets types.Buckets) (*Result, error) {
	pending := buckets.Pending()
	res := &Result{Pending: len(pending), DryRun: w.dryRun}
	if len(pending) == 0 || w.dryRun {
		return res, nil
	}

	prompt := fmt.Sprintf("Write %d new and %d updated stub file(s)?",
		len(buckets.Create), len(buckets.Overwrite))
	ok, err := w.confirmer.Confirm(prompt)
	if err != nil {
		return res, errors.Wrap(err, "confirmation failed")
	}
	if !ok {
		res.Declined = true
		return res, nil
	}

	var errs error
	for _, r := range pending {
		if err := ctx.Err(); err != nil {
			return res, errors.CombineErrors(errs, err)
		}

		text := Compose(HeaderFor(w.root, r), r.Body)
		if err := WriteAtomic(r.StubPath, []byte(text)); err != nil {
			w.logger.Warn("failed to write stub",
				zap.String("path", r.StubPath),
				zap.Error(err))
			errs = errors.CombineErrors(errs, err)
			continue
		}

		w.logger.Info("wrote stub",
			zap.String("path", r.StubPath),
			zap.String("bucket", string(r.Bucket)),
			zap.Int("symbols", r.SymbolCount))
		res.Written = append(res.Written, r.StubPath)
	}

	return res, errs
}

// HeaderFor returns the header line written above r's body: the preserved
// header of an overwritten stub, otherwise the stub path relative to root
func HeaderFor(root string, r types.StubResult) string {
	if r.HasHeader() {
		return r.ExistingHeader
	}
	rel, err := filepath.Rel(root, r.StubPath)
	if err != nil {
		rel = r.StubPath
	}
	return stub.HeaderPrefix + " " + filepath.ToSlash(rel)
}

// Compose joins a header line and a body into stub file text
func Compose(header, body string) string {
	return header + "\n" + body
}

// WriteAtomic replaces path with data through a temporary file in the same
// directory, so readers never see a partial stub
func WriteAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %s", path)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "failed to write %s", tmpName)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "failed to sync %s", tmpName)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err = os.Chmod(tmpName, FileMode); err != nil {
		return errors.Wrapf(err, "failed to chmod %s", tmpName)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "failed to rename %s to %s", tmpName, path)
	}
	return nil
}
