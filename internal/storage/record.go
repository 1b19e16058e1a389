package storage

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dshills/gatestub/pkg/types"
)

// FromStubResult converts a classified stub result to a record of runID
func FromStubResult(runID int64, r types.StubResult) *StubRecord {
	return &StubRecord{
		RunID:       runID,
		InitPath:    r.InitPath,
		StubPath:    r.StubPath,
		Bucket:      string(r.Bucket),
		SymbolCount: r.SymbolCount,
		BodyHash:    sha256.Sum256([]byte(r.Body)),
		Symbols:     r.Symbols,
	}
}

// RecordRun stores a run of rootPath and all of its stub results in one
// transaction
func RecordRun(ctx context.Context, s Storage, rootPath string, started, finished time.Time, buckets types.Buckets, applied bool) (*Run, error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	run := &Run{
		RootPath:    rootPath,
		StartedAt:   started,
		FinishedAt:  finished,
		Created:     len(buckets.Create),
		Overwritten: len(buckets.Overwrite),
		Unchanged:   len(buckets.Unchanged),
		Applied:     applied,
	}
	if err := tx.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	for _, r := range buckets.All() {
		if err := tx.InsertStub(ctx, FromStubResult(run.ID, r)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit run")
	}
	return run, nil
}
