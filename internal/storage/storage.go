package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting and querying run history
type Storage interface {
	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, runID int64) (*Run, error)
	GetLatestRun(ctx context.Context, rootPath string) (*Run, error)
	ListRuns(ctx context.Context, rootPath string, limit int) ([]*Run, error)
	DeleteRunsBefore(ctx context.Context, rootPath string, before time.Time) (int, error)

	// Stub operations
	InsertStub(ctx context.Context, stub *StubRecord) error
	ListStubs(ctx context.Context, runID int64) ([]*StubRecord, error)
	FindStubsBySymbol(ctx context.Context, runID int64, symbol string) ([]*StubRecord, error)

	// Status operations
	GetStatus(ctx context.Context, rootPath string) (*RootStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Run is one recorded pipeline run over a root directory
type Run struct {
	ID          int64
	RootPath    string
	StartedAt   time.Time
	FinishedAt  time.Time
	Created     int
	Overwritten int
	Unchanged   int
	Applied     bool // Pending changes were written to disk
	CreatedAt   time.Time
}

// Total returns the number of stubs in the run
func (r *Run) Total() int {
	return r.Created + r.Overwritten + r.Unchanged
}

// Duration returns how long the run took
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// StubRecord is one stub result of a run
type StubRecord struct {
	ID          int64
	RunID       int64
	InitPath    string
	StubPath    string
	Bucket      string
	SymbolCount int
	BodyHash    [32]byte
	Symbols     []string
	CreatedAt   time.Time
}

// RootStatus summarizes the recorded history of a root
type RootStatus struct {
	RootPath     string
	LatestRun    *Run // Nil when the root was never recorded
	RunsCount    int
	StubsTracked int // Stubs in the latest run
	DatabaseMB   float64
}
