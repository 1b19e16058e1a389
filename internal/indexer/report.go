package indexer

import (
	"time"

	"github.com/dshills/gatestub/pkg/types"
)

// DirectoryReport holds the buckets of one scanned directory
type DirectoryReport struct {
	Dir     string
	Buckets types.Buckets
}

// Report is the outcome of Indexer.Run
type Report struct {
	Files       types.Buckets // Explicitly named files
	Directories []DirectoryReport
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Merged returns every result of the run in one sorted set of buckets
func (r *Report) Merged() types.Buckets {
	var all types.Buckets
	all.Merge(r.Files)
	for _, d := range r.Directories {
		all.Merge(d.Buckets)
	}
	all.Sort()
	return all
}

// Duration returns how long the run took
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
