package types

import (
	"sort"
	"strings"
)

// Bucket is the classification of a stub result against what is on disk
type Bucket string

const (
	BucketCreate    Bucket = "create"    // No stub exists yet
	BucketOverwrite Bucket = "overwrite" // A stub exists with a different body
	BucketUnchanged Bucket = "unchanged" // The existing stub body already matches
)

// Valid reports whether b is one of the known buckets
func (b Bucket) Valid() bool {
	switch b {
	case BucketCreate, BucketOverwrite, BucketUnchanged:
		return true
	}
	return false
}

// StubResult is the rendered stub for one gateway file
type StubResult struct {
	InitPath    string   // Gateway file the stub describes
	StubPath    string   // Same stem as InitPath with the stub extension
	Body        string   // Canonical stub text, without provenance header
	SymbolCount int
	Symbols     []string // Sorted exported names

	// Set by classification
	Bucket         Bucket
	ExistingHeader string // First line of the stub being overwritten, "" if none
}

// HasHeader reports whether an existing provenance header must be preserved
func (r *StubResult) HasHeader() bool {
	return r.ExistingHeader != ""
}

// Validate checks if the stub result is valid
func (r *StubResult) Validate() error {
	if r.InitPath == "" {
		return ErrEmptyInitPath
	}
	if r.StubPath == "" {
		return ErrEmptyStubPath
	}
	if r.SymbolCount < 0 {
		return ErrNegativeSymbols
	}
	if r.Bucket != "" && !r.Bucket.Valid() {
		return ErrInvalidBucket
	}
	if r.ExistingHeader != "" && r.Bucket != BucketOverwrite {
		return ErrUnexpectedHeader
	}
	return nil
}

// Buckets holds classified stub results. The three lists are disjoint.
type Buckets struct {
	Create    []StubResult
	Overwrite []StubResult
	Unchanged []StubResult
}

// Add appends r to the list matching its bucket. Results without a valid
// bucket are dropped.
func (b *Buckets) Add(r StubResult) {
	switch r.Bucket {
	case BucketCreate:
		b.Create = append(b.Create, r)
	case BucketOverwrite:
		b.Overwrite = append(b.Overwrite, r)
	case BucketUnchanged:
		b.Unchanged = append(b.Unchanged, r)
	}
}

// Merge appends every result of other
func (b *Buckets) Merge(other Buckets) {
	b.Create = append(b.Create, other.Create...)
	b.Overwrite = append(b.Overwrite, other.Overwrite...)
	b.Unchanged = append(b.Unchanged, other.Unchanged...)
}

// Sort orders each list by stub path
func (b *Buckets) Sort() {
	for _, list := range [][]StubResult{b.Create, b.Overwrite, b.Unchanged} {
		sort.Slice(list, func(i, j int) bool {
			return strings.Compare(list[i].StubPath, list[j].StubPath) < 0
		})
	}
}

// Len returns the total number of results
func (b *Buckets) Len() int {
	return len(b.Create) + len(b.Overwrite) + len(b.Unchanged)
}

// Changed reports whether applying the buckets would touch the filesystem
func (b *Buckets) Changed() bool {
	return len(b.Create) > 0 || len(b.Overwrite) > 0
}

// Pending returns the results that need writing, creates first
func (b *Buckets) Pending() []StubResult {
	out := make([]StubResult, 0, len(b.Create)+len(b.Overwrite))
	out = append(out, b.Create...)
	return append(out, b.Overwrite...)
}

// All returns every result in bucket order
func (b *Buckets) All() []StubResult {
	return append(b.Pending(), b.Unchanged...)
}
