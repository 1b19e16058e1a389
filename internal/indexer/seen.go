package indexer

import (
	"sync"

	"github.com/dshills/gatestub/internal/scanner"
)

// SeenSet records the identities of gateways already dispatched in a run.
// It holds identity keys only.
type SeenSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewSeenSet creates an empty set
func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[string]struct{})}
}

// Claim marks path as processed. It returns false when the file was already
// claimed, possibly under a different path to the same file.
func (s *SeenSet) Claim(path string) bool {
	key := scanner.Identity(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Contains reports whether path has been claimed
func (s *SeenSet) Contains(path string) bool {
	key := scanner.Identity(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// Len returns the number of claimed identities
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Reset forgets every claim, for long-running callers that re-run the
// pipeline (watch mode)
func (s *SeenSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]struct{})
}
