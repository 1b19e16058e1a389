package searcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/gatestub/internal/storage"
)

// DefaultCacheSize is the number of lookups kept when New is given a
// non-positive size
const DefaultCacheSize = 1000

// ErrNoHistory is returned when a root has no recorded runs
var ErrNoHistory = errors.New("no recorded runs for root")

// Match is one gateway whose stub exports the looked-up symbol
type Match struct {
	InitPath string
	StubPath string
	Bucket   string
}

// SymbolResponse contains the matches for a symbol and the run they come from
type SymbolResponse struct {
	Symbol        string
	Root          string
	RunID         int64
	RunFinishedAt time.Time
	Matches       []Match
	Duration      time.Duration
	CacheHit      bool
}

// Searcher looks up exported symbols in recorded history
type Searcher struct {
	storage storage.Storage
	cache   *lru.Cache[string, []Match]
}

// New creates a Searcher over store with an LRU of cacheSize entries
func New(store storage.Storage, cacheSize int) *Searcher {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []Match](cacheSize)
	if err != nil {
		// Only possible with a non-positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &Searcher{storage: store, cache: cache}
}

// FindSymbol returns every gateway in the latest run of root whose stub
// exports name
func (s *Searcher) FindSymbol(ctx context.Context, root, name string) (*SymbolResponse, error) {
	start := time.Now()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("symbol name cannot be empty")
	}

	run, err := s.storage.GetLatestRun(ctx, root)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errors.Mark(errors.Newf("no recorded runs for %s", root), ErrNoHistory)
		}
		return nil, errors.Wrap(err, "failed to load latest run")
	}

	resp := &SymbolResponse{
		Symbol:        name,
		Root:          root,
		RunID:         run.ID,
		RunFinishedAt: run.FinishedAt,
	}

	key := cacheKey(run.ID, name)
	if matches, ok := s.cache.Get(key); ok {
		resp.Matches = copyMatches(matches)
		resp.CacheHit = true
		resp.Duration = time.Since(start)
		return resp, nil
	}

	records, err := s.storage.FindStubsBySymbol(ctx, run.ID, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find symbol %q", name)
	}

	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		matches = append(matches, Match{
			InitPath: rec.InitPath,
			StubPath: rec.StubPath,
			Bucket:   rec.Bucket,
		})
	}
	s.cache.Add(key, copyMatches(matches))

	resp.Matches = matches
	resp.Duration = time.Since(start)
	return resp, nil
}

// Purge drops every cached lookup
func (s *Searcher) Purge() {
	s.cache.Purge()
}

func cacheKey(runID int64, name string) string {
	return fmt.Sprintf("%d\x00%s", runID, name)
}

func copyMatches(src []Match) []Match {
	dst := make([]Match, len(src))
	copy(dst, src)
	return dst
}
