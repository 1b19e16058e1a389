package indexer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/gatestub/internal/extractor"
	"github.com/dshills/gatestub/internal/parser"
	"github.com/dshills/gatestub/internal/scanner"
	"github.com/dshills/gatestub/internal/stub"
	"github.com/dshills/gatestub/pkg/types"
)

// ErrNoInput is returned when a run is given a path that does not exist
var ErrNoInput = errors.New("input path does not exist")

// Progress receives task events. Step is called from worker goroutines.
type Progress interface {
	Start(total int)
	Step(gw types.GatewayFile)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(int)              {}
func (nopProgress) Step(types.GatewayFile) {}
func (nopProgress) Finish()                {}

// SubmoduleFunc lists submodule directories of the repository containing root
type SubmoduleFunc func(root string) ([]string, error)

// Indexer coordinates the pipeline: scan -> process -> classify
type Indexer struct {
	cfg        Config
	parser     *parser.Parser
	processor  *Processor
	classifier *stub.Classifier
	seen       *SeenSet
	progress   Progress
	submodules SubmoduleFunc
	logger     *zap.Logger

	reader stub.Reader
}

// Option configures an Indexer
type Option func(*Indexer)

// WithLogger sets the logger shared by every pipeline stage
func WithLogger(logger *zap.Logger) Option {
	return func(idx *Indexer) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// WithStubReader sets how existing stubs are looked up
func WithStubReader(r stub.Reader) Option {
	return func(idx *Indexer) {
		idx.reader = r
	}
}

// WithSeenSet shares a processed set between indexers
func WithSeenSet(s *SeenSet) Option {
	return func(idx *Indexer) {
		if s != nil {
			idx.seen = s
		}
	}
}

// WithProgress reports task progress
func WithProgress(p Progress) Option {
	return func(idx *Indexer) {
		if p != nil {
			idx.progress = p
		}
	}
}

// WithSubmoduleDiscovery adds the submodules found by fn to every directory scan
func WithSubmoduleDiscovery(fn SubmoduleFunc) Option {
	return func(idx *Indexer) {
		idx.submodules = fn
	}
}

// New creates a new Indexer instance
func New(cfg Config, opts ...Option) (*Indexer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	idx := &Indexer{
		cfg:      cfg,
		parser:   parser.New(),
		seen:     NewSeenSet(),
		progress: nopProgress{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}

	ext := extractor.New(idx.parser,
		extractor.WithLogger(idx.logger),
		extractor.WithModuleListName(cfg.ModuleListName),
		extractor.WithAllListName(cfg.AllListName),
	)
	idx.processor = NewProcessor(idx.parser, ext, idx.logger)
	idx.classifier = stub.NewClassifier(idx.reader, idx.logger)
	return idx, nil
}

// Seen returns the processed set of this indexer
func (idx *Indexer) Seen() *SeenSet {
	return idx.seen
}

// ProcessDirectory scans dir and processes every gateway not yet claimed.
// The error is non-nil only when dir itself cannot be used.
func (idx *Indexer) ProcessDirectory(ctx context.Context, dir string) (types.Buckets, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return types.Buckets{}, errors.Wrapf(err, "failed to resolve %s", dir)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return types.Buckets{}, errors.Mark(errors.Wrapf(err, "failed to stat %s", dir), ErrNoInput)
	}
	if !info.IsDir() {
		return types.Buckets{}, errors.Newf("%s is not a directory", dir)
	}

	var discovered []string
	if idx.submodules != nil {
		discovered, err = idx.submodules(abs)
		if err != nil {
			idx.logger.Warn("failed to list submodules", zap.String("path", abs), zap.Error(err))
		}
	}

	s, err := scanner.New(idx.cfg.scannerOptions(discovered), idx.logger)
	if err != nil {
		return types.Buckets{}, err
	}

	gateways := s.ScanFrom(idx.scanRoot(abs), abs)
	idx.logger.Info("scanned directory",
		zap.String("path", abs),
		zap.Int("gateways", len(gateways)))

	return idx.fanout(ctx, gateways), nil
}

// ProcessFiles processes explicitly named gateway files. Indicator checks do
// not apply to them.
func (idx *Indexer) ProcessFiles(ctx context.Context, paths []string) types.Buckets {
	gateways := make([]types.GatewayFile, 0, len(paths))
	for _, p := range paths {
		gateways = append(gateways, idx.gatewayFor(p))
	}
	return idx.fanout(ctx, gateways)
}

// Render processes a single gateway without consulting or updating the
// processed set
func (idx *Indexer) Render(ctx context.Context, path string) (types.StubResult, bool) {
	return idx.runTask(ctx, idx.gatewayFor(path))
}

// scanRoot returns the configured root, or dir when none is set
func (idx *Indexer) scanRoot(dir string) string {
	if idx.cfg.Root == "" {
		return dir
	}
	return idx.cfg.Root
}

// gatewayFor describes a named file by its own absolute location. Symlinks
// are resolved only when the file is claimed.
func (idx *Indexer) gatewayFor(path string) types.GatewayFile {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return types.NewGatewayFile(idx.scanRoot(filepath.Dir(abs)), abs)
}

// Run processes inputs: named files first, then each directory in order
func (idx *Indexer) Run(ctx context.Context, inputs []string) (*Report, error) {
	report := &Report{StartedAt: time.Now()}

	var files, dirs []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "failed to stat %s", in), ErrNoInput)
		}
		if info.IsDir() {
			dirs = append(dirs, in)
		} else {
			files = append(files, in)
		}
	}

	if len(files) > 0 {
		report.Files = idx.ProcessFiles(ctx, files)
	}
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		buckets, err := idx.ProcessDirectory(ctx, dir)
		if err != nil {
			return nil, err
		}
		abs, _ := filepath.Abs(dir)
		report.Directories = append(report.Directories, DirectoryReport{Dir: abs, Buckets: buckets})
	}

	report.FinishedAt = time.Now()
	return report, ctx.Err()
}

// fanout runs one task per unclaimed gateway and collects sorted buckets
func (idx *Indexer) fanout(ctx context.Context, gateways []types.GatewayFile) types.Buckets {
	slots := make([]*types.StubResult, len(gateways))

	g := new(errgroup.Group)
	g.SetLimit(idx.cfg.Workers)

	idx.progress.Start(len(gateways))
	for i, gw := range gateways {
		if ctx.Err() != nil {
			break
		}
		if !idx.seen.Claim(gw.Path) {
			idx.logger.Debug("already processed", zap.String("path", gw.Path))
			idx.progress.Step(gw)
			continue
		}
		g.Go(func() error {
			defer idx.progress.Step(gw)
			if res, ok := idx.runTask(ctx, gw); ok {
				slots[i] = &res
			}
			return nil
		})
	}
	_ = g.Wait()
	idx.progress.Finish()

	var buckets types.Buckets
	for _, res := range slots {
		if res != nil {
			buckets.Add(*res)
		}
	}
	buckets.Sort()
	return buckets
}

// runTask processes and classifies one gateway. Panics stop at this boundary.
func (idx *Indexer) runTask(ctx context.Context, gw types.GatewayFile) (res types.StubResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			idx.logger.Error("gateway task panicked",
				zap.String("path", gw.Path),
				zap.Any("panic", r))
			res, ok = types.StubResult{}, false
		}
	}()

	result, ok := idx.processor.Process(ctx, gw)
	if !ok {
		return types.StubResult{}, false
	}
	return idx.classifier.Classify(result), true
}
