package indexer

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/internal/extractor"
	"github.com/dshills/gatestub/internal/parser"
	"github.com/dshills/gatestub/internal/stub"
	"github.com/dshills/gatestub/pkg/types"
)

// Processor turns one gateway file into a rendered stub
type Processor struct {
	parser    *parser.Parser
	extractor *extractor.Extractor
	logger    *zap.Logger
}

// NewProcessor creates a Processor
func NewProcessor(p *parser.Parser, e *extractor.Extractor, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{parser: p, extractor: e, logger: logger}
}

// Process parses gw, collects its exports and renders the stub. It reports
// false when the gateway cannot be parsed or exports nothing.
func (p *Processor) Process(ctx context.Context, gw types.GatewayFile) (types.StubResult, bool) {
	mod, err := p.parser.ParseFile(ctx, gw.Path)
	if err != nil {
		if errors.Is(err, parser.ErrUnparseable) {
			p.logger.Warn("skipping unparseable gateway",
				zap.String("path", gw.Path),
				zap.Error(err))
		} else {
			p.logger.Warn("failed to read gateway",
				zap.String("path", gw.Path),
				zap.Error(err))
		}
		return types.StubResult{}, false
	}

	modules := p.extractor.ModuleList(mod)
	p.logger.Debug("module list",
		zap.String("path", gw.Path),
		zap.String("source", string(modules.Source)),
		zap.Strings("modules", modules.Names))

	symbols := p.extractor.Collect(ctx, mod, modules)
	if symbols.Len() == 0 {
		p.logger.Info("no exported symbols, skipping", zap.String("path", gw.Path))
		return types.StubResult{}, false
	}

	names := symbols.Sorted()
	return types.StubResult{
		InitPath:    gw.Path,
		StubPath:    stub.StubPath(gw.Path),
		Body:        stub.Render(names, gw.PackageName()),
		SymbolCount: len(names),
		Symbols:     names,
	}, true
}
