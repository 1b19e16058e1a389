package mcp

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/internal/config"
	"github.com/dshills/gatestub/internal/indexer"
	"github.com/dshills/gatestub/internal/searcher"
	"github.com/dshills/gatestub/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "gatestub"
	// DefaultVersion is reported when Options.Version is empty
	DefaultVersion = "dev"
	// SymbolCacheSize bounds the find_symbol cache
	SymbolCacheSize = 1000
)

// Options configures a Server
type Options struct {
	Storage    storage.Storage       // Run history; nil disables recording and lookups
	ConfigFile string                // Explicit config file, otherwise looked up per root
	Workers    int                   // Overrides the configured worker count when positive
	Submodules indexer.SubmoduleFunc // Submodule discovery for scans
	Logger     *zap.Logger
	Version    string
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	searcher *searcher.Searcher
	lock     indexer.RunLock
	opts     Options
	logger   *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}

	s := &Server{
		mcp:     server.NewMCPServer(ServerName, opts.Version),
		storage: opts.Storage,
		opts:    opts,
		logger:  opts.Logger,
	}
	if opts.Storage != nil {
		s.searcher = searcher.New(opts.Storage, SymbolCacheSize)
	}

	if err := s.registerTools(); err != nil {
		return nil, errors.Wrap(err, "failed to register tools")
	}
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(scanGatewaysTool(), s.handleScanGateways)
	s.mcp.AddTool(renderStubTool(), s.handleRenderStub)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(findSymbolTool(), s.handleFindSymbol)
	return nil
}

// newIndexer builds a pipeline for root from its resolved configuration
func (s *Server) newIndexer(root string) (*indexer.Indexer, error) {
	cfg, err := config.Load(root, s.opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if s.opts.Workers > 0 {
		cfg.Workers = s.opts.Workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	opts := []indexer.Option{indexer.WithLogger(s.logger)}
	if s.opts.Submodules != nil {
		opts = append(opts, indexer.WithSubmoduleDiscovery(s.opts.Submodules))
	}
	icfg := cfg.IndexerConfig()
	icfg.Root = root
	return indexer.New(icfg, opts...)
}
