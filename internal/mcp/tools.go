package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/internal/searcher"
	"github.com/dshills/gatestub/internal/storage"
	"github.com/dshills/gatestub/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeScanInProgress   = -32002 // Another scan is already running
	ErrorCodeNotScanned       = -32003 // Directory has no recorded scans
	ErrorCodeNotRenderable    = -32004 // Gateway produced no stub
	ErrorCodeHistoryDisabled  = -32005 // Server runs without a history store
	ErrorCodeInvalidConfigDir = -32006 // Configuration of the directory could not be loaded
)

// handleScanGateways handles the scan_gateways tool invocation
func (s *Server) handleScanGateways(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireDirectory(args)
	if err != nil {
		return nil, err
	}
	includeUnchanged := getBoolDefault(args, "include_unchanged", false)
	record := getBoolDefault(args, "record", true)

	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeScanInProgress, "another scan is already running", map[string]interface{}{
			"path": path,
		})
	}
	defer s.lock.Release()

	idx, err := s.newIndexer(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidConfigDir, "failed to load configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	report, err := idx.Run(ctx, []string{path})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "scan failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	buckets := report.Merged()

	response := map[string]interface{}{
		"path":        path,
		"create":      stubSummaries(path, buckets.Create),
		"overwrite":   stubSummaries(path, buckets.Overwrite),
		"duration_ms": report.Duration().Milliseconds(),
		"counts": map[string]interface{}{
			"create":    len(buckets.Create),
			"overwrite": len(buckets.Overwrite),
			"unchanged": len(buckets.Unchanged),
		},
	}
	if includeUnchanged {
		response["unchanged"] = stubSummaries(path, buckets.Unchanged)
	}

	if record && s.storage != nil {
		run, err := storage.RecordRun(ctx, s.storage, path, report.StartedAt, report.FinishedAt, buckets, false)
		if err != nil {
			s.logger.Warn("failed to record run", zap.String("path", path), zap.Error(err))
		} else {
			response["run_id"] = run.ID
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRenderStub handles the render_stub tool invocation
func (s *Server) handleRenderStub(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validateFile(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	idx, err := s.newIndexer(filepath.Dir(path))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidConfigDir, "failed to load configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	result, ok := idx.Render(ctx, path)
	if !ok {
		return nil, newMCPError(ErrorCodeNotRenderable, "gateway produced no stub (unparseable or no exported symbols)", map[string]interface{}{
			"path": path,
		})
	}

	response := map[string]interface{}{
		"init_path": result.InitPath,
		"stub_path": result.StubPath,
		"bucket":    string(result.Bucket),
		"symbols":   result.Symbols,
		"stub":      result.Body,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireDirectory(args)
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, newMCPError(ErrorCodeHistoryDisabled, "run history is disabled", nil)
	}

	status, err := s.storage.GetStatus(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if status.LatestRun == nil {
		response := map[string]interface{}{
			"scanned": false,
			"path":    path,
			"message": "Directory not scanned. Use the scan_gateways tool first.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	run := status.LatestRun
	response := map[string]interface{}{
		"scanned": true,
		"path":    path,
		"latest_run": map[string]interface{}{
			"id":          run.ID,
			"finished_at": run.FinishedAt.Format(time.RFC3339),
			"duration_ms": run.Duration().Milliseconds(),
			"created":     run.Created,
			"overwritten": run.Overwritten,
			"unchanged":   run.Unchanged,
			"applied":     run.Applied,
		},
		"statistics": map[string]interface{}{
			"runs_count":       status.RunsCount,
			"stubs_tracked":    status.StubsTracked,
			"database_size_mb": fmt.Sprintf("%.2f", status.DatabaseMB),
		},
		"busy": s.lock.Held(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFindSymbol handles the find_symbol tool invocation
func (s *Server) handleFindSymbol(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireDirectory(args)
	if err != nil {
		return nil, err
	}
	symbol := getStringDefault(args, "symbol", "")
	if symbol == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "symbol parameter is required", map[string]interface{}{
			"param":  "symbol",
			"reason": "missing or empty",
		})
	}
	if s.searcher == nil {
		return nil, newMCPError(ErrorCodeHistoryDisabled, "run history is disabled", nil)
	}

	resp, err := s.searcher.FindSymbol(ctx, path, symbol)
	if errors.Is(err, searcher.ErrNoHistory) {
		return nil, newMCPError(ErrorCodeNotScanned, "directory not scanned", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "symbol lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	matches := make([]map[string]interface{}, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, map[string]interface{}{
			"init_path": m.InitPath,
			"stub_path": m.StubPath,
			"bucket":    m.Bucket,
		})
	}
	response := map[string]interface{}{
		"symbol":    resp.Symbol,
		"run_id":    resp.RunID,
		"matches":   matches,
		"cache_hit": resp.CacheHit,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// stubSummaries describes results with paths relative to root
func stubSummaries(root string, results []types.StubResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		rel, err := filepath.Rel(root, r.StubPath)
		if err != nil {
			rel = r.StubPath
		}
		out = append(out, map[string]interface{}{
			"stub_path": filepath.ToSlash(rel),
			"symbols":   r.SymbolCount,
		})
	}
	return out
}

// requireDirectory extracts and validates the path parameter
func requireDirectory(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return filepath.Clean(path), nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// validateFile checks that path is an absolute, regular file
func validateFile(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.Mode().IsRegular() {
		return ErrNotFile
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNotFile         = errors.New("path is not a regular file")
)
