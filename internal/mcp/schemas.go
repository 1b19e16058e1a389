package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// scanGatewaysTool returns the tool definition for scan_gateways
func scanGatewaysTool() mcp.Tool {
	return mcp.Tool{
		Name:        "scan_gateways",
		Description: "Find dynamic-import gateway files below a directory and classify the .pyi stubs they need, without writing anything",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory to scan",
				},
				"include_unchanged": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, also list gateways whose stub is already up to date",
					"default":     false,
				},
				"record": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, record the scan in run history (enables find_symbol)",
					"default":     true,
				},
			},
			Required: []string{"path"},
		},
	}
}

// renderStubTool returns the tool definition for render_stub
func renderStubTool() mcp.Tool {
	return mcp.Tool{
		Name:        "render_stub",
		Description: "Render the .pyi stub text for a single gateway file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the gateway file (usually __init__.py)",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Show the latest recorded scan of a directory and history statistics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the scanned directory",
				},
			},
			Required: []string{"path"},
		},
	}
}

// findSymbolTool returns the tool definition for find_symbol
func findSymbolTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_symbol",
		Description: "List the gateways whose stub exports a symbol, based on the latest recorded scan",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the scanned directory",
				},
				"symbol": map[string]interface{}{
					"type":        "string",
					"description": "Exported name to look up (e.g. Model)",
				},
			},
			Required: []string{"path", "symbol"},
		},
	}
}
