package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sonesuke/docgraph-sub000/internal/pipeline"
)

// Server wraps the MCP server with tool handlers over the current graph.
type Server struct {
	mcp  *mcp.Server
	snap *pipeline.Snapshot
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(snap *pipeline.Snapshot, version string) *Server {
	srv := &Server{
		snap: snap,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "docgraph",
				Version: version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	// 1. query_graph
	s.mcp.AddTool(&mcp.Tool{
		Name:        "query_graph",
		Description: "Execute a read-only Cypher-style query over the spec block graph. Supports MATCH with node labels (ID prefixes, OR semantics), directed and variable-length relationships (-[*1..3]->), WHERE with =, <>, <, >, <=, >=, CONTAINS, AND, OR, and RETURN of variables or properties (id, type, name, file, line, content). All values are strings.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "Query, e.g. MATCH (u:UC)-[*1..2]->(f:FR) WHERE f.name <> \"null\" RETURN u.id, f.id, f.name"
				}
			},
			"required": ["query"]
		}`),
	}, s.handleQueryGraph)

	// 2. get_block
	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_block",
		Description: "Return one spec block by ID: type, name, file, line range, content, and the IDs of blocks it references (outgoing) and that reference it (incoming).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {
					"type": "string",
					"description": "Block identifier (e.g. 'FR-001')"
				}
			},
			"required": ["id"]
		}`),
	}, s.handleGetBlock)

	// 3. list_blocks
	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_blocks",
		Description: "List spec blocks in ID order, optionally restricted to an ID prefix. Returns id, type, name, and file location.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"prefix": {
					"type": "string",
					"description": "ID prefix filter (e.g. 'FR' or 'FR-01')"
				},
				"limit": {
					"type": "integer",
					"description": "Max results (default 100, max 1000)"
				}
			}
		}`),
	}, s.handleListBlocks)

	// 4. graph_stats
	s.mcp.AddTool(&mcp.Tool{
		Name:        "graph_stats",
		Description: "Summarize the loaded graph: block count, resolved and dangling edge counts, and blocks per node type.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleGraphStats)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}
