package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleGraphStats(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, idx := s.snap.Load()
	return jsonResult(map[string]any{
		"blocks":         g.Len(),
		"edges":          g.EdgeCount(),
		"dangling_edges": g.DanglingCount(),
		"types":          g.TypeCounts(),
		"files":          idx.Files,
		"indexed_in_ms":  idx.Elapsed.Milliseconds(),
	}), nil
}
