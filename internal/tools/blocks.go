package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sonesuke/docgraph-sub000/internal/graph"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// BlockDetail is a block together with its resolved neighbours.
type BlockDetail struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Name      *string  `json:"name"`
	File      string   `json:"file"`
	LineStart int      `json:"line_start"`
	LineEnd   int      `json:"line_end"`
	Content   string   `json:"content"`
	Outgoing  []string `json:"outgoing"`
	Incoming  []string `json:"incoming"`
	Dangling  []string `json:"dangling,omitempty"`
}

// BlockSummary is one entry of a block listing.
type BlockSummary struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// DescribeBlock collects the fields and neighbour IDs of block i.
func DescribeBlock(g *graph.Graph, i int) BlockDetail {
	b := g.Block(i)
	d := BlockDetail{
		ID:        b.ID,
		Type:      b.NodeType,
		Name:      b.Name,
		File:      b.FilePath,
		LineStart: b.LineStart,
		LineEnd:   b.LineEnd,
		Content:   b.Content,
		Outgoing:  []string{},
		Incoming:  []string{},
	}
	for _, j := range g.Out(i) {
		d.Outgoing = append(d.Outgoing, g.Block(j).ID)
	}
	for _, j := range g.In(i) {
		d.Incoming = append(d.Incoming, g.Block(j).ID)
	}
	for _, e := range b.Edges {
		if _, ok := g.Lookup(e.ID); !ok {
			d.Dangling = append(d.Dangling, e.ID)
		}
	}
	return d
}

// ListBlocks returns blocks whose ID starts with prefix in ID order. A
// non-positive limit means no limit.
func ListBlocks(g *graph.Graph, prefix string, limit int) []BlockSummary {
	idx := g.Prefix(prefix)
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}
	out := make([]BlockSummary, 0, len(idx))
	for _, i := range idx {
		b := g.Block(i)
		out = append(out, BlockSummary{
			ID:   b.ID,
			Type: b.NodeType,
			Name: b.DisplayName(),
			File: b.FilePath,
			Line: b.LineStart,
		})
	}
	return out
}

// NotFoundMessage reports an unknown block id with close matches, if any.
func NotFoundMessage(g *graph.Graph, id string) string {
	msg := fmt.Sprintf("block not found: %s", id)
	if similar := g.Similar(id, 3); len(similar) > 0 {
		msg += " (did you mean " + strings.Join(similar, ", ") + "?)"
	}
	return msg
}

func (s *Server) handleGetBlock(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	id := getStringArg(args, "id")
	if id == "" {
		return errResult("missing required 'id' parameter"), nil
	}

	g := s.snap.Graph()
	i, ok := g.Lookup(id)
	if !ok {
		return errResult(NotFoundMessage(g, id)), nil
	}
	return jsonResult(DescribeBlock(g, i)), nil
}

func (s *Server) handleListBlocks(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	limit := getIntArg(args, "limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	g := s.snap.Graph()
	prefix := getStringArg(args, "prefix")
	blocks := ListBlocks(g, prefix, limit)
	return jsonResult(map[string]any{
		"blocks": blocks,
		"total":  len(g.Prefix(prefix)),
	}), nil
}
