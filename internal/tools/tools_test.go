package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonesuke/docgraph-sub000/internal/graph"
	"github.com/sonesuke/docgraph-sub000/internal/pipeline"
)

func block(id, name string, line int, refs ...string) graph.SpecBlock {
	b := graph.SpecBlock{
		ID:        id,
		NodeType:  graph.NodeTypeOf(id),
		FilePath:  "spec.md",
		LineStart: line,
		LineEnd:   line + 3,
		Content:   `<a id="` + id + `"></a>`,
	}
	if name != "" {
		b.Name = graph.StrPtr(name)
	}
	for _, r := range refs {
		b.Edges = append(b.Edges, graph.EdgeUse{ID: r, Line: line + 1})
	}
	return b
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	g := graph.New([]graph.SpecBlock{
		block("UC_001", "Login", 1, "FR_001"),
		block("FR_001", "Authentication", 5, "MOD_001", "MOD_404"),
		block("FR_002", "", 9, "MOD_001"),
		block("MOD_001", "Auth module", 12),
	})
	return NewServer(pipeline.NewSnapshot(g), "test")
}

func call(t *testing.T, h func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), args string) *mcp.CallToolResult {
	t.Helper()
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(args)}}
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func decode(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	require.False(t, res.IsError, "unexpected tool error: %s", text(t, res))
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), v))
}

// --- query_graph ---

func TestQueryGraph(t *testing.T) {
	s := newTestServer(t)
	res := call(t, s.handleQueryGraph, `{"query": "MATCH (u:UC)-[*1..2]->(m:MOD) RETURN u.id, m.name"}`)

	var out struct {
		QueryID  string     `json:"query_id"`
		Columns  []string   `json:"columns"`
		Rows     [][]string `json:"rows"`
		Total    int        `json:"total"`
		Warnings []string   `json:"warnings"`
	}
	decode(t, res, &out)

	_, err := uuid.Parse(out.QueryID)
	assert.NoError(t, err, "query_id should be a UUID")
	assert.Equal(t, []string{"u.id", "m.name"}, out.Columns)
	assert.Equal(t, [][]string{{"UC_001", "Auth module"}}, out.Rows)
	assert.Equal(t, 1, out.Total)
	assert.Empty(t, out.Warnings)
}

func TestQueryGraph_EmptyResultIsArray(t *testing.T) {
	s := newTestServer(t)
	res := call(t, s.handleQueryGraph, `{"query": "MATCH (n:ADR) RETURN n.id"}`)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), `"rows": []`)
}

func TestQueryGraph_Warnings(t *testing.T) {
	s := newTestServer(t)
	res := call(t, s.handleQueryGraph, `{"query": "MATCH ()-->(f:FR) RETURN f.id"}`)

	var out struct {
		Warnings []string `json:"warnings"`
	}
	decode(t, res, &out)
	assert.Len(t, out.Warnings, 1)
}

func TestQueryGraph_Errors(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s.handleQueryGraph, `{}`)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "query")

	res = call(t, s.handleQueryGraph, `{"query": "MATCH (n RETURN n"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "syntax error: line 1:")
	assert.Contains(t, text(t, res), "^")

	res = call(t, s.handleQueryGraph, `{"query": "MATCH (n:FR)"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "Missing RETURN clause")

	res = call(t, s.handleQueryGraph, `not json`)
	assert.True(t, res.IsError)
}

func TestQueryGraph_SeesSnapshotSwap(t *testing.T) {
	s := newTestServer(t)
	s.snap.Store(graph.New([]graph.SpecBlock{block("ADR_001", "Use SQLite", 1)}), pipeline.Stats{})

	res := call(t, s.handleQueryGraph, `{"query": "MATCH (n) RETURN n.id"}`)
	var out struct {
		Rows [][]string `json:"rows"`
	}
	decode(t, res, &out)
	assert.Equal(t, [][]string{{"ADR_001"}}, out.Rows)
}

// --- get_block ---

func TestGetBlock(t *testing.T) {
	s := newTestServer(t)
	res := call(t, s.handleGetBlock, `{"id": "FR_001"}`)

	var out BlockDetail
	decode(t, res, &out)
	assert.Equal(t, "FR_001", out.ID)
	assert.Equal(t, "FR", out.Type)
	require.NotNil(t, out.Name)
	assert.Equal(t, "Authentication", *out.Name)
	assert.Equal(t, 5, out.LineStart)
	assert.Equal(t, []string{"MOD_001"}, out.Outgoing)
	assert.Equal(t, []string{"UC_001"}, out.Incoming)
	assert.Equal(t, []string{"MOD_404"}, out.Dangling)
}

func TestGetBlock_Errors(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s.handleGetBlock, `{"id": "FR_999"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "FR_999")

	res = call(t, s.handleGetBlock, `{"id": "FR_01"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "did you mean FR_001")

	res = call(t, s.handleGetBlock, `{}`)
	assert.True(t, res.IsError)
}

// --- list_blocks ---

func TestListBlocks(t *testing.T) {
	s := newTestServer(t)

	var out struct {
		Blocks []BlockSummary `json:"blocks"`
		Total  int            `json:"total"`
	}
	decode(t, call(t, s.handleListBlocks, `{}`), &out)
	require.Len(t, out.Blocks, 4)
	assert.Equal(t, "FR_001", out.Blocks[0].ID, "ID order")
	assert.Equal(t, "UC_001", out.Blocks[3].ID)
	assert.Equal(t, "null", out.Blocks[1].Name)

	decode(t, call(t, s.handleListBlocks, `{"prefix": "FR", "limit": 1}`), &out)
	require.Len(t, out.Blocks, 1)
	assert.Equal(t, "FR_001", out.Blocks[0].ID)
	assert.Equal(t, 2, out.Total)
}

// --- graph_stats ---

func TestGraphStats(t *testing.T) {
	s := newTestServer(t)

	var out struct {
		Blocks   int            `json:"blocks"`
		Edges    int            `json:"edges"`
		Dangling int            `json:"dangling_edges"`
		Types    map[string]int `json:"types"`
	}
	decode(t, call(t, s.handleGraphStats, `{}`), &out)
	assert.Equal(t, 4, out.Blocks)
	assert.Equal(t, 3, out.Edges)
	assert.Equal(t, 1, out.Dangling)
	assert.Equal(t, map[string]int{"UC": 1, "FR": 2, "MOD": 1}, out.Types)
}
