package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sonesuke/docgraph-sub000/internal/cypher"
	"github.com/sonesuke/docgraph-sub000/internal/metrics"
)

func (s *Server) handleQueryGraph(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	query := getStringArg(args, "query")
	if query == "" {
		return errResult("missing required 'query' parameter"), nil
	}

	queryID := uuid.NewString()
	start := time.Now()
	exec := &cypher.Executor{Graph: s.snap.Graph()}
	result, err := exec.Execute(query)
	elapsed := time.Since(start)
	if err != nil {
		status := metrics.StatusError
		if cypher.IsParseError(err) {
			status = metrics.StatusParseError
		}
		metrics.ObserveQuery(status, elapsed)
		slog.Warn("query.err", "query_id", queryID, "status", status, "err", err)
		return errResult(fmt.Sprintf("query error: %s", cypher.Describe(err, query))), nil
	}
	metrics.ObserveQuery(metrics.StatusOK, elapsed)
	slog.Debug("query.done", "query_id", queryID, "rows", len(result.Rows), "elapsed", elapsed)

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	rows := result.Rows
	if rows == nil {
		rows = [][]string{}
	}
	return jsonResult(map[string]any{
		"query_id": queryID,
		"columns":  result.Columns,
		"rows":     rows,
		"total":    len(rows),
		"warnings": warnings,
	}), nil
}
