// Package check validates a graph against the node type and relation rules
// declared in docgraph.toml.
package check

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/sonesuke/docgraph-sub000/internal/config"
	"github.com/sonesuke/docgraph-sub000/internal/graph"
)

// Rule codes.
const (
	CodeUnknownType = "DG005"
	CodeRelation    = "DG006"
)

const (
	wildcard = "*"
	dirFrom  = "from"
	dirTo    = "to"
)

// Diagnostic is one rule violation, anchored at the offending block.
type Diagnostic struct {
	Code    string `json:"code"`
	ID      string `json:"id"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Run checks every block of g. Node types are enforced only when
// graph.strict_node_types is set; reference cardinality rules always
// apply; graph.strict_relations additionally rejects edges to types no
// "to" rule allows, except targets listed in graph.doc_types.
func Run(g *graph.Graph, cfg *config.Config) []Diagnostic {
	var diags []Diagnostic
	blocks := g.Blocks()

	// incoming[id] lists the source types of every edge pointing at id.
	incoming := make(map[string][]string)
	for i := range blocks {
		for _, e := range blocks[i].Edges {
			incoming[e.ID] = append(incoming[e.ID], blocks[i].NodeType)
		}
	}

	for i := range blocks {
		b := &blocks[i]
		if cfg.Graph.StrictNodeTypes {
			if _, ok := cfg.NodeTypes[b.NodeType]; !ok {
				diags = append(diags, diag(b, CodeUnknownType,
					"unknown node type prefix %q in ID %q; declared: %s",
					b.NodeType, b.ID, strings.Join(declaredTypes(cfg), ", ")))
			}
		}

		ref, ok := cfg.References[b.NodeType]
		if !ok {
			continue
		}
		allowed := map[string]bool{}
		for _, r := range ref.Rules {
			var count int
			switch r.Dir {
			case dirFrom:
				count = countMatching(incoming[b.ID], r.Targets)
			case dirTo:
				for _, t := range r.Targets {
					allowed[t] = true
				}
				types := make([]string, 0, len(b.Edges))
				for _, e := range b.Edges {
					types = append(types, graph.NodeTypeOf(e.ID))
				}
				count = countMatching(types, r.Targets)
			default:
				continue
			}
			diags = append(diags, cardinality(b, r, count)...)
		}

		if cfg.Graph.StrictRelations && !allowed[wildcard] {
			for _, e := range b.Edges {
				t := graph.NodeTypeOf(e.ID)
				if allowed[t] || slices.Contains(cfg.Graph.DocTypes, t) || acceptsAll(cfg, t) {
					continue
				}
				diags = append(diags, diag(b, CodeRelation,
					"node %q (type %s) is not allowed to reference %q (type %s)",
					b.ID, b.NodeType, e.ID, t))
			}
		}
	}
	return diags
}

func cardinality(b *graph.SpecBlock, r config.RuleConfig, count int) []Diagnostic {
	verb := "reference"
	if r.Dir == dirFrom {
		verb = "be referenced by"
	}
	targets := strings.Join(r.Targets, "/")
	var out []Diagnostic
	if r.Min != nil && count < *r.Min {
		out = append(out, diag(b, CodeRelation,
			"node %q (type %s) must %s at least %d %s node(s), found %d%s",
			b.ID, b.NodeType, verb, *r.Min, targets, count, reason(r)))
	}
	if r.Max != nil && count > *r.Max {
		out = append(out, diag(b, CodeRelation,
			"node %q (type %s) may %s at most %d %s node(s), found %d%s",
			b.ID, b.NodeType, verb, *r.Max, targets, count, reason(r)))
	}
	return out
}

func reason(r config.RuleConfig) string {
	if r.Desc == "" {
		return ""
	}
	return " (" + r.Desc + ")"
}

func countMatching(types, targets []string) int {
	all := slices.Contains(targets, wildcard)
	n := 0
	for _, t := range types {
		if all || slices.Contains(targets, t) {
			n++
		}
	}
	return n
}

// acceptsAll reports whether typ declares a "from *" rule.
func acceptsAll(cfg *config.Config, typ string) bool {
	for _, r := range cfg.References[typ].Rules {
		if r.Dir == dirFrom && slices.Contains(r.Targets, wildcard) {
			return true
		}
	}
	return false
}

func declaredTypes(cfg *config.Config) []string {
	types := make([]string, 0, len(cfg.NodeTypes))
	for t := range cfg.NodeTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func diag(b *graph.SpecBlock, code, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:    code,
		ID:      b.ID,
		File:    b.FilePath,
		Line:    b.LineStart,
		Message: fmt.Sprintf(format, args...),
	}
}
