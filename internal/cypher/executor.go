package cypher

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/sonesuke/docgraph-sub000/internal/graph"
)

// relContext is the value a bound relationship variable resolves to.
// Relationship types are not tracked, so every edge is a plain reference.
const relContext = "references"

const warnUnanchored = "relationship pattern requires start node to have a variable"

// Executor runs queries against an immutable graph snapshot.
type Executor struct {
	Graph *graph.Graph
}

// Result holds the tabular output of a query. Every cell is a string and
// rows are aligned with Columns.
type Result struct {
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	Warnings []string   `json:"warnings,omitempty"`
}

// binding maps pattern variables to dense block indices. Relationship
// variables bound on single-hop matches live in rels.
type binding struct {
	nodes map[string]int
	rels  map[string]relRef
}

type relRef struct {
	from, to int
}

func newBinding() binding {
	return binding{
		nodes: make(map[string]int),
		rels:  make(map[string]relRef),
	}
}

// copyBinding makes a shallow copy of a binding.
func copyBinding(b binding) binding {
	c := binding{
		nodes: make(map[string]int, len(b.nodes)+1),
		rels:  make(map[string]relRef, len(b.rels)),
	}
	for k, v := range b.nodes {
		c.nodes[k] = v
	}
	for k, v := range b.rels {
		c.rels[k] = v
	}
	return c
}

// bindNode binds v to idx. An unbound v is added to a copy; a bound v keeps
// the binding only if it already points at idx.
func bindNode(b binding, v string, idx int) (binding, bool) {
	if v == "" {
		return b, true
	}
	if cur, ok := b.nodes[v]; ok {
		return b, cur == idx
	}
	if _, ok := b.rels[v]; ok {
		return b, false
	}
	c := copyBinding(b)
	c.nodes[v] = idx
	return c, true
}

// bindRel binds the relationship variable v to ref under the same rules as
// bindNode. A name already bound to a node never binds a relationship.
func bindRel(b binding, v string, ref relRef) (binding, bool) {
	if _, ok := b.nodes[v]; ok {
		return b, false
	}
	if cur, ok := b.rels[v]; ok {
		return b, cur == ref
	}
	c := copyBinding(b)
	c.rels[v] = ref
	return c, true
}

// Execute parses and runs a query. Parse failures are returned as
// *SyntaxError or *StructuralError.
func (e *Executor) Execute(query string) (*Result, error) {
	q, err := Parse(query)
	if err != nil {
		return nil, err
	}
	return e.Run(q)
}

// Run executes an already parsed query.
func (e *Executor) Run(q *Query) (*Result, error) {
	plan, err := BuildPlan(q)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return e.executePlan(plan)
}

func (e *Executor) executePlan(plan *Plan) (*Result, error) {
	var warnings []string
	bindings := []binding{newBinding()}

	for _, step := range plan.Steps {
		switch s := step.(type) {
		case *ScanNodes:
			bindings = e.execScan(s, bindings)
		case *ExpandRelationship:
			bindings = e.execExpand(s, bindings)
		case *SkipRelationship:
			slog.Warn("cypher.rel_unanchored", "end_var", s.To.Variable, "bindings", len(bindings))
			warnings = append(warnings, warnUnanchored)
		case *FilterWhere:
			bindings = e.execFilter(s, bindings)
		default:
			return nil, fmt.Errorf("unknown step type: %T", step)
		}
	}

	res := e.projectResults(bindings, plan.ReturnSpec)
	res.Warnings = warnings
	return res, nil
}

func labelMatches(p *NodePattern, b *graph.SpecBlock) bool {
	return len(p.Labels) == 0 || slices.Contains(p.Labels, b.NodeType)
}

func (e *Executor) execScan(s *ScanNodes, bindings []binding) []binding {
	var result []binding
	for _, b := range bindings {
		for i := 0; i < e.Graph.Len(); i++ {
			if !labelMatches(s.Pattern, e.Graph.Block(i)) {
				continue
			}
			if nb, ok := bindNode(b, s.Pattern.Variable, i); ok {
				result = append(result, nb)
			}
		}
	}
	return result
}

// hop is a BFS queue entry: a block reached at a given depth.
type hop struct {
	node  int
	depth int
}

func (e *Executor) execExpand(s *ExpandRelationship, bindings []binding) []binding {
	minHops, maxHops := s.Rel.Bounds()
	if maxHops < 0 {
		// No walk longer than the block count reaches anything new.
		maxHops = max(e.Graph.Len(), 1)
	}

	var result []binding
	for _, b := range bindings {
		start, ok := b.nodes[s.FromVar]
		if !ok {
			continue
		}
		if _, clash := b.nodes[s.Rel.Variable]; clash {
			continue
		}

		queue := []hop{{node: start, depth: 0}}
		visited := map[hop]bool{queue[0]: true}
		for head := 0; head < len(queue); head++ {
			cur := queue[head]

			if cur.depth >= minHops && cur.depth >= 1 && labelMatches(s.To, e.Graph.Block(cur.node)) {
				nb, ok := bindNode(b, s.To.Variable, cur.node)
				if ok && cur.depth == 1 && s.Rel.Variable != "" {
					nb, ok = bindRel(nb, s.Rel.Variable, relRef{from: start, to: cur.node})
				}
				if ok {
					result = append(result, nb)
				}
			}

			if cur.depth >= maxHops {
				continue
			}
			for _, next := range e.neighbors(cur.node, s.Rel.Direction) {
				h := hop{node: next, depth: cur.depth + 1}
				if !visited[h] {
					visited[h] = true
					queue = append(queue, h)
				}
			}
		}
	}
	return result
}

func (e *Executor) neighbors(i int, dir Direction) []int {
	switch dir {
	case DirOutgoing:
		return e.Graph.Out(i)
	case DirIncoming:
		return e.Graph.In(i)
	default:
		out, in := e.Graph.Out(i), e.Graph.In(i)
		both := make([]int, 0, len(out)+len(in))
		both = append(both, out...)
		return append(both, in...)
	}
}

func (e *Executor) execFilter(s *FilterWhere, bindings []binding) []binding {
	var result []binding
	for _, b := range bindings {
		if e.evaluate(s.Expr, b) {
			result = append(result, b)
		}
	}
	return result
}
