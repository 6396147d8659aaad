package graph

import (
	"strings"

	"github.com/tidwall/btree"
)

// Graph is an immutable view over a slice of blocks. A block's position in
// the input is its dense index; adjacency lists hold dense indices.
type Graph struct {
	blocks   []SpecBlock
	ids      btree.Map[string, int]
	out      [][]int
	in       [][]int
	dangling int
}

// New indexes blocks. Duplicate identifiers resolve to their first
// occurrence; edges to unknown identifiers are left out of the adjacency.
func New(blocks []SpecBlock) *Graph {
	g := &Graph{
		blocks: blocks,
		out:    make([][]int, len(blocks)),
		in:     make([][]int, len(blocks)),
	}
	for i := range blocks {
		if _, ok := g.ids.Get(blocks[i].ID); !ok {
			g.ids.Set(blocks[i].ID, i)
		}
	}
	for i := range blocks {
		for _, e := range blocks[i].Edges {
			j, ok := g.ids.Get(e.ID)
			if !ok {
				g.dangling++
				continue
			}
			g.out[i] = append(g.out[i], j)
			g.in[j] = append(g.in[j], i)
		}
	}
	return g
}

// Len returns the number of blocks.
func (g *Graph) Len() int {
	return len(g.blocks)
}

// Block returns the block at dense index i.
func (g *Graph) Block(i int) *SpecBlock {
	return &g.blocks[i]
}

// Blocks returns the underlying slice. Callers must not modify it.
func (g *Graph) Blocks() []SpecBlock {
	return g.blocks
}

// Lookup resolves an identifier to its dense index.
func (g *Graph) Lookup(id string) (int, bool) {
	return g.ids.Get(id)
}

// Out returns the targets of i's resolvable edges, in edge order.
func (g *Graph) Out(i int) []int {
	return g.out[i]
}

// In returns the blocks that reference i.
func (g *Graph) In(i int) []int {
	return g.in[i]
}

// EdgeCount returns the number of resolvable edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, o := range g.out {
		n += len(o)
	}
	return n
}

// DanglingCount returns the number of edges whose target is unknown.
func (g *Graph) DanglingCount() int {
	return g.dangling
}

// Prefix returns the dense indices of blocks whose identifier starts with
// prefix, in identifier order. An empty prefix returns every block.
func (g *Graph) Prefix(prefix string) []int {
	var idx []int
	g.ids.Ascend(prefix, func(id string, i int) bool {
		if !strings.HasPrefix(id, prefix) {
			return false
		}
		idx = append(idx, i)
		return true
	})
	return idx
}

// TypeCounts returns the number of blocks per node type.
func (g *Graph) TypeCounts() map[string]int {
	counts := make(map[string]int)
	for i := range g.blocks {
		counts[g.blocks[i].NodeType]++
	}
	return counts
}
