package pipeline

import (
	"sync/atomic"

	"github.com/sonesuke/docgraph-sub000/internal/graph"
)

// state is one published graph together with the pass that built it.
type state struct {
	g     *graph.Graph
	stats Stats
}

// Snapshot publishes the current graph to concurrent readers. Readers get an
// immutable graph; a reload swaps in a whole new one along with its stats.
type Snapshot struct {
	cur atomic.Pointer[state]
}

// NewSnapshot returns a snapshot holding g (an empty graph when nil).
func NewSnapshot(g *graph.Graph) *Snapshot {
	s := &Snapshot{}
	s.Store(g, Stats{})
	return s
}

// Load returns the current graph and the stats of the pass that produced
// it, as one consistent pair. The graph is never nil.
func (s *Snapshot) Load() (*graph.Graph, Stats) {
	st := s.cur.Load()
	return st.g, st.stats
}

// Graph returns the current graph. It is never nil.
func (s *Snapshot) Graph() *graph.Graph {
	return s.cur.Load().g
}

// Stats returns the stats of the pass that produced the current graph.
func (s *Snapshot) Stats() Stats {
	return s.cur.Load().stats
}

// Store replaces the current graph and its stats in one step.
func (s *Snapshot) Store(g *graph.Graph, stats Stats) {
	if g == nil {
		g = graph.New(nil)
	}
	s.cur.Store(&state{g: g, stats: stats})
}
