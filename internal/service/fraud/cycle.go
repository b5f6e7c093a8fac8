package fraud

import (
	"github.com/google/uuid"

	"github.com/davidleathers/trustguard-backend/internal/domain/transaction"
)

// CycleDetector finds short return cycles (A -> ... -> A) in the directed
// transfer graph, bounded by a maximum hop count. Worst case is exponential
// in maxHops per node, which is acceptable because the hop limit is a small
// fixed constant.
type CycleDetector struct {
	maxHops int
}

// NewCycleDetector creates a detector with the given hop bound.
func NewCycleDetector(maxHops int) *CycleDetector {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &CycleDetector{maxHops: maxHops}
}

// EdgesFromTransactions projects transactions to directed edges, preserving
// input order so traversal is deterministic. Self-transfers are skipped.
func EdgesFromTransactions(txs []transaction.Transaction) []Edge {
	edges := make([]Edge, 0, len(txs))
	for _, tx := range txs {
		if tx.IsSelfTransfer() {
			continue
		}
		edges = append(edges, Edge{From: tx.FromUserID, To: tx.ToUserID})
	}
	return edges
}

// FindCycles searches from every distinct source node for a path back to
// itself of at most maxHops edges. The first cycle found per start node is
// returned; the search does not enumerate all cycles through a node.
func (d *CycleDetector) FindCycles(edges []Edge) []Cycle {
	adj := make(map[uuid.UUID][]uuid.UUID)
	var sources []uuid.UUID
	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		if _, seen := adj[e.From]; !seen {
			sources = append(sources, e.From)
		}
		adj[e.From] = append(adj[e.From], e.To)
	}

	var cycles []Cycle
	for _, start := range sources {
		if path := d.searchFrom(start, adj); path != nil {
			cycles = append(cycles, Cycle{Start: start, Path: path})
		}
	}
	return cycles
}

type searchFrame struct {
	node uuid.UUID
	path []uuid.UUID
}

// searchFrom runs a depth-bounded DFS with explicit path tracking so a node
// is never revisited within the same path.
func (d *CycleDetector) searchFrom(start uuid.UUID, adj map[uuid.UUID][]uuid.UUID) []uuid.UUID {
	stack := []searchFrame{{node: start, path: []uuid.UUID{start}}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(frame.path) > d.maxHops {
			continue
		}
		for _, next := range adj[frame.node] {
			if next == start && len(frame.path) > 1 {
				return append(append([]uuid.UUID{}, frame.path...), start)
			}
			if containsNode(frame.path, next) {
				continue
			}
			extended := make([]uuid.UUID, len(frame.path)+1)
			copy(extended, frame.path)
			extended[len(frame.path)] = next
			stack = append(stack, searchFrame{node: next, path: extended})
		}
	}
	return nil
}

func containsNode(path []uuid.UUID, node uuid.UUID) bool {
	for _, p := range path {
		if p == node {
			return true
		}
	}
	return false
}
