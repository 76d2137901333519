package graph

import (
	"fmt"

	"github.com/joshharrison/pertloom/internal/table"
)

// Build constructs a TaskGraph from a validated task table. Adjacency lists
// follow input order so every traversal over the graph is deterministic.
//
// The table loader guarantees every predecessor names a defined task; a
// violation here is a programming error and panics.
func Build(t *table.Table) *TaskGraph {
	g := &TaskGraph{
		Tasks:  make(map[string]*Task, len(t.Rows)),
		Order:  make([]string, 0, len(t.Rows)),
		Adj:    make(map[string][]string),
		RevAdj: make(map[string][]string),
	}

	for _, r := range t.Rows {
		g.Tasks[r.ID] = &Task{ID: r.ID, Duration: r.Duration, Line: r.Line}
		g.Order = append(g.Order, r.ID)
	}

	// Invert the predecessor column. Successor lists are appended in input
	// order of the dependent row, matching how the table lists them.
	edgeSet := make(map[[2]string]bool)
	for _, r := range t.Rows {
		if r.Independent() {
			g.Roots = append(g.Roots, r.ID)
			continue
		}
		for _, pred := range r.Predecessors {
			if _, ok := g.Tasks[pred]; !ok {
				panic(fmt.Sprintf("graph: predecessor %q of %q has no task entry", pred, r.ID))
			}
			key := [2]string{pred, r.ID}
			if edgeSet[key] {
				continue
			}
			edgeSet[key] = true
			g.Adj[pred] = append(g.Adj[pred], r.ID)
			g.RevAdj[r.ID] = append(g.RevAdj[r.ID], pred)
		}
	}

	for _, id := range g.Order {
		if len(g.Adj[id]) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}

	return g
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
// The returned path starts and ends with the same task.
func (g *TaskGraph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.Adj[node] {
			if color[next] == gray {
				// Walk parents back from node to next, then close the loop.
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range g.Order {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TaskCount returns the number of tasks in the graph.
func (g *TaskGraph) TaskCount() int {
	return len(g.Tasks)
}

// EdgeCount returns the number of dependency edges.
func (g *TaskGraph) EdgeCount() int {
	n := 0
	for _, succ := range g.Adj {
		n += len(succ)
	}
	return n
}

// HasEdge reports whether to directly depends on from.
func (g *TaskGraph) HasEdge(from, to string) bool {
	for _, s := range g.Adj[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Successors returns a copy of the direct successors of id.
func (g *TaskGraph) Successors(id string) []string {
	return append([]string(nil), g.Adj[id]...)
}

// Predecessors returns a copy of the direct predecessors of id.
func (g *TaskGraph) Predecessors(id string) []string {
	return append([]string(nil), g.RevAdj[id]...)
}
