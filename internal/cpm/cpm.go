// Package cpm computes a critical path schedule over a task graph: earliest
// start/finish, slack, critical paths and dependency levels.
package cpm

import (
	"context"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/joshharrison/pertloom/internal/ctxlog"
	"github.com/joshharrison/pertloom/internal/graph"
)

// Analyze performs critical path analysis on a task graph. It returns a
// *CycleError when some tasks can never be resolved and an *OverflowError
// when a finish time does not fit in an int.
func Analyze(ctx context.Context, g *graph.TaskGraph) (*Report, error) {
	log := ctxlog.FromContext(ctx)

	order, err := topoSort(g)
	if err != nil {
		return nil, err
	}
	log.Debug("resolved tasks", "tasks", len(order), "edges", g.EdgeCount())

	r := &Report{
		g:             g,
		tasks:         make(map[string]*TaskSchedule, len(order)),
		topoOrder:     order,
		criticalEdges: make(map[[2]string]bool),
	}
	for _, id := range order {
		r.tasks[id] = &TaskSchedule{TaskID: id, Duration: g.Tasks[id].Duration}
	}

	if err := forwardPass(g, order, r.tasks); err != nil {
		return nil, err
	}

	for _, ts := range r.tasks {
		r.totalDuration = max(r.totalDuration, ts.EF)
	}

	computeSlack(g, r.tasks)
	backwardPass(g, order, r.tasks, r.totalDuration)
	assignLevels(g, order, r.tasks)

	for path := range criticalPaths(g, r.tasks) {
		r.criticalPaths = append(r.criticalPaths, path)
		for i, id := range path {
			r.tasks[id].IsCritical = true
			if i > 0 {
				r.criticalEdges[[2]string{path[i-1], id}] = true
			}
		}
	}
	log.Debug("critical paths", "count", len(r.criticalPaths), "duration", r.totalDuration)

	return r, nil
}

// topoSort performs Kahn's algorithm for topological sorting. Roots seed the
// queue in input order and successors are released in adjacency order, so
// the result is deterministic for a given table.
func topoSort(g *graph.TaskGraph) ([]string, error) {
	inDegree := make(map[string]int, len(g.Tasks))
	for id := range g.Tasks {
		inDegree[id] = len(g.RevAdj[id])
	}

	queue := slices.Clone(g.Roots)
	order := make([]string, 0, len(g.Tasks))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, succ := range g.Adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(order) != len(g.Tasks) {
		var unresolved []string
		for _, id := range g.Order {
			if inDegree[id] > 0 {
				unresolved = append(unresolved, id)
			}
		}
		return nil, &CycleError{Cycle: g.DetectCycle(), Unresolved: unresolved}
	}

	return order, nil
}

// forwardPass sets ES = max EF over predecessors (0 for roots), EF = ES + duration.
// A finish time that would not fit in an int is an *OverflowError.
func forwardPass(g *graph.TaskGraph, order []string, tasks map[string]*TaskSchedule) error {
	for _, id := range order {
		ts := tasks[id]
		es := 0
		for _, pred := range g.RevAdj[id] {
			es = max(es, mustTask(tasks, pred).EF)
		}
		if ts.Duration > math.MaxInt-es {
			return &OverflowError{TaskID: id, Start: es, Duration: ts.Duration}
		}
		ts.ES = es
		ts.EF = es + ts.Duration
	}
	return nil
}

// computeSlack sets slack to the minimum gap between a task's finish and the
// start of each successor. Tasks without successors have slack 0.
func computeSlack(g *graph.TaskGraph, tasks map[string]*TaskSchedule) {
	for id, ts := range tasks {
		succs := g.Adj[id]
		if len(succs) == 0 {
			ts.Slack = 0
			continue
		}
		slack := mustTask(tasks, succs[0]).ES - ts.EF
		for _, succ := range succs[1:] {
			slack = min(slack, mustTask(tasks, succ).ES-ts.EF)
		}
		ts.Slack = slack
	}
}

// backwardPass computes latest start/finish against the project end and the
// resulting total float.
func backwardPass(g *graph.TaskGraph, order []string, tasks map[string]*TaskSchedule, total int) {
	for i := len(order) - 1; i >= 0; i-- {
		ts := tasks[order[i]]
		lf := total
		for _, succ := range g.Adj[ts.TaskID] {
			lf = min(lf, mustTask(tasks, succ).LS)
		}
		ts.LF = lf
		ts.LS = lf - ts.Duration
		ts.TotalFloat = ts.LS - ts.ES
	}
}

// assignLevels sets level 0 for tasks without predecessors, otherwise one
// more than the deepest predecessor. Topological order guarantees every
// predecessor level is final before it is read.
func assignLevels(g *graph.TaskGraph, order []string, tasks map[string]*TaskSchedule) {
	for _, id := range order {
		preds := g.RevAdj[id]
		if len(preds) == 0 {
			tasks[id].Level = 0
			continue
		}
		lvl := 0
		for _, pred := range preds {
			lvl = max(lvl, mustTask(tasks, pred).Level+1)
		}
		tasks[id].Level = lvl
	}
}

// criticalPaths yields every chain of zero-slack tasks that starts at a root
// and ends at a sink. A positive-slack task ends its branch without being
// appended, and a branch only yields when it reaches a sink.
//
// Only roots seed the search: any other task starting at 0 hangs off a root
// through zero-duration, zero-slack predecessors, so its chains are suffixes
// of ones already yielded.
//
// All frames share one path buffer. A frame records the prefix length it
// extends; popping it truncates the buffer to that depth, which is safe
// because deeper frames are always popped first. Yielded paths are clones.
func criticalPaths(g *graph.TaskGraph, tasks map[string]*TaskSchedule) iter.Seq[[]string] {
	type frame struct {
		id    string
		depth int
	}

	return func(yield func([]string) bool) {
		var path []string
		for _, root := range g.Roots {
			stack := []frame{{id: root}}
			for len(stack) > 0 {
				f := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if mustTask(tasks, f.id).Slack != 0 {
					continue
				}
				path = append(path[:f.depth], f.id)

				succs := g.Adj[f.id]
				if len(succs) == 0 {
					if !yield(slices.Clone(path)) {
						return
					}
					continue
				}
				// Push in reverse so successors are explored in input order.
				for i := len(succs) - 1; i >= 0; i-- {
					stack = append(stack, frame{id: succs[i], depth: len(path)})
				}
			}
		}
	}
}

func mustTask(tasks map[string]*TaskSchedule, id string) *TaskSchedule {
	ts, ok := tasks[id]
	if !ok {
		panic(fmt.Sprintf("cpm: task %q referenced by the graph has no schedule", id))
	}
	return ts
}
