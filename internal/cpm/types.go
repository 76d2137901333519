package cpm

import (
	"slices"

	"github.com/joshharrison/pertloom/internal/graph"
)

// TaskSchedule holds the scheduling info for a single task.
type TaskSchedule struct {
	TaskID     string
	Duration   int
	ES, EF     int // earliest start/finish
	LS, LF     int // latest start/finish
	Slack      int // min over successors of (successor ES - EF); 0 for sinks
	TotalFloat int // LS - ES
	Level      int // longest predecessor chain reaching the task
	IsCritical bool // on at least one critical path
}

// LevelGroup lists the tasks sharing a dependency depth.
type LevelGroup struct {
	Level   int
	TaskIDs []string
}

// Edge is a dependency edge, flagged when consecutive on a critical path.
type Edge struct {
	From, To string
	Critical bool
}

// Report is the complete, read-only result of one scheduling run.
// Accessors return copies; nothing a caller does to them reaches the report.
type Report struct {
	source        string
	g             *graph.TaskGraph
	tasks         map[string]*TaskSchedule
	topoOrder     []string
	criticalPaths [][]string
	criticalEdges map[[2]string]bool
	totalDuration int
}

// Source names where the task table came from.
func (r *Report) Source() string {
	return r.source
}

// TaskIDs returns task ids in input order.
func (r *Report) TaskIDs() []string {
	return slices.Clone(r.g.Order)
}

// TopoOrder returns the order in which the forward pass resolved tasks.
func (r *Report) TopoOrder() []string {
	return slices.Clone(r.topoOrder)
}

// Task returns a copy of one task's schedule.
func (r *Report) Task(id string) (TaskSchedule, bool) {
	ts, ok := r.tasks[id]
	if !ok {
		return TaskSchedule{}, false
	}
	return *ts, true
}

// Tasks returns every task schedule in input order.
func (r *Report) Tasks() []TaskSchedule {
	out := make([]TaskSchedule, 0, len(r.g.Order))
	for _, id := range r.g.Order {
		out = append(out, *r.tasks[id])
	}
	return out
}

// StartTimes returns task -> earliest start.
func (r *Report) StartTimes() map[string]int {
	return r.project(func(ts *TaskSchedule) int { return ts.ES })
}

// FinishTimes returns task -> earliest finish.
func (r *Report) FinishTimes() map[string]int {
	return r.project(func(ts *TaskSchedule) int { return ts.EF })
}

// Slacks returns task -> slack.
func (r *Report) Slacks() map[string]int {
	return r.project(func(ts *TaskSchedule) int { return ts.Slack })
}

// Levels returns task -> level.
func (r *Report) Levels() map[string]int {
	return r.project(func(ts *TaskSchedule) int { return ts.Level })
}

func (r *Report) project(f func(*TaskSchedule) int) map[string]int {
	out := make(map[string]int, len(r.tasks))
	for id, ts := range r.tasks {
		out[id] = f(ts)
	}
	return out
}

// CriticalPaths returns every zero-slack chain from a start task to a sink.
func (r *Report) CriticalPaths() [][]string {
	out := make([][]string, len(r.criticalPaths))
	for i, p := range r.criticalPaths {
		out[i] = slices.Clone(p)
	}
	return out
}

// TotalDuration is the largest earliest finish across all tasks.
func (r *Report) TotalDuration() int {
	return r.totalDuration
}

// StartTask returns the first task (input order) with the smallest start.
func (r *Report) StartTask() string {
	best := ""
	for _, id := range r.g.Order {
		if best == "" || r.tasks[id].ES < r.tasks[best].ES {
			best = id
		}
	}
	return best
}

// EndTask returns the first task (input order) with the largest finish.
func (r *Report) EndTask() string {
	best := ""
	for _, id := range r.g.Order {
		if best == "" || r.tasks[id].EF > r.tasks[best].EF {
			best = id
		}
	}
	return best
}

// LevelGroups returns tasks grouped by level, ascending, each group in input order.
func (r *Report) LevelGroups() []LevelGroup {
	maxLevel := -1
	for _, ts := range r.tasks {
		maxLevel = max(maxLevel, ts.Level)
	}
	groups := make([]LevelGroup, maxLevel+1)
	for i := range groups {
		groups[i].Level = i
	}
	for _, id := range r.g.Order {
		lvl := r.tasks[id].Level
		groups[lvl].TaskIDs = append(groups[lvl].TaskIDs, id)
	}
	return groups
}

// Successors returns the direct successors of id in input order.
func (r *Report) Successors(id string) []string {
	return r.g.Successors(id)
}

// Predecessors returns the direct predecessors of id.
func (r *Report) Predecessors(id string) []string {
	return r.g.Predecessors(id)
}

// Edges returns every dependency edge, grouped by predecessor in input order.
func (r *Report) Edges() []Edge {
	var out []Edge
	for _, from := range r.g.Order {
		for _, to := range r.g.Adj[from] {
			out = append(out, Edge{From: from, To: to, Critical: r.criticalEdges[[2]string{from, to}]})
		}
	}
	return out
}
