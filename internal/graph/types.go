package graph

// Task is a schedulable unit of work. Immutable once built.
type Task struct {
	ID       string
	Duration int
	Line     int // source line, for diagnostics
}

// TaskGraph is the dependency graph of a task table.
//
// The sentinel predecessor is modeled as a virtual root that is detached
// before scheduling: its successors become Roots and it never appears in
// Tasks, Adj or RevAdj.
type TaskGraph struct {
	Tasks  map[string]*Task
	Order  []string            // task ids in input order
	Adj    map[string][]string // task -> direct successors (tasks that depend on it)
	RevAdj map[string][]string // task -> direct predecessors
	Roots  []string            // tasks with no predecessor, input order
	Leaves []string            // tasks with no successor, input order
}
