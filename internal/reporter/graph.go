package reporter

import (
	"github.com/joshharrison/pertloom/internal/cpm"
)

// GraphNode is one task as seen by rendering collaborators.
type GraphNode struct {
	ID         string `json:"id" toml:"id"`
	Duration   int    `json:"duration" toml:"duration"`
	Start      int    `json:"start" toml:"start"`
	Finish     int    `json:"finish" toml:"finish"`
	Slack      int    `json:"slack" toml:"slack"`
	TotalFloat int    `json:"total_float" toml:"total_float"`
	Level      int    `json:"level" toml:"level"`
	IsCritical bool   `json:"is_critical" toml:"is_critical"`
	IsStart    bool   `json:"is_start,omitempty" toml:"is_start,omitempty"`
	IsEnd      bool   `json:"is_end,omitempty" toml:"is_end,omitempty"`
}

// GraphEdge is a dependency edge; Critical edges join consecutive tasks of a critical path.
type GraphEdge struct {
	From     string `json:"from" toml:"from"`
	To       string `json:"to" toml:"to"`
	Critical bool   `json:"critical" toml:"critical"`
}

// GraphLevel groups task ids by level.
type GraphLevel struct {
	Level int      `json:"level" toml:"level"`
	Tasks []string `json:"tasks" toml:"tasks"`
}

// GraphMetadata summarizes the run.
type GraphMetadata struct {
	Source        string `json:"source" toml:"source"`
	TotalTasks    int    `json:"total_tasks" toml:"total_tasks"`
	TotalDuration int    `json:"total_duration" toml:"total_duration"`
	StartTask     string `json:"start_task" toml:"start_task"`
	EndTask       string `json:"end_task" toml:"end_task"`
}

// Graph is the normalised view of a report that diagrams and UIs render.
type Graph struct {
	Metadata      GraphMetadata `json:"metadata" toml:"metadata"`
	Nodes         []GraphNode   `json:"nodes" toml:"nodes"`
	Edges         []GraphEdge   `json:"edges" toml:"edges"`
	CriticalPaths [][]string    `json:"critical_paths" toml:"critical_paths"`
	Levels        []GraphLevel  `json:"levels" toml:"levels"`
}

// ToGraph converts a report into the Graph view. Nodes and edges follow input order.
func ToGraph(rep *cpm.Report) *Graph {
	start, end := rep.StartTask(), rep.EndTask()

	g := &Graph{
		Metadata: GraphMetadata{
			Source:        rep.Source(),
			TotalTasks:    len(rep.TaskIDs()),
			TotalDuration: rep.TotalDuration(),
			StartTask:     start,
			EndTask:       end,
		},
		Nodes:         []GraphNode{},
		Edges:         []GraphEdge{},
		CriticalPaths: rep.CriticalPaths(),
	}
	if g.CriticalPaths == nil {
		g.CriticalPaths = [][]string{}
	}

	for _, ts := range rep.Tasks() {
		g.Nodes = append(g.Nodes, GraphNode{
			ID:         ts.TaskID,
			Duration:   ts.Duration,
			Start:      ts.ES,
			Finish:     ts.EF,
			Slack:      ts.Slack,
			TotalFloat: ts.TotalFloat,
			Level:      ts.Level,
			IsCritical: ts.IsCritical,
			IsStart:    ts.TaskID == start,
			IsEnd:      ts.TaskID == end,
		})
	}

	for _, e := range rep.Edges() {
		g.Edges = append(g.Edges, GraphEdge{From: e.From, To: e.To, Critical: e.Critical})
	}

	for _, lg := range rep.LevelGroups() {
		g.Levels = append(g.Levels, GraphLevel{Level: lg.Level, Tasks: lg.TaskIDs})
	}

	return g
}
