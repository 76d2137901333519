package cpm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/joshharrison/pertloom/internal/graph"
	"github.com/joshharrison/pertloom/internal/table"
)

func buildTestGraph(t *testing.T, rows ...string) *graph.TaskGraph {
	t.Helper()
	return graph.Build(readTable(t, rows...))
}

func readTable(t *testing.T, rows ...string) *table.Table {
	t.Helper()
	in := "task,duration,predecessors\n" + strings.Join(rows, "\n") + "\n"
	tbl, err := table.ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	return tbl
}

func analyze(t *testing.T, rows ...string) *Report {
	t.Helper()
	r, err := Analyze(context.Background(), buildTestGraph(t, rows...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestAnalyze_Diamond(t *testing.T) {
	// A(3) -> B(2) -> D(1)
	// A(3) -> C(4) -> D(1)
	r := analyze(t, "A,3,NONE", "B,2,A", "C,4,A", "D,1,B C")

	assertSchedule(t, r, "A", 0, 3, 0, 0)
	assertSchedule(t, r, "B", 3, 5, 2, 1)
	assertSchedule(t, r, "C", 3, 7, 0, 1)
	assertSchedule(t, r, "D", 7, 8, 0, 2)

	paths := r.CriticalPaths()
	if len(paths) != 1 || !slices.Equal(paths[0], []string{"A", "C", "D"}) {
		t.Errorf("expected critical paths [[A C D]], got %v", paths)
	}

	if r.TotalDuration() != 8 {
		t.Errorf("expected total duration 8, got %d", r.TotalDuration())
	}
	if r.StartTask() != "A" || r.EndTask() != "D" {
		t.Errorf("expected start A and end D, got %s and %s", r.StartTask(), r.EndTask())
	}
}

func TestAnalyze_LinearChain(t *testing.T) {
	r := analyze(t, "a,1,NONE", "b,1,a", "c,1,b")

	assertSchedule(t, r, "a", 0, 1, 0, 0)
	assertSchedule(t, r, "b", 1, 2, 0, 1)
	assertSchedule(t, r, "c", 2, 3, 0, 2)

	paths := r.CriticalPaths()
	if len(paths) != 1 || len(paths[0]) != 3 {
		t.Errorf("expected one path of 3 tasks, got %v", paths)
	}
}

func TestAnalyze_TotalFloat(t *testing.T) {
	r := analyze(t, "A,3,NONE", "B,2,A", "C,4,A", "D,1,B C")

	b, _ := r.Task("B")
	if b.LS != 5 || b.LF != 7 || b.TotalFloat != 2 {
		t.Errorf("expected B LS=5 LF=7 float=2, got LS=%d LF=%d float=%d", b.LS, b.LF, b.TotalFloat)
	}
	c, _ := r.Task("C")
	if c.TotalFloat != 0 {
		t.Errorf("expected C float 0, got %d", c.TotalFloat)
	}
}

func TestAnalyze_MultipleCriticalPaths(t *testing.T) {
	r := analyze(t, "A,2,NONE", "B,3,A", "C,3,A", "D,1,B C")

	want := [][]string{{"A", "B", "D"}, {"A", "C", "D"}}
	if got := r.CriticalPaths(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAnalyze_PositiveSlackNeverAppended(t *testing.T) {
	// X(1) -> Y(1) -> Z(1); W(10) -> Z. Y waits 8 units for W.
	r := analyze(t, "X,1,NONE", "Y,1,X", "W,10,NONE", "Z,1,Y W")

	y, _ := r.Task("Y")
	if y.Slack != 8 {
		t.Fatalf("expected Y slack 8, got %d", y.Slack)
	}

	want := [][]string{{"W", "Z"}}
	if got := r.CriticalPaths(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	x, _ := r.Task("X")
	if x.IsCritical {
		t.Error("X leads only into a positive-slack task and must not be critical")
	}
}

func TestAnalyze_ParallelIndependent(t *testing.T) {
	r := analyze(t, "a,2,NONE", "b,5,NONE", "c,1,NONE")

	paths := r.CriticalPaths()
	if len(paths) != 3 {
		t.Errorf("expected each sink root to form its own path, got %v", paths)
	}
	for _, id := range []string{"a", "b", "c"} {
		ts, _ := r.Task(id)
		if ts.ES != 0 || ts.Level != 0 || ts.Slack != 0 {
			t.Errorf("task %s: expected ES=0 level=0 slack=0, got %+v", id, ts)
		}
	}
	if r.EndTask() != "b" {
		t.Errorf("expected end task b, got %s", r.EndTask())
	}
}

func TestAnalyze_ZeroDurationPredecessor(t *testing.T) {
	// B starts at 0 too, but only the full chain from the root is reported.
	r := analyze(t, "A,0,NONE", "B,3,A")

	want := [][]string{{"A", "B"}}
	if got := r.CriticalPaths(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAnalyze_LevelsUseLongestChain(t *testing.T) {
	// D depends on A directly and through B -> C.
	r := analyze(t, "A,1,NONE", "B,1,A", "C,1,B", "D,1,A C")

	levels := r.Levels()
	want := map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("expected levels %v, got %v", want, levels)
	}

	groups := r.LevelGroups()
	if len(groups) != 4 || groups[3].Level != 3 || groups[3].TaskIDs[0] != "D" {
		t.Errorf("unexpected level groups %+v", groups)
	}
}

func TestAnalyze_CycleError(t *testing.T) {
	g := buildTestGraph(t, "A,1,B", "B,1,A")

	_, err := Analyze(context.Background(), g)
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if !slices.Equal(ce.Unresolved, []string{"A", "B"}) {
		t.Errorf("expected unresolved [A B], got %v", ce.Unresolved)
	}
	if len(ce.Cycle) != 3 {
		t.Errorf("expected closed cycle A -> B -> A, got %v", ce.Cycle)
	}
}

func TestAnalyze_CycleDownstreamUnresolved(t *testing.T) {
	g := buildTestGraph(t, "A,1,NONE", "B,1,A C", "C,1,B", "D,1,C", "E,1,A")

	_, err := Analyze(context.Background(), g)
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if !slices.Equal(ce.Unresolved, []string{"B", "C", "D"}) {
		t.Errorf("expected unresolved [B C D], got %v", ce.Unresolved)
	}
}

func TestReport_AccessorsReturnCopies(t *testing.T) {
	r := analyze(t, "A,3,NONE", "B,2,A", "C,4,A", "D,1,B C")

	starts := r.StartTimes()
	starts["A"] = 99
	if r.StartTimes()["A"] != 0 {
		t.Error("mutating StartTimes leaked into the report")
	}

	paths := r.CriticalPaths()
	paths[0][0] = "mutated"
	if r.CriticalPaths()[0][0] != "A" {
		t.Error("mutating CriticalPaths leaked into the report")
	}

	finishes := r.FinishTimes()
	if !reflect.DeepEqual(finishes, map[string]int{"A": 3, "B": 5, "C": 7, "D": 8}) {
		t.Errorf("unexpected finish times %v", finishes)
	}
	finishes["D"] = 0
	if r.FinishTimes()["D"] != 8 {
		t.Error("mutating FinishTimes leaked into the report")
	}

	slacks := r.Slacks()
	if !reflect.DeepEqual(slacks, map[string]int{"A": 0, "B": 2, "C": 0, "D": 0}) {
		t.Errorf("unexpected slacks %v", slacks)
	}
	slacks["B"] = 0
	if r.Slacks()["B"] != 2 {
		t.Error("mutating Slacks leaked into the report")
	}

	order := r.TopoOrder()
	if !slices.Equal(order, []string{"A", "B", "C", "D"}) {
		t.Errorf("unexpected topological order %v", order)
	}
	order[0] = "mutated"
	if r.TopoOrder()[0] != "A" {
		t.Error("mutating TopoOrder leaked into the report")
	}

	ts, _ := r.Task("A")
	ts.ES = 42
	if again, _ := r.Task("A"); again.ES != 0 {
		t.Error("mutating a TaskSchedule leaked into the report")
	}
}

func TestReport_Edges(t *testing.T) {
	r := analyze(t, "A,3,NONE", "B,2,A", "C,4,A", "D,1,B C")

	crit := map[string]bool{}
	for _, e := range r.Edges() {
		crit[e.From+e.To] = e.Critical
	}
	want := map[string]bool{"AB": false, "AC": true, "BD": false, "CD": true}
	if !reflect.DeepEqual(crit, want) {
		t.Errorf("expected edges %v, got %v", want, crit)
	}
}

func TestCriticalPaths_StopsWhenConsumerStops(t *testing.T) {
	g := buildTestGraph(t, "a,1,NONE", "b,1,NONE", "c,1,NONE")
	r, err := Analyze(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n := 0
	for range criticalPaths(g, r.tasks) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("expected iteration to stop after 1 path, got %d", n)
	}
}

func TestAnalyze_LongChainIsLinear(t *testing.T) {
	const n = 50000
	rows := make([]table.Row, n)
	for i := range rows {
		rows[i] = table.Row{ID: fmt.Sprintf("t%d", i), Duration: 1}
		if i > 0 {
			rows[i].Predecessors = []string{rows[i-1].ID}
		}
	}
	g := graph.Build(&table.Table{Rows: rows})

	start := time.Now()
	r, err := Analyze(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("analyzing a %d-task chain took %s", n, elapsed)
	}

	paths := r.CriticalPaths()
	if len(paths) != 1 || len(paths[0]) != n {
		t.Fatalf("expected one path of %d tasks, got %d paths", n, len(paths))
	}
	if paths[0][0] != "t0" || paths[0][n-1] != fmt.Sprintf("t%d", n-1) {
		t.Errorf("unexpected path ends %s..%s", paths[0][0], paths[0][n-1])
	}
	if r.TotalDuration() != n {
		t.Errorf("expected total duration %d, got %d", n, r.TotalDuration())
	}
}

func TestCriticalPaths_BranchesDoNotShareStorage(t *testing.T) {
	// Two critical branches below A; the second must not see the first's tail.
	r := analyze(t, "A,1,NONE", "B,2,A", "C,2,A", "D,1,B", "E,1,C")

	want := [][]string{{"A", "B", "D"}, {"A", "C", "E"}}
	paths := r.CriticalPaths()
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
}

func TestAnalyze_FinishTimeOverflow(t *testing.T) {
	tbl := &table.Table{Rows: []table.Row{
		{ID: "A", Duration: math.MaxInt},
		{ID: "B", Duration: 1, Predecessors: []string{"A"}},
	}}

	r, err := Compute(context.Background(), TableLoader{Table: tbl})
	if r != nil {
		t.Error("expected no report on overflow")
	}
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	var oe *OverflowError
	if !errors.As(err, &oe) || oe.TaskID != "B" || oe.Start != math.MaxInt {
		t.Errorf("expected overflow on B starting at MaxInt, got %+v", oe)
	}
}

type errLoader struct{ err error }

func (l errLoader) Load(context.Context) (*table.Table, error) { return nil, l.err }

func TestCompute_PropagatesLoadError(t *testing.T) {
	loadErr := &table.LoadError{Op: "open", Err: errors.New("no such file")}

	r, err := Compute(context.Background(), errLoader{err: loadErr})
	if r != nil {
		t.Error("expected no report on load failure")
	}
	var le *table.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *table.LoadError, got %T", err)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	tbl := readTable(t, "A,3,NONE", "B,2,A", "C,4,A", "D,1,B C", "E,2,NONE", "F,6,E C")
	tbl.Source = "memory"

	first, err := Compute(context.Background(), TableLoader{Table: tbl})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Compute(context.Background(), TableLoader{Table: tbl})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first.Tasks(), second.Tasks()) {
		t.Error("schedules differ between runs")
	}
	if !reflect.DeepEqual(first.CriticalPaths(), second.CriticalPaths()) {
		t.Error("critical paths differ between runs")
	}
	if first.Source() != "memory" {
		t.Errorf("expected source memory, got %q", first.Source())
	}
}

// TestAnalyze_RandomDAGProperties checks the schedule invariants on random
// acyclic tables.
func TestAnalyze_RandomDAGProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(15)
		rows := make([]string, n)
		for i := 0; i < n; i++ {
			var preds []string
			for j := 0; j < i; j++ {
				if rng.Intn(4) == 0 {
					preds = append(preds, fmt.Sprintf("t%d", j))
				}
			}
			if len(preds) == 0 {
				preds = []string{"NONE"}
			}
			rows[i] = fmt.Sprintf("t%d,%d,%s", i, rng.Intn(6), strings.Join(preds, " "))
		}

		g := buildTestGraph(t, rows...)
		r, err := Analyze(context.Background(), g)
		if err != nil {
			t.Fatalf("trial %d: unexpected error: %v", trial, err)
		}
		checkInvariants(t, g, r)
	}
}

func checkInvariants(t *testing.T, g *graph.TaskGraph, r *Report) {
	t.Helper()

	for _, ts := range r.Tasks() {
		if ts.EF != ts.ES+ts.Duration {
			t.Errorf("task %s: EF %d != ES %d + duration %d", ts.TaskID, ts.EF, ts.ES, ts.Duration)
		}
		if ts.Slack < 0 {
			t.Errorf("task %s: negative slack %d", ts.TaskID, ts.Slack)
		}
		if len(g.Adj[ts.TaskID]) == 0 && ts.Slack != 0 {
			t.Errorf("sink %s: expected slack 0, got %d", ts.TaskID, ts.Slack)
		}

		wantLevel := 0
		for _, pred := range g.RevAdj[ts.TaskID] {
			p, _ := r.Task(pred)
			wantLevel = max(wantLevel, p.Level+1)
			if ts.ES < p.EF {
				t.Errorf("edge %s -> %s: start %d before finish %d", pred, ts.TaskID, ts.ES, p.EF)
			}
		}
		if ts.Level != wantLevel {
			t.Errorf("task %s: expected level %d, got %d", ts.TaskID, wantLevel, ts.Level)
		}
	}

	for _, path := range r.CriticalPaths() {
		if len(g.RevAdj[path[0]]) != 0 {
			t.Errorf("path %v does not start at a root", path)
		}
		if len(g.Adj[path[len(path)-1]]) != 0 {
			t.Errorf("path %v does not end at a sink", path)
		}
		for i, id := range path {
			if ts, _ := r.Task(id); ts.Slack != 0 {
				t.Errorf("path %v: task %s has slack %d", path, id, ts.Slack)
			}
			if i > 0 && !g.HasEdge(path[i-1], id) {
				t.Errorf("path %v: %s -> %s is not an edge", path, path[i-1], id)
			}
		}
	}
}

func assertSchedule(t *testing.T, r *Report, id string, es, ef, slack, level int) {
	t.Helper()
	ts, ok := r.Task(id)
	if !ok {
		t.Fatalf("task %s missing from report", id)
	}
	if ts.ES != es {
		t.Errorf("task %s: expected ES=%d, got %d", id, es, ts.ES)
	}
	if ts.EF != ef {
		t.Errorf("task %s: expected EF=%d, got %d", id, ef, ts.EF)
	}
	if ts.Slack != slack {
		t.Errorf("task %s: expected slack=%d, got %d", id, slack, ts.Slack)
	}
	if ts.Level != level {
		t.Errorf("task %s: expected level=%d, got %d", id, level, ts.Level)
	}
}
