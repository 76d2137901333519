package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/joshharrison/pertloom/internal/cpm"
	"github.com/joshharrison/pertloom/internal/ui"
)

// Reporter renders a schedule report. It only reads from the report.
type Reporter struct {
	Report *cpm.Report
}

// New creates a new Reporter.
func New(rep *cpm.Report) *Reporter {
	return &Reporter{Report: rep}
}

// Write renders the report in the named format.
func (r *Reporter) Write(w io.Writer, format string) error {
	switch format {
	case "", "text":
		r.PrintText(w)
		return nil
	case "json":
		return r.WriteJSON(w)
	case "toml":
		return r.WriteTOML(w)
	case "csv":
		return r.WriteCSV(w)
	case "dot":
		r.PrintDOT(w)
		return nil
	case "ascii":
		r.PrintASCII(w)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintText writes the console report: one table of times, slack and level
// per task, then the critical paths and the level groups.
func (r *Reporter) PrintText(w io.Writer) {
	rep := r.Report
	paths := rep.CriticalPaths()

	title := "Schedule"
	if src := rep.Source(); src != "" {
		title += " " + ui.Dim(src)
	}
	fmt.Fprintf(w, "🎯 %s\n", ui.BoldCyan(title))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════════"))
	fmt.Fprintf(w, "Tasks:     %s\n", ui.Bold(len(rep.TaskIDs())))
	fmt.Fprintf(w, "Duration:  %s (start %s, end %s)\n",
		ui.Bold(rep.TotalDuration()), ui.BoldMagenta(rep.StartTask()), ui.BoldMagenta(rep.EndTask()))
	fmt.Fprintf(w, "Critical:  %s\n\n", ui.Bold(len(paths)))

	idWidth := 4
	for _, id := range rep.TaskIDs() {
		idWidth = max(idWidth, len(id))
	}

	fmt.Fprintf(w, "    %-*s %8s %6s %7s %6s %6s  %s\n", idWidth, "TASK", "DURATION", "START", "FINISH", "SLACK", "FLOAT", "LEVEL")
	for _, ts := range rep.Tasks() {
		slack := strconv.Itoa(ts.Slack)
		if ts.Slack > 0 {
			slack = ui.Yellow(fmt.Sprintf("%6d", ts.Slack))
		} else {
			slack = fmt.Sprintf("%6s", slack)
		}
		fmt.Fprintf(w, "  %s %-*s %8d %6d %7d %s %6d  %s\n",
			ui.CriticalMark(ts.IsCritical), idWidth, ts.TaskID,
			ts.Duration, ts.ES, ts.EF, slack, ts.TotalFloat, ui.LevelTag(ts.Level))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "⚡ %s\n", ui.BoldYellow("Critical paths"))
	if len(paths) == 0 {
		fmt.Fprintf(w, "  %s\n", ui.Dim("none"))
	}
	for _, p := range paths {
		fmt.Fprintf(w, "  %s\n", ui.BoldYellow(strings.Join(p, " → ")))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "📊 %s\n", ui.BoldWhite("Levels"))
	for _, lg := range rep.LevelGroups() {
		fmt.Fprintf(w, "  %s %s\n", ui.LevelTag(lg.Level), strings.Join(lg.TaskIDs, ", "))
	}
}

// WriteJSON writes the Graph view as indented JSON.
func (r *Reporter) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(ToGraph(r.Report), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteTOML writes the Graph view as TOML.
func (r *Reporter) WriteTOML(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(ToGraph(r.Report)); err != nil {
		return fmt.Errorf("encode toml report: %w", err)
	}
	return nil
}

// WriteCSV writes one row per task in input order.
func (r *Reporter) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"task", "duration", "start", "finish", "slack", "total_float", "level", "critical"}); err != nil {
		return err
	}
	for _, ts := range r.Report.Tasks() {
		rec := []string{
			ts.TaskID,
			strconv.Itoa(ts.Duration),
			strconv.Itoa(ts.ES),
			strconv.Itoa(ts.EF),
			strconv.Itoa(ts.Slack),
			strconv.Itoa(ts.TotalFloat),
			strconv.Itoa(ts.Level),
			strconv.FormatBool(ts.IsCritical),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PrintDOT writes a Graphviz digraph. Critical edges are red, every node
// carries its start-finish interval and level, start and end are highlighted.
func (r *Reporter) PrintDOT(w io.Writer) {
	rep := r.Report
	start, end := rep.StartTask(), rep.EndTask()

	fmt.Fprintln(w, "digraph pertloom {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=rounded];")
	fmt.Fprintln(w)

	for _, ts := range rep.Tasks() {
		label := fmt.Sprintf("%s\\n%d-%d\\nL%d", dotEscape(ts.TaskID), ts.ES, ts.EF, ts.Level)
		switch ts.TaskID {
		case start:
			label = "Start\\n" + label
		case end:
			label = "End\\n" + label
		}
		attrs := fmt.Sprintf(`label="%s"`, label)
		if ts.TaskID == start || ts.TaskID == end {
			attrs += `, style="rounded,filled", fillcolor=palegreen`
		}
		if ts.IsCritical {
			attrs += `, color=red, penwidth=2`
		}
		fmt.Fprintf(w, "  \"%s\" [%s];\n", dotEscape(ts.TaskID), attrs)
	}

	fmt.Fprintln(w)

	for _, e := range rep.Edges() {
		style := ` [color=black]`
		if e.Critical {
			style = ` [color=red, penwidth=2]`
		}
		fmt.Fprintf(w, "  \"%s\" -> \"%s\"%s;\n", dotEscape(e.From), dotEscape(e.To), style)
	}

	fmt.Fprintln(w, "}")
}

// dotEscaper escapes text for a double-quoted DOT string.
var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func dotEscape(s string) string {
	return dotEscaper.Replace(s)
}

// PrintASCII writes the dependency graph grouped by level.
func (r *Reporter) PrintASCII(w io.Writer) {
	rep := r.Report

	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Task Dependency Graph"))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════"))
	fmt.Fprintln(w)

	for _, lg := range rep.LevelGroups() {
		fmt.Fprintf(w, "%s Level %d %s\n", ui.Cyan("──"), lg.Level, ui.Cyan("──────────────────────────────"))
		for _, id := range lg.TaskIDs {
			ts, _ := rep.Task(id)
			fmt.Fprintf(w, "  %s [%s] %d-%d\n", ui.CriticalMark(ts.IsCritical), ui.BoldMagenta(id), ts.ES, ts.EF)
			for _, succ := range rep.Successors(id) {
				fmt.Fprintf(w, "      %s %s\n", ui.Dim("└──→"), ui.Magenta(succ))
			}
		}
		fmt.Fprintln(w)
	}
}
