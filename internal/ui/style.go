package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	Magenta     = color.New(color.FgMagenta).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// SetEnabled forces colors on or off regardless of terminal detection.
func SetEnabled(on bool) {
	color.NoColor = !on
}

// PrintLogo renders the colored pertloom banner.
func PrintLogo(w io.Writer) {
	frame := color.New(color.FgCyan)
	nodes := color.New(color.FgYellow)
	brand := color.New(color.Bold, color.FgMagenta)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +------------------------------+")
	nodes.Fprintln(w, "   |  o---o---o       o---o---o   |")
	nodes.Fprintln(w, "   |       \\   \\     /       /    |")
	brand.Fprintln(w, "   |   P  E  R  T  L  O  O  M     |")
	frame.Fprintln(w, "   +------------------------------+")
	fmt.Fprintln(w)
}

// StatusLine returns the success/failure signal shown after a run.
func StatusLine(err error) string {
	if err == nil {
		return BoldGreen("✓ Success")
	}
	return BoldRed("✗ ERROR") + " " + err.Error()
}

// CriticalMark returns the marker used for critical tasks.
func CriticalMark(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// levelColors is a palette of distinct bold colors for differentiating levels.
var levelColors = []func(a ...interface{}) string{
	BoldMagenta,
	BoldCyan,
	BoldYellow,
	BoldGreen,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiRed).SprintFunc(),
}

// LevelTag returns a colored "L<n>" tag; each level gets a palette color.
func LevelTag(level int) string {
	c := levelColors[level%len(levelColors)]
	return Dim("[") + c(fmt.Sprintf("L%d", level)) + Dim("]")
}
