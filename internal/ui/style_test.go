package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestStatusLine(t *testing.T) {
	SetEnabled(false)

	if got := StatusLine(nil); got != "✓ Success" {
		t.Errorf("StatusLine(nil) = %q", got)
	}
	if got := StatusLine(errors.New("load tasks.csv: parse line 3: invalid duration")); !strings.HasPrefix(got, "✗ ERROR load tasks.csv") {
		t.Errorf("unexpected failure line %q", got)
	}
}

func TestMarksAndTags(t *testing.T) {
	SetEnabled(false)

	if CriticalMark(true) != "⚡" || CriticalMark(false) != " " {
		t.Error("unexpected critical marks")
	}
	if got := LevelTag(7); got != "[L7]" {
		t.Errorf("LevelTag(7) = %q", got)
	}

	var buf bytes.Buffer
	PrintLogo(&buf)
	if !strings.Contains(buf.String(), "P  E  R  T  L  O  O  M") {
		t.Errorf("logo missing brand line:\n%s", buf.String())
	}
}
