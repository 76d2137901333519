package cpm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is the sentinel every CycleError unwraps to.
var ErrCycle = errors.New("dependency cycle")

// ErrOverflow is the sentinel every OverflowError unwraps to.
var ErrOverflow = errors.New("finish time overflows int")

// CycleError reports tasks the forward pass could never resolve because
// they sit on, or downstream of, a dependency cycle.
type CycleError struct {
	Cycle      []string // one concrete cycle, first task repeated at the end
	Unresolved []string // every unresolved task, input order
}

func (e *CycleError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("dependency cycle detected: %s (%d tasks unresolved)",
			strings.Join(e.Cycle, " -> "), len(e.Unresolved))
	}
	return fmt.Sprintf("dependency cycle detected: %d tasks unresolved: %s",
		len(e.Unresolved), strings.Join(e.Unresolved, ", "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// OverflowError reports a task whose finish time does not fit in an int.
type OverflowError struct {
	TaskID   string
	Start    int
	Duration int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("task %s: start %d + duration %d: %v", e.TaskID, e.Start, e.Duration, ErrOverflow)
}

func (e *OverflowError) Unwrap() error {
	return ErrOverflow
}
