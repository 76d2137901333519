package table

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRow       = errors.New("malformed row")
	ErrBadDuration        = errors.New("invalid duration")
	ErrDuplicateTask      = errors.New("duplicate task")
	ErrUnknownPredecessor = errors.New("unknown predecessor")
	ErrEmptyTable         = errors.New("no tasks")
	ErrSentinelMixed      = errors.New("sentinel mixed with predecessors")
	ErrEmptyPredecessors  = errors.New("empty predecessor list")
)

// LoadError reports a task table that could not be read or parsed.
// No schedule is computed from a table that produced one.
type LoadError struct {
	Op     string // "open", "read", "parse", "validate"
	Source string
	Line   int
	Err    error
}

func (e *LoadError) Error() string {
	src := e.Source
	if src == "" {
		src = "input"
	}
	if e.Line > 0 {
		return fmt.Sprintf("load %s: %s line %d: %v", src, e.Op, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %s: %v", src, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
