// Package table loads the task table (id, duration, predecessor list) from
// CSV, JSON or SQL rows and validates it before any scheduling happens.
package table

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ReadCSV parses a CSV task table. The first record is a header and is
// discarded; every following record must hold exactly three fields.
func ReadCSV(r io.Reader, opts ...Option) (*Table, error) {
	b := newBuilder(opts)

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, b.fail("read", 0, ErrEmptyTable)
		}
		return nil, b.fail("read", 1, err)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, b.fail("read", pe.Line, err)
			}
			return nil, b.fail("read", 0, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != 3 {
			return nil, b.fail("parse", line, fmt.Errorf("%w: want 3 fields, got %d", ErrMalformedRow, len(rec)))
		}
		if err := b.add(line, rec[0], rec[1], strings.Fields(rec[2])); err != nil {
			return nil, err
		}
	}

	return b.finish()
}

// ReadJSON parses a JSON array of task objects:
//
//	[{"id": "A", "duration": 3, "predecessors": "NONE"},
//	 {"id": "B", "duration": 2, "predecessors": ["A"]}]
//
// predecessors may be a space-separated string or an array of ids.
func ReadJSON(r io.Reader, opts ...Option) (*Table, error) {
	b := newBuilder(opts)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, b.fail("read", 0, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, b.fail("parse", 0, fmt.Errorf("%w: invalid JSON", ErrMalformedRow))
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, b.fail("parse", 0, fmt.Errorf("%w: expected an array of tasks", ErrMalformedRow))
	}

	var rowErr error
	idx := 0
	doc.ForEach(func(_, item gjson.Result) bool {
		idx++
		if !item.IsObject() {
			rowErr = b.fail("parse", idx, fmt.Errorf("%w: expected an object", ErrMalformedRow))
			return false
		}
		id := item.Get("id")
		dur := item.Get("duration")
		preds := item.Get("predecessors")
		if !id.Exists() || !dur.Exists() || !preds.Exists() {
			rowErr = b.fail("parse", idx, fmt.Errorf("%w: id, duration and predecessors are required", ErrMalformedRow))
			return false
		}

		durText := dur.Str
		if dur.Type == gjson.Number {
			durText = dur.Raw
		}

		var tokens []string
		if preds.IsArray() {
			for _, p := range preds.Array() {
				tokens = append(tokens, strings.Fields(p.String())...)
			}
		} else {
			tokens = strings.Fields(preds.String())
		}

		if err := b.add(idx, id.String(), durText, tokens); err != nil {
			rowErr = err
			return false
		}
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return b.finish()
}

// Rows is the subset of *sql.Rows the SQL loader needs.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ReadRows reads a task table from SQL rows with three columns
// (id, duration, predecessors). There is no header row.
func ReadRows(rows Rows, opts ...Option) (*Table, error) {
	b := newBuilder(opts)

	n := 0
	for rows.Next() {
		n++
		var id, dur, preds sql.NullString
		if err := rows.Scan(&id, &dur, &preds); err != nil {
			return nil, b.fail("read", n, err)
		}
		if !id.Valid || !dur.Valid || !preds.Valid {
			return nil, b.fail("parse", n, fmt.Errorf("%w: NULL column", ErrMalformedRow))
		}
		if err := b.add(n, id.String, dur.String, strings.Fields(preds.String)); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, b.fail("read", 0, err)
	}

	return b.finish()
}

type builder struct {
	opts Options
	rows []Row
	seen map[string]int

	// total bounds every finish time a schedule can reach.
	total int
}

func newBuilder(opts []Option) *builder {
	return &builder{
		opts: buildOptions(opts),
		seen: make(map[string]int),
	}
}

func (b *builder) fail(op string, line int, err error) *LoadError {
	return &LoadError{Op: op, Source: b.opts.Source, Line: line, Err: err}
}

// add validates one record and appends it. The sentinel is resolved here:
// it never reaches the row's predecessor list.
func (b *builder) add(line int, id, duration string, preds []string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return b.fail("parse", line, fmt.Errorf("%w: empty task id", ErrMalformedRow))
	}
	if id == b.opts.Sentinel {
		return b.fail("parse", line, fmt.Errorf("%w: %q is reserved", ErrMalformedRow, id))
	}
	if prev, ok := b.seen[id]; ok {
		return b.fail("validate", line, fmt.Errorf("%w: %s (first defined on line %d)", ErrDuplicateTask, id, prev))
	}

	d, err := strconv.Atoi(strings.TrimSpace(duration))
	if err != nil {
		return b.fail("parse", line, fmt.Errorf("%w: %q", ErrBadDuration, duration))
	}
	if d < 0 {
		return b.fail("parse", line, fmt.Errorf("%w: %d is negative", ErrBadDuration, d))
	}
	if d > math.MaxInt-b.total {
		return b.fail("validate", line, fmt.Errorf("%w: total duration exceeds %d", ErrBadDuration, math.MaxInt))
	}
	b.total += d

	resolved, err := b.predecessors(preds)
	if err != nil {
		return b.fail("parse", line, err)
	}

	b.seen[id] = line
	b.rows = append(b.rows, Row{ID: id, Duration: d, Predecessors: resolved, Line: line})
	return nil
}

func (b *builder) predecessors(tokens []string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: use %s for a task without predecessors", ErrEmptyPredecessors, b.opts.Sentinel)
	}

	var out []string
	dup := make(map[string]bool, len(tokens))
	sentinel := false
	for _, tok := range tokens {
		if tok == b.opts.Sentinel {
			sentinel = true
			continue
		}
		if dup[tok] {
			continue
		}
		dup[tok] = true
		out = append(out, tok)
	}

	if sentinel && len(out) > 0 {
		return nil, fmt.Errorf("%w: %s with %s", ErrSentinelMixed, b.opts.Sentinel, strings.Join(out, " "))
	}
	return out, nil
}

func (b *builder) finish() (*Table, error) {
	if len(b.rows) == 0 {
		return nil, b.fail("validate", 0, ErrEmptyTable)
	}
	for _, r := range b.rows {
		for _, p := range r.Predecessors {
			if _, ok := b.seen[p]; !ok {
				return nil, b.fail("validate", r.Line, fmt.Errorf("%w: %s (required by %s)", ErrUnknownPredecessor, p, r.ID))
			}
		}
	}
	return &Table{Source: b.opts.Source, Rows: b.rows}, nil
}
