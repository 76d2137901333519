package cpm

import (
	"context"

	"github.com/joshharrison/pertloom/internal/ctxlog"
	"github.com/joshharrison/pertloom/internal/graph"
	"github.com/joshharrison/pertloom/internal/table"
)

// Loader produces a task table. Implementations acquire and release their
// underlying handle inside Load.
type Loader interface {
	Load(ctx context.Context) (*table.Table, error)
}

// Compute is the single entry point: load the table, build the graph and
// analyze it. Errors are a *table.LoadError or a *CycleError; no partial
// report is returned with either. Every call starts from scratch.
func Compute(ctx context.Context, src Loader) (*Report, error) {
	log := ctxlog.FromContext(ctx)

	tbl, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded task table", "source", tbl.Source, "rows", len(tbl.Rows))

	g := graph.Build(tbl)
	r, err := Analyze(ctx, g)
	if err != nil {
		return nil, err
	}
	r.source = tbl.Source
	return r, nil
}

// TableLoader adapts an already-parsed table to Loader.
type TableLoader struct {
	Table *table.Table
}

func (l TableLoader) Load(context.Context) (*table.Table, error) {
	return l.Table, nil
}
