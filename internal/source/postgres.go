package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/joshharrison/pertloom/internal/table"
)

// DefaultQuery selects the three task table columns.
const DefaultQuery = "SELECT id, duration, predecessors FROM tasks ORDER BY id"

type sqlSource struct {
	dsn string
	cfg Config
}

func (s *sqlSource) String() string {
	return "postgres"
}

func (s *sqlSource) Load(ctx context.Context) (*table.Table, error) {
	query := s.cfg.SQLQuery
	if query == "" {
		query = DefaultQuery
	}

	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return nil, &table.LoadError{Op: "open", Source: s.String(), Err: err}
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &table.LoadError{Op: "open", Source: s.String(), Err: fmt.Errorf("query tasks: %w", err)}
	}
	defer rows.Close()

	return table.ReadRows(rows, table.WithSentinel(s.cfg.Sentinel), table.WithSource(s.String()))
}
