package table

// DefaultSentinel is the predecessor token meaning "no predecessor".
const DefaultSentinel = "NONE"

// Row is one validated task row of the input table.
type Row struct {
	ID           string
	Duration     int
	Predecessors []string // empty when the row named the sentinel
	Line         int      // 1-based line (or record index) in the source
}

// Independent reports whether the row hangs off the virtual root.
func (r Row) Independent() bool {
	return len(r.Predecessors) == 0
}

// Table is the parsed task table in input order.
type Table struct {
	Source string
	Rows   []Row
}

// Durations returns the task id -> duration mapping.
func (t *Table) Durations() map[string]int {
	out := make(map[string]int, len(t.Rows))
	for _, r := range t.Rows {
		out[r.ID] = r.Duration
	}
	return out
}

// IDs returns task ids in input order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		ids[i] = r.ID
	}
	return ids
}

// Options controls how raw records are interpreted.
type Options struct {
	Sentinel string
	Source   string
}

// Option customizes a read.
type Option func(*Options)

// WithSentinel overrides the "no predecessor" token.
func WithSentinel(s string) Option {
	return func(o *Options) { o.Sentinel = s }
}

// WithSource names the source in errors.
func WithSource(name string) Option {
	return func(o *Options) { o.Source = name }
}

func buildOptions(opts []Option) Options {
	o := Options{Sentinel: DefaultSentinel}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
