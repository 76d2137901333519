package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/joshharrison/pertloom/internal/cpm"
	"github.com/joshharrison/pertloom/internal/ctxlog"
	"github.com/joshharrison/pertloom/internal/reporter"
	"github.com/joshharrison/pertloom/internal/source"
	"github.com/joshharrison/pertloom/internal/table"
)

// maxBody caps the size of a posted task table.
const maxBody = 8 << 20

// Config configures the viewer service.
type Config struct {
	Addr   string
	Source source.Config
}

// Server serves the Graph view of the most recent schedule and computes new
// schedules on request. Each POST runs its own Compute; nothing is shared
// between requests except the last successful graph.
type Server struct {
	cfg Config

	mu    sync.RWMutex
	graph *reporter.Graph
}

// New creates a viewer server. Nothing is served until ListenAndServe.
func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Graph returns the last stored graph, or nil.
func (s *Server) Graph() *reporter.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// Load computes a schedule from src and stores it as the current graph.
func (s *Server) Load(ctx context.Context, src cpm.Loader) (*reporter.Graph, error) {
	rep, err := cpm.Compute(ctx, src)
	if err != nil {
		return nil, err
	}
	g := reporter.ToGraph(rep)

	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()

	return g, nil
}

// errorBody is the JSON shape of a failed request.
type errorBody struct {
	Error string   `json:"error"`
	Kind  string   `json:"kind"`
	Cycle []string `json:"cycle,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps load failures to 400 and cycles to 422.
func writeError(w http.ResponseWriter, err error) {
	var loadErr *table.LoadError
	var cycleErr *cpm.CycleError
	switch {
	case errors.As(err, &cycleErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Kind: "cycle", Cycle: cycleErr.Cycle})
	case errors.As(err, &loadErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "load"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error(), Kind: "internal"})
	}
}

// requestFormat picks the table encoding from ?format= or the Content-Type.
func (s *Server) requestFormat(r *http.Request) source.Format {
	if f := r.URL.Query().Get("format"); f != "" {
		return source.Format(f)
	}
	if strings.Contains(r.Header.Get("Content-Type"), "json") {
		return source.FormatJSON
	}
	if s.cfg.Source.Format == source.FormatJSON {
		return source.FormatJSON
	}
	return source.FormatCSV
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.cfg.Source
	cfg.Format = s.requestFormat(r)
	if f := cfg.Format; f != source.FormatCSV && f != source.FormatJSON {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("unknown format %q", f), Kind: "request"})
		return
	}
	if sent := r.URL.Query().Get("sentinel"); sent != "" {
		cfg.Sentinel = sent
	}

	src := source.FromReader("request", http.MaxBytesReader(w, r.Body, maxBody), cfg)
	g, err := s.Load(r.Context(), src)
	if err != nil {
		ctxlog.FromContext(r.Context()).Warn("schedule request failed", "err", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	g := s.Graph()
	if g == nil {
		http.Error(w, "no graph loaded", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// Handler returns the HTTP routes:
//
//	GET  /graph     last computed graph
//	POST /schedule  compute a schedule from the request body (CSV or JSON table)
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/graph", s.handleGetGraph)
	mux.HandleFunc("/schedule", s.handleSchedule)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pertloom viewer\n\nGET  /graph\nPOST /schedule?format=csv|json\n"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("viewer listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown viewer: %w", err)
	}
	return nil
}

// PostTable sends a raw task table to a running viewer's /schedule endpoint.
func PostTable(ctx context.Context, addr string, format source.Format, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read table: %w", err)
	}

	url := strings.TrimRight(addr, "/") + "/schedule"
	if format == source.FormatCSV || format == source.FormatJSON {
		url += "?format=" + string(format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST /schedule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var eb errorBody
		if json.NewDecoder(resp.Body).Decode(&eb) == nil && eb.Error != "" {
			return fmt.Errorf("POST /schedule returned %d: %s", resp.StatusCode, eb.Error)
		}
		return fmt.Errorf("POST /schedule returned %d", resp.StatusCode)
	}

	return nil
}

// IsPortOpen checks if something is listening on the given address.
func IsPortOpen(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
