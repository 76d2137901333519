// Package source resolves a task table location (local path, stdin, S3
// object or PostgreSQL table) into a Loader that reads it exactly once.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/joshharrison/pertloom/internal/ctxlog"
	"github.com/joshharrison/pertloom/internal/table"
)

// Format names a task table encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Config controls how sources are opened and parsed.
type Config struct {
	Sentinel string
	Format   Format
	S3       S3Config
	SQLQuery string
}

// S3Config holds the settings for s3:// sources.
type S3Config struct {
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Source is a task table location. Load acquires the handle, reads it
// fully and releases it before returning.
type Source interface {
	Load(ctx context.Context) (*table.Table, error)
	String() string
}

// Open resolves uri into a Source without touching it:
//
//	-                       standard input
//	s3://bucket/key.csv     S3 object
//	postgres://… or postgresql://…  rows from Config.SQLQuery
//	anything else           local file path
func Open(uri string, cfg Config) (Source, error) {
	if cfg.Sentinel == "" {
		cfg.Sentinel = table.DefaultSentinel
	}
	if cfg.Format == "" {
		cfg.Format = FormatAuto
	}

	switch {
	case uri == "":
		return nil, &table.LoadError{Op: "open", Err: errors.New("empty source location")}
	case uri == "-":
		return &readerSource{name: "stdin", r: os.Stdin, cfg: cfg}, nil
	case strings.HasPrefix(uri, "s3://"):
		bucket, key, err := ParseS3URI(uri)
		if err != nil {
			return nil, &table.LoadError{Op: "open", Source: uri, Err: err}
		}
		return &s3Source{bucket: bucket, key: key, cfg: cfg}, nil
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return &sqlSource{dsn: uri, cfg: cfg}, nil
	default:
		return &fileSource{path: uri, cfg: cfg}, nil
	}
}

// DetectFormat resolves "auto" to json for .json names and csv otherwise.
func DetectFormat(f Format, name string) Format {
	if f != FormatAuto {
		return f
	}
	if strings.EqualFold(path.Ext(name), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// parse decodes r with the configured or detected format.
func parse(ctx context.Context, r io.Reader, name string, cfg Config) (*table.Table, error) {
	opts := []table.Option{table.WithSentinel(cfg.Sentinel), table.WithSource(name)}
	f := DetectFormat(cfg.Format, name)
	ctxlog.FromContext(ctx).Debug("parsing task table", "source", name, "format", string(f))

	switch f {
	case FormatJSON:
		return table.ReadJSON(r, opts...)
	case FormatCSV:
		return table.ReadCSV(r, opts...)
	default:
		return nil, &table.LoadError{Op: "open", Source: name, Err: fmt.Errorf("unsupported format %q", f)}
	}
}

type fileSource struct {
	path string
	cfg  Config
}

func (s *fileSource) String() string { return s.path }

func (s *fileSource) Load(ctx context.Context) (*table.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &table.LoadError{Op: "open", Source: s.path, Err: err}
	}
	defer f.Close()

	return parse(ctx, f, s.path, s.cfg)
}

// readerSource reads an already-open stream such as stdin or a request body.
type readerSource struct {
	name string
	r    io.Reader
	cfg  Config
}

// FromReader wraps an open stream. name is used for format detection and errors.
func FromReader(name string, r io.Reader, cfg Config) Source {
	if cfg.Sentinel == "" {
		cfg.Sentinel = table.DefaultSentinel
	}
	if cfg.Format == "" {
		cfg.Format = FormatAuto
	}
	return &readerSource{name: name, r: r, cfg: cfg}
}

func (s *readerSource) String() string { return s.name }

func (s *readerSource) Load(ctx context.Context) (*table.Table, error) {
	return parse(ctx, s.r, s.name, s.cfg)
}
