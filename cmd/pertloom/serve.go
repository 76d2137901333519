package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joshharrison/pertloom/internal/ctxlog"
	"github.com/joshharrison/pertloom/internal/reporter"
	"github.com/joshharrison/pertloom/internal/source"
	"github.com/joshharrison/pertloom/internal/ui"
	"github.com/joshharrison/pertloom/internal/viewer"
	"github.com/joshharrison/pertloom/internal/watch"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [source]",
		Short: "Serve the schedule graph over HTTP",
		Long: `Starts the viewer service. GET /graph returns the last computed graph;
POST /schedule computes a schedule from a CSV or JSON task table in the
request body. When a source is given it is scheduled once at startup.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr := cfg.Serve.Addr

			if viewer.IsPortOpen(localAddr(addr)) {
				return fmt.Errorf("something is already listening on %s", addr)
			}

			srv := viewer.New(viewer.Config{Addr: addr, Source: cfg.SourceConfig()})
			if len(args) == 1 {
				src, err := source.Open(args[0], cfg.SourceConfig())
				if err != nil {
					return err
				}
				if _, err := srv.Load(ctx, src); err != nil {
					return err
				}
			}

			ui.PrintLogo(os.Stderr)
			fmt.Fprintf(os.Stderr, "🌐 %s http://%s\n", ui.BoldCyan("Viewer:"), localAddr(addr))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().String("addr", ":7171", "listen address")
	_ = viper.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

// localAddr turns ":7171" into "localhost:7171".
func localAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func watchCmd() *cobra.Command {
	var flagPush string

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Recompute the schedule whenever the task table file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			out := cmd.OutOrStdout()

			w, err := watch.New(path, cfg.Watch.Debounce)
			if err != nil {
				return err
			}

			ctxlog.FromContext(ctx).Info("watching task table", "path", w.Path, "debounce", cfg.Watch.Debounce)

			recompute := func(ctx context.Context) error {
				if flagPush != "" {
					return pushTable(ctx, path, flagPush)
				}

				rep, err := compute(ctx, path)
				if err != nil {
					fmt.Fprintln(out, ui.StatusLine(err))
					return err
				}
				fmt.Fprintf(out, "%s %s\n", ui.Dim("──"), ui.Dim(time.Now().Format(time.TimeOnly)))
				if err := reporter.New(rep).Write(out, cfg.Format); err != nil {
					return err
				}
				fmt.Fprintln(out, ui.StatusLine(nil))
				return nil
			}

			return w.Run(ctx, recompute)
		},
	}

	cmd.Flags().Duration("debounce", 200*time.Millisecond, "quiet period before recomputing")
	cmd.Flags().StringVar(&flagPush, "push", "", "POST each change to a running viewer (e.g. http://localhost:7171)")
	_ = viper.BindPFlag("watch.debounce", cmd.Flags().Lookup("debounce"))

	return cmd
}

// pushTable sends the raw file to a viewer, which computes the schedule itself.
func pushTable(ctx context.Context, path, addr string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	format := source.DetectFormat(source.Format(cfg.InputFormat), path)
	if err := viewer.PostTable(ctx, addr, format, f); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("pushed task table", "path", path, "viewer", addr)
	return nil
}
