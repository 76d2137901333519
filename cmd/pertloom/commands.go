package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshharrison/pertloom/internal/cpm"
	"github.com/joshharrison/pertloom/internal/reporter"
	"github.com/joshharrison/pertloom/internal/ui"
)

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <source>",
		Short: "Compute and print the full schedule report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd, args[0], cfg.Format)
		},
	}
}

func runSchedule(cmd *cobra.Command, uri, format string) error {
	rep, err := compute(cmd.Context(), uri)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := reporter.New(rep).Write(out, format); err != nil {
		return err
	}
	if format == "text" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.StatusLine(nil))
	}
	return nil
}

func pathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths <source>",
		Short: "Print every critical path, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := compute(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			paths := rep.CriticalPaths()
			if cfg.Format == "json" {
				return outputJSON(out, paths)
			}
			for _, p := range paths {
				fmt.Fprintln(out, strings.Join(p, " → "))
			}
			return nil
		},
	}
}

func levelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels <source>",
		Short: "Print tasks grouped by dependency level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := compute(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			groups := rep.LevelGroups()
			if cfg.Format == "json" {
				return outputJSON(out, reporter.ToGraph(rep).Levels)
			}
			printLevels(out, rep, groups)
			return nil
		},
	}
}

func printLevels(w io.Writer, rep *cpm.Report, groups []cpm.LevelGroup) {
	for _, lg := range groups {
		ids := make([]string, len(lg.TaskIDs))
		for i, id := range lg.TaskIDs {
			ids[i] = id
			if ts, ok := rep.Task(id); ok && ts.IsCritical {
				ids[i] = ui.BoldYellow(id)
			}
		}
		fmt.Fprintf(w, "%s %s\n", ui.LevelTag(lg.Level), strings.Join(ids, " "))
	}
}

func vizCmd() *cobra.Command {
	var flagFormat string

	cmd := &cobra.Command{
		Use:   "viz <source>",
		Short: "Print the dependency graph as ASCII or Graphviz DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagFormat != "ascii" && flagFormat != "dot" {
				return fmt.Errorf("unsupported viz format: %s (use ascii or dot)", flagFormat)
			}
			return runSchedule(cmd, args[0], flagFormat)
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "ascii", "Output format (ascii, dot)")

	return cmd
}

func outputJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
