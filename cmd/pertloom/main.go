package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joshharrison/pertloom/internal/config"
	"github.com/joshharrison/pertloom/internal/cpm"
	"github.com/joshharrison/pertloom/internal/ctxlog"
	"github.com/joshharrison/pertloom/internal/source"
	"github.com/joshharrison/pertloom/internal/table"
	"github.com/joshharrison/pertloom/internal/ui"
)

// Exit codes.
const (
	exitOK    = 0
	exitOther = 1
	exitLoad  = 2
	exitCycle = 3
)

var (
	flagConfig string
	cfg        config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, ui.StatusLine(err))
	}
	os.Exit(exitCode(err))
}

// exitCode separates bad input from cyclic dependencies.
func exitCode(err error) int {
	var loadErr *table.LoadError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &loadErr):
		return exitLoad
	case errors.Is(err, cpm.ErrCycle):
		return exitCycle
	default:
		return exitOther
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pertloom [source]",
		Short: "Critical path scheduling for task dependency tables",
		Long: `Pertloom reads a task table (task id, duration, predecessors), computes
earliest start and finish times, slack and dependency levels, and reports
every critical path through the project.

A source is a local CSV or JSON file, "-" for stdin, an s3://bucket/key
object or a postgres:// connection string.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runSchedule(cmd, args[0], cfg.Format)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default .pertloom.yaml)")
	pf.String("sentinel", table.DefaultSentinel, "predecessor token meaning \"no predecessor\"")
	pf.String("input-format", string(source.FormatAuto), "task table format (auto, csv, json)")
	pf.StringP("format", "f", "text", "output format ("+strings.Join(config.OutputFormats, ", ")+")")
	pf.Bool("no-color", false, "disable colored output")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	for key, flag := range map[string]string{
		"sentinel":     "sentinel",
		"input_format": "input-format",
		"format":       "format",
		"no_color":     "no-color",
		"log_level":    "log-level",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(pathsCmd())
	rootCmd.AddCommand(levelsCmd())
	rootCmd.AddCommand(vizCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchCmd())

	return rootCmd
}

// initConfig wires the config file and PERTLOOM_* environment into viper.
func initConfig() {
	if flagConfig != "" {
		viper.SetConfigFile(flagConfig)
	} else {
		viper.SetConfigName(".pertloom")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("PERTLOOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	initConfig()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if flagConfig != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var err error
	cfg, err = config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	if cfg.NoColor {
		ui.SetEnabled(false)
	}

	logger := ctxlog.New(os.Stderr, cfg.LogLevel)
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	return nil
}

// compute opens uri and runs a fresh schedule computation over it.
func compute(ctx context.Context, uri string) (*cpm.Report, error) {
	src, err := source.Open(uri, cfg.SourceConfig())
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("computing schedule", "source", src.String())
	return cpm.Compute(ctx, src)
}
