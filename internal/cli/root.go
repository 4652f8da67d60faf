package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/inkwell/internal/config"
	"github.com/roach88/inkwell/internal/engine"
	"github.com/roach88/inkwell/internal/metrics"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // optional config file
	Metrics string // optional metrics output file

	cfg    config.Config
	loaded bool

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	// engineOptions are appended to every engine the commands create.
	engineOptions []engine.EngineOption
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the inkwell CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inkwell",
		Short: "inkwell - a stroke store for handwritten documents",
		Long: `Create, inspect, render and convert inkwell documents.

Documents are stored as gzipped JSON (.inkw), plain JSON (.json) or
SQLite (.inkdb, .db). Scenario scripts drive the engine from YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := opts.load(); err != nil {
				return err
			}
			level := opts.cfg.Log.SlogLevel()
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.writeMetrics()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "engine config file (.yaml, .json or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Metrics, "metrics", "", "write engine metrics in Prometheus text format to this file")

	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewScriptCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// load reads the config file once. Without one the defaults apply.
func (o *RootOptions) load() error {
	if o.loaded {
		return nil
	}
	o.cfg = config.Default()
	if o.Config != "" {
		cfg, err := config.Load(o.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		o.cfg = cfg
	}
	o.loaded = true
	return nil
}

// EngineConfig returns the effective configuration.
func (o *RootOptions) EngineConfig() (config.Config, error) {
	if err := o.load(); err != nil {
		return config.Config{}, err
	}
	return o.cfg, nil
}

// newEngine creates an engine with the effective configuration.
func (o *RootOptions) newEngine(extra ...engine.EngineOption) (*engine.Engine, error) {
	cfg, err := o.EngineConfig()
	if err != nil {
		return nil, err
	}
	opts := []engine.EngineOption{engine.WithConfig(cfg)}
	if o.Metrics != "" {
		if o.metrics == nil {
			o.registry = prometheus.NewRegistry()
			o.metrics = metrics.New(o.registry)
		}
		opts = append(opts, engine.WithMetrics(o.metrics))
	}
	opts = append(opts, o.engineOptions...)
	return engine.New(append(opts, extra...)...), nil
}

// writeMetrics dumps the collected metrics to the --metrics file.
func (o *RootOptions) writeMetrics() error {
	if o.Metrics == "" {
		return nil
	}
	var families []*dto.MetricFamily
	if o.registry != nil {
		var err error
		if families, err = o.registry.Gather(); err != nil {
			return WrapExitError(ExitFailure, "failed to gather metrics", err)
		}
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return WrapExitError(ExitFailure, "failed to encode metrics", err)
		}
	}
	if err := os.WriteFile(o.Metrics, buf.Bytes(), 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write metrics", err)
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// signalContext derives a context from the command's that is canceled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
