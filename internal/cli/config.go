package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/inkwell/internal/config"
)

// NewConfigCommand creates the config command and its subcommands.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or check engine configuration",
	}
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newConfigCheckCommand(rootOpts))
	return cmd
}

func newConfigShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration the engine would run with: the defaults,
overridden by --config when given.

Example:
  inkwell config show
  inkwell config show --config inkwell.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.EngineConfig()
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return opts.formatter(cmd).Success(cfg)
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to render config", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Validate config files against the schema",
		Long: `Validate each config file against the embedded schema.

Exit codes:
  0 - all files valid
  1 - one or more files invalid

Example:
  inkwell config check inkwell.yaml overrides.cue`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigCheck(opts, args, cmd)
		},
	}
}

// ConfigCheck is the result for one checked file.
type ConfigCheck struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func runConfigCheck(opts *RootOptions, files []string, cmd *cobra.Command) error {
	checks := make([]ConfigCheck, 0, len(files))
	invalid := 0
	for _, f := range files {
		c := ConfigCheck{File: f, Valid: true}
		if _, err := config.Load(f); err != nil {
			c.Valid = false
			c.Error = err.Error()
			invalid++
		}
		checks = append(checks, c)
	}

	out := opts.formatter(cmd)
	if opts.Format == "json" {
		if err := out.Success(checks); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, c := range checks {
			if c.Valid {
				fmt.Fprintf(w, "✓ %s\n", c.File)
			} else {
				fmt.Fprintf(w, "✗ %s\n  %s\n", c.File, c.Error)
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d config file(s) invalid", invalid))
	}
	return nil
}
