package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/twinsync/pkg/config"
	"gitlab.com/tozd/go/errors"
)

// errUsage marks argument errors so main can point at --help
var errUsage = errors.Base("usage")

// rootOpts holds the parsed flags
type rootOpts struct {
	model      string
	configFile string
	debug      bool
}

func newRootCmd(h *Handler) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "twinsync [flags] <file1> <file2>",
		Short: "Keep two files in sync through a language model",
		Long: `twinsync watches two files. Whenever one of them changes, its content is sent
to the model together with the other file, and the other file is rewritten to
match: translated, reformatted or converted, with minimal changes.

If exactly one of the files is empty at startup it is filled from the other.

The api key is read from ~/.twinsync/api_key. Settings are read from
~/.twinsync/config.{yaml,yml,json,hcl} or --config.`,
		Example: `  twinsync polish.md english.md
  twinsync --model claude-opus-4-1 schema.sql schema.go`,
		Version:       GetVersionInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.Errorf("%w: expected exactly two files, got %d", errUsage, len(args))
			}
			return nil
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := setupLogging(cmd.ErrOrStderr(), h.opts.debug)
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.Run(cmd.Context(), args[0], args[1])
		},
	}

	cmd.SetVersionTemplate(FormatVersion())
	addRootFlags(cmd, &h.opts)

	return cmd
}

func addRootFlags(cmd *cobra.Command, o *rootOpts) {
	cmd.Flags().StringVarP(&o.model, "model", "m", "", "model to use (default "+config.DefaultModel+")")
	cmd.Flags().StringVarP(&o.configFile, "config", "c", "", "settings file path")
	cmd.Flags().BoolVarP(&o.debug, "debug", "d", false, "enable debug logging")
}

// setupLogging configures the structured logger. Operator output goes through
// pkg/log; zerolog only shows warnings unless debug is set.
func setupLogging(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	if w == nil {
		w = os.Stderr
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
	zerolog.DefaultContextLogger = &logger
	return logger
}
