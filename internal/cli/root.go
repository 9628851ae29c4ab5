// Package cli implements the typedsql command-line tool: it loads a YAML
// schema file, attaches a store and runs maintenance commands against it.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values shared by every subcommand.
type rootFlags struct {
	configDir  string
	dataDir    string
	schemaPath string
	jsonMode   bool
	verbose    bool
}

// app carries the per-invocation state built in PersistentPreRunE.
type app struct {
	flags  rootFlags
	logger *slog.Logger
	config settings
}

// NewRootCmd creates the "typedsql" command with its subcommands.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "typedsql",
		Short:         "Inspect and load typed SQLite stores",
		Long:          "typedsql declares a store from a YAML schema file, creates it and moves rows\nin and out as JSON lines.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: per-user config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "store directory (default: $(CWD)/.typedsql-db)")
	pf.StringVar(&a.flags.schemaPath, "schema", "", "YAML schema file (default: schema key of config.yaml)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log statements to stderr")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newDDLCmd(),
		a.newTablesCmd(),
		a.newCountCmd(),
		a.newDumpCmd(),
		a.newImportCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := loadSettings(a.flags.configDir)
	if err != nil {
		return sysError(err)
	}
	a.config = cfg
	return nil
}

// Execute runs the root command against args and returns the process exit
// code. Errors are printed to stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "typedsql:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// exitError tags an error with the exit code it maps to.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}
