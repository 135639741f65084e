// Package cli implements the taskstore command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/taskstore/internal/paths"
	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks malformed command input.
var errUsage = errors.New("invalid usage")

// app holds global flag values and state shared by every subcommand of one
// root command.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool

	config *viper.Viper
	logger *slog.Logger
}

// NewRootCmd creates the top-level "taskstore" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	root := &cobra.Command{
		Use:   "taskstore",
		Short: "An ordered hierarchical task store",
		Long: "Taskstore keeps projects, sections, nested tasks, time records, and\n" +
			"reminders in a single local SQLite file with dense manual ordering.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			a.configDir = configDir
			a.config, err = loadConfig(configDir)
			if err != nil {
				return err
			}
			a.logger = newLogger(cmd.ErrOrStderr(), a.verbose, a.config.GetString(cfgKeyLogLevel))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/taskstore)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/taskstore)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newProjectCmd(a),
		newSectionCmd(a),
		newTaskCmd(a),
		newRecordCmd(a),
		newReminderCmd(a),
		newCheckCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "taskstore:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps an error to exitUserError when the caller can fix it by
// changing the input, and to exitSysError otherwise.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	for _, userErr := range []error{
		errUsage,
		types.ErrNotFound,
		types.ErrInvalidID,
		types.ErrInvalidData,
		types.ErrRecordRunning,
		types.ErrRecordClosed,
		types.ErrStoreNotEmpty,
		types.ErrSnapshotVersion,
		types.ErrDataDirEmpty,
		types.ErrDBFileInvalid,
	} {
		if errors.Is(err, userErr) {
			return exitUserError
		}
	}
	return exitSysError
}

// newLogger builds a text logger on w. --verbose forces debug; otherwise
// the configured level applies, defaulting to warn.
func newLogger(w io.Writer, verbose bool, level string) *slog.Logger {
	lvl := slog.LevelWarn
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl = slog.LevelWarn
		}
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
