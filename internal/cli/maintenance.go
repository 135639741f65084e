package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// errViolations is returned by check when problems remain so the process
// exits non-zero.
var errViolations = fmt.Errorf("%w: store has consistency violations", errUsage)

func newCheckCmd(a *app) *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify ordering and hierarchy consistency",
		Long: "Report position gaps, duplicate positions, orphans, and project mismatches.\n" +
			"With --repair, renumber every ordering scope densely first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				moved := 0
				if repair {
					n, err := s.Repair()
					if err != nil {
						return err
					}
					moved = n
					a.logger.Info("repaired positions", "moved", n)
				}
				violations, err := s.Check()
				if err != nil {
					return err
				}
				if a.jsonMode {
					if err := printJSON(cmd.OutOrStdout(), map[string]any{
						"repaired":   moved,
						"violations": violations,
					}); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					if repair {
						fmt.Fprintf(out, "repaired %d positions\n", moved)
					}
					if len(violations) == 0 {
						fmt.Fprintln(out, "ok")
						return nil
					}
					tbl := newTable("KIND", "SCOPE", "ID", "DETAIL")
					for _, v := range violations {
						tbl.AddRow(v.Kind, v.Scope, v.ID, v.Detail)
					}
					fmt.Fprintln(out, tbl)
				}
				if len(violations) > 0 {
					return errViolations
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "renumber positions before checking")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write a JSONL snapshot of the store to dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				m, err := s.Export(args[0])
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), m, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "exported snapshot %s to %s\n", m.SnapshotID, args[0])
					return printCounts(cmd, m)
				})
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load a JSONL snapshot from dir into an empty store",
		Long: "Load a JSONL snapshot from dir. The store must hold no tasks, records, or reminders,\n" +
			"and only the seeded \"Inbox\" project and \"Tasks\" section under their original names.\n" +
			"Those seed rows are replaced by the snapshot's projects and sections.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				m, err := s.Import(args[0])
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), m, func() error {
					id := m.SnapshotID
					if id == "" {
						id = "(no manifest)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "imported snapshot %s from %s\n", id, args[0])
					return printCounts(cmd, m)
				})
			})
		},
	}
}

func printCounts(cmd *cobra.Command, m *types.Manifest) error {
	tables := make([]string, 0, len(m.Counts))
	for name := range m.Counts {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	tbl := newTable("TABLE", "ROWS")
	for _, name := range tables {
		tbl.AddRow(name, m.Counts[name])
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), tbl)
	return err
}
