package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

func newRecordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "record",
		Aliases: []string{"records", "r"},
		Short:   "Track time spent on tasks",
	}
	cmd.AddCommand(
		newRecordStartCmd(a),
		newRecordStopCmd(a),
		newRecordLogCmd(a),
		newRecordListCmd(a),
		newRecordRmCmd(a),
	)
	return cmd
}

func newRecordStartCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "start <task-id>",
		Short: "Start a running time record for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			start, err := parseTime(at, time.Now())
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if _, err := s.Tasks().Get(taskID); err != nil {
					return err
				}
				r, err := s.Records().Create(start, taskID, 0)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), r, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "started record %d for task %d at %s\n", r.ID, taskID, formatTime(r.Start))
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "start time (default now)")
	return cmd
}

func newRecordStopCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "stop <record-id>",
		Short: "Close a running record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record", args[0])
			if err != nil {
				return err
			}
			end, err := parseTime(at, time.Now())
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				r, err := s.Records().Stop(id, end)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), r, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "stopped record %d after %s\n", r.ID, formatDuration(r.Duration))
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "end time (default now)")
	return cmd
}

func newRecordLogCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "log <task-id> <duration>",
		Short: "Add a closed record, e.g. 'log 4 1h30m'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			d, err := time.ParseDuration(args[1])
			if err != nil || d < time.Second {
				return usageErrorf("duration must be at least 1s, got %q", args[1])
			}
			start, err := parseTime(at, time.Now().Add(-d))
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if _, err := s.Tasks().Get(taskID); err != nil {
					return err
				}
				r, err := s.Records().Create(start, taskID, int64(d/time.Second))
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), r, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "logged record %d: %s on task %d\n", r.ID, formatDuration(r.Duration), taskID)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "start time (default now minus duration)")
	return cmd
}

func newRecordListCmd(a *app) *cobra.Command {
	var (
		running  bool
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's records, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			filter := types.RecordFilter{Task: taskID, Incomplete: running}
			now := time.Now()
			if from != "" {
				v, err := parseTime(from, now)
				if err != nil {
					return err
				}
				filter.From = types.Int64(v)
			}
			if to != "" {
				v, err := parseTime(to, now)
				if err != nil {
					return err
				}
				filter.To = types.Int64(v)
			}
			return a.withStore(func(s types.Store) error {
				records, err := s.Records().List(filter)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), records, func() error {
					tbl := newTable("ID", "START", "END", "DURATION")
					for _, r := range records {
						dur := formatDuration(r.Duration)
						if r.Running() {
							dur = runningMark
						}
						tbl.AddRow(r.ID, formatTime(r.Start), formatTime(r.End()), dur)
					}
					_, err := fmt.Fprintln(cmd.OutOrStdout(), tbl)
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&running, "running", false, "list running records instead of closed ones")
	cmd.Flags().StringVar(&from, "from", "", "started on or after this time")
	cmd.Flags().StringVar(&to, "to", "", "started before this time")
	return cmd
}

func newRecordRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <record-id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if err := s.Records().Delete(id); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), map[string]int64{"deleted": id}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "deleted record %d\n", id)
					return nil
				})
			})
		},
	}
}
