package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

func newReminderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reminder",
		Aliases: []string{"reminders", "rem"},
		Short:   "Manage task reminders",
	}
	cmd.AddCommand(
		newReminderAddCmd(a),
		newReminderListCmd(a),
		newReminderDueCmd(a),
		newReminderDismissCmd(a),
		newReminderRmCmd(a),
	)
	return cmd
}

func newReminderAddCmd(a *app) *cobra.Command {
	var priority int64
	cmd := &cobra.Command{
		Use:   "add <task-id> <when>",
		Short: "Schedule a reminder for a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			when, err := parseTime(args[1], time.Now())
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if _, err := s.Tasks().Get(taskID); err != nil {
					return err
				}
				r, err := s.Reminders().Create(when, taskID, priority)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), r, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "created reminder %d for task %d at %s\n", r.ID, taskID, formatTime(r.Datetime))
					return nil
				})
			})
		},
	}
	cmd.Flags().Int64VarP(&priority, "priority", "p", 0, "reminder priority")
	return cmd
}

func newReminderListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's pending reminders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				reminders, err := s.Reminders().List(taskID)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), reminders, func() error {
					return printReminders(cmd, reminders)
				})
			})
		},
	}
}

func newReminderDueCmd(a *app) *cobra.Command {
	var at string
	var dismiss bool
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List reminders that are due and not yet dismissed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := parseTime(at, time.Now())
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				reminders, err := s.Reminders().Due(now)
				if err != nil {
					return err
				}
				if dismiss {
					for _, r := range reminders {
						if err := s.Reminders().MarkPast(r.ID); err != nil {
							return err
						}
					}
					a.logger.Debug("dismissed due reminders", "count", len(reminders))
				}
				return a.emit(cmd.OutOrStdout(), reminders, func() error {
					return printReminders(cmd, reminders)
				})
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate as of this time (default now)")
	cmd.Flags().BoolVar(&dismiss, "dismiss", false, "mark the listed reminders as past")
	return cmd
}

func newReminderDismissCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <reminder-id>",
		Short: "Mark a reminder as past",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("reminder", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if err := s.Reminders().MarkPast(id); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), map[string]int64{"dismissed": id}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "dismissed reminder %d\n", id)
					return nil
				})
			})
		},
	}
}

func newReminderRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <reminder-id>",
		Short: "Delete a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("reminder", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if err := s.Reminders().Delete(id); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), map[string]int64{"deleted": id}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "deleted reminder %d\n", id)
					return nil
				})
			})
		},
	}
}

func printReminders(cmd *cobra.Command, reminders []*types.Reminder) error {
	tbl := newTable("ID", "TASK", "WHEN", "PRIORITY")
	for _, r := range reminders {
		tbl.AddRow(r.ID, r.Task, formatTime(r.Datetime), r.Priority)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), tbl)
	return err
}
