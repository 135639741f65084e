package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks", "t"},
		Short:   "Manage tasks and subtasks",
	}
	cmd.AddCommand(
		newTaskAddCmd(a),
		newTaskListCmd(a),
		newTaskShowCmd(a),
		newTaskEditCmd(a),
		newTaskMoveCmd(a),
		newTaskDoneCmd(a),
		newTaskSuspendCmd(a),
		newTaskRestoreCmd(a),
		newTaskRmCmd(a),
		newTaskFindCmd(a),
		newTaskTreeCmd(a),
		newTaskDurationCmd(a),
		newTaskPurgeCmd(a),
	)
	return cmd
}

func newTaskAddCmd(a *app) *cobra.Command {
	var (
		section, parent   int64
		description, date string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Append a task to a section, or a subtask under a parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (section == 0) == (parent == 0) {
				return usageErrorf("exactly one of --section or --parent is required")
			}
			t := &types.Task{Name: args[0], Description: description}
			if date != "" {
				d, err := parseTime(date, time.Now())
				if err != nil {
					return err
				}
				t.Date = d
			}
			return a.withStore(func(s types.Store) error {
				if parent != 0 {
					p, err := s.Tasks().Get(parent)
					if err != nil {
						return err
					}
					pos, err := s.Tasks().NextPositionUnderParent(parent)
					if err != nil {
						return err
					}
					t.Parent, t.Section, t.Project, t.Position = p.ID, p.Section, p.Project, pos
				} else {
					sec, err := s.Sections().Get(section)
					if err != nil {
						return err
					}
					pos, err := s.Tasks().NextPositionInSection(section)
					if err != nil {
						return err
					}
					t.Section, t.Project, t.Position = sec.ID, sec.Project, pos
				}
				created, err := s.Tasks().Create(t)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), created, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "created task %d %q\n", created.ID, created.Name)
					return nil
				})
			})
		},
	}
	cmd.Flags().Int64Var(&section, "section", 0, "section id for a top-level task")
	cmd.Flags().Int64Var(&parent, "parent", 0, "parent task id for a subtask")
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&date, "date", "", "due date (unix seconds, RFC3339, or YYYY-MM-DD[ HH:MM])")
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	var (
		project, section, parent int64
		done, open, all          bool
		from, to                 string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in position order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if done && open {
				return usageErrorf("--done and --open are mutually exclusive")
			}
			filter := types.TaskFilter{IncludeSuspended: all}
			if project != 0 {
				filter.Project = types.Int64(project)
			}
			if section != 0 {
				filter.Section = types.Int64(section)
			}
			if parent != 0 {
				filter.Parent = types.Int64(parent)
			}
			if done || open {
				filter.Done = types.Bool(done)
			}
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
				tasks, err := s.Tasks().List(filter)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), tasks, func() error {
					return printTasks(cmd, tasks)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&project, "project", 0, "only tasks in this project")
	cmd.Flags().Int64Var(&section, "section", 0, "only tasks in this section")
	cmd.Flags().Int64Var(&parent, "parent", 0, "only direct subtasks of this task")
	cmd.Flags().BoolVar(&done, "done", false, "only completed tasks")
	cmd.Flags().BoolVar(&open, "open", false, "only open tasks")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include suspended tasks")
	cmd.Flags().StringVar(&from, "from", "", "dated on or after this time")
	cmd.Flags().StringVar(&to, "to", "", "dated before this time")
	return cmd
}

func newTaskShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task, its subtasks, and its tracked time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				t, err := s.Tasks().Get(id)
				if err != nil {
					return err
				}
				children, err := s.Tasks().Children(id)
				if err != nil {
					return err
				}
				total, err := s.Tasks().Duration(id)
				if err != nil {
					return err
				}
				view := struct {
					*types.Task
					Subtasks []*types.Task `json:"subtasks"`
					Tracked  int64         `json:"tracked"`
				}{t, children, total}
				return a.emit(cmd.OutOrStdout(), view, func() error {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "[%s] %d  %s\n", taskMark(t), t.ID, t.Name)
					if t.Description != "" {
						fmt.Fprintf(out, "    %s\n", t.Description)
					}
					fmt.Fprintf(out, "    project %d  section %d  parent %d  position %d\n", t.Project, t.Section, t.Parent, t.Position)
					if t.HasDate() {
						fmt.Fprintf(out, "    date %s\n", formatTime(t.Date))
					}
					fmt.Fprintf(out, "    tracked %s\n", formatDuration(total))
					if len(children) == 0 {
						return nil
					}
					return printTasks(cmd, children)
				})
			})
		},
	}
}

func newTaskEditCmd(a *app) *cobra.Command {
	var (
		name, description, date string
		clearDate               bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's name, description, or date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				t, err := s.Tasks().Get(id)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("name") {
					t.Name = name
				}
				if cmd.Flags().Changed("description") {
					t.Description = description
				}
				if date != "" {
					if t.Date, err = parseTime(date, time.Now()); err != nil {
						return err
					}
				}
				if clearDate {
					t.Date = 0
				}
				if err := s.Tasks().Update(t); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), t, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "updated task %d\n", t.ID)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&date, "date", "", "new due date")
	cmd.Flags().BoolVar(&clearDate, "clear-date", false, "remove the due date")
	return cmd
}

func newTaskMoveCmd(a *app) *cobra.Command {
	var (
		section, parent int64
		topLevel        bool
	)
	cmd := &cobra.Command{
		Use:   "move <id> [position]",
		Short: "Reorder a task, reparent it, or move it to another section",
		Long: "Move a task to position among its siblings. With --parent, --top-level, or\n" +
			"--section the task and its subtree change scope and are appended unless\n" +
			"position is given.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			if parent != 0 && (topLevel || section != 0) {
				return usageErrorf("--parent cannot be combined with --top-level or --section")
			}
			return a.withStore(func(s types.Store) error {
				t, err := s.Tasks().Get(id)
				if err != nil {
					return err
				}
				moved := *t
				if parent != 0 {
					p, err := s.Tasks().Get(parent)
					if err != nil {
						return err
					}
					moved.Parent, moved.Section, moved.Project = p.ID, p.Section, p.Project
				}
				if topLevel {
					moved.Parent = 0
				}
				if section != 0 {
					if !moved.IsTopLevel() {
						return usageErrorf("--section applies to top-level tasks; add --top-level to lift a subtask")
					}
					sec, err := s.Sections().Get(section)
					if err != nil {
						return err
					}
					moved.Section, moved.Project = sec.ID, sec.Project
				}

				var next int64
				if moved.IsTopLevel() {
					next, err = s.Tasks().NextPositionInSection(moved.Section)
				} else {
					next, err = s.Tasks().NextPositionUnderParent(moved.Parent)
				}
				if err != nil {
					return err
				}
				sameScope := moved.SameScope(t)
				last := next
				if sameScope {
					last--
				}
				position := last
				switch {
				case len(args) == 2:
					if position, err = parseIndex(args[1]); err != nil {
						return err
					}
				case sameScope:
					return usageErrorf("task move needs a position or a new scope")
				}
				moved.Position = clampIndex(position, last)

				if err := s.Tasks().Update(&moved); err != nil {
					return err
				}
				a.logger.Debug("task moved", "id", id, "parent", moved.Parent, "section", moved.Section, "position", moved.Position)
				return a.emit(cmd.OutOrStdout(), &moved, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "moved task %d to position %d\n", moved.ID, moved.Position)
					return nil
				})
			})
		},
	}
	cmd.Flags().Int64Var(&section, "section", 0, "destination section id")
	cmd.Flags().Int64Var(&parent, "parent", 0, "destination parent task id")
	cmd.Flags().BoolVar(&topLevel, "top-level", false, "lift a subtask to the top level of its section")
	return cmd
}

// newTaskFlagCmd builds a command that loads one task, applies set, and
// saves it.
func newTaskFlagCmd(a *app, use, short, verb string, set func(t *types.Task)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				t, err := s.Tasks().Get(id)
				if err != nil {
					return err
				}
				set(t)
				if err := s.Tasks().Update(t); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), t, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "%s task %d\n", verb, t.ID)
					return nil
				})
			})
		},
	}
}

func newTaskDoneCmd(a *app) *cobra.Command {
	var undo bool
	cmd := newTaskFlagCmd(a, "done", "Mark a task completed", "completed", func(t *types.Task) {
		t.Done = !undo
	})
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the task open again")
	return cmd
}

func newTaskSuspendCmd(a *app) *cobra.Command {
	return newTaskFlagCmd(a, "suspend", "Suspend a task and its subtree", "suspended", func(t *types.Task) {
		t.Suspended = true
	})
}

func newTaskRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a suspended task and its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if err := s.Tasks().Restore(id); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), map[string]int64{"restored": id}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "restored task %d\n", id)
					return nil
				})
			})
		},
	}
}

func newTaskRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task with its subtasks, records, and reminders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if err := s.Tasks().Delete(id); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), map[string]int64{"deleted": id}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "deleted task %d\n", id)
					return nil
				})
			})
		},
	}
}

func newTaskFindCmd(a *app) *cobra.Command {
	var done bool
	cmd := &cobra.Command{
		Use:   "find <text>",
		Short: "Find active tasks whose name contains text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				tasks, err := s.Tasks().Find(args[0], done)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), tasks, func() error {
					return printTasks(cmd, tasks)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&done, "done", false, "include completed tasks")
	return cmd
}

func newTaskTreeCmd(a *app) *cobra.Command {
	var dated bool
	cmd := &cobra.Command{
		Use:   "tree <id>",
		Short: "Show a task and all of its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				ids, err := s.Tasks().Tree(id, dated)
				if err != nil {
					return err
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), ids)
				}
				all, err := s.Tasks().Tree(id, false)
				if err != nil {
					return err
				}
				byID := make(map[int64]*types.Task, len(all))
				for _, tid := range all {
					t, err := s.Tasks().Get(tid)
					if err != nil {
						return err
					}
					byID[tid] = t
				}
				tbl := newTable("ID", "", "TASK", "DATE")
				for _, tid := range ids {
					t := byID[tid]
					indent := strings.Repeat("  ", depthOf(byID, id, t))
					tbl.AddRow(t.ID, taskMark(t), indent+t.Name, formatTime(t.Date))
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), tbl)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&dated, "dated", false, "only tasks with a date")
	return cmd
}

// depthOf counts parent links from t up to root within byID.
func depthOf(byID map[int64]*types.Task, root int64, t *types.Task) int {
	depth := 0
	for t != nil && t.ID != root && depth <= len(byID) {
		t = byID[t.Parent]
		depth++
	}
	return depth
}

func newTaskDurationCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "duration <id>",
		Short: "Total tracked time of a task and its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				total, err := s.Tasks().Duration(id)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), map[string]int64{"task": id, "seconds": total}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatDuration(total))
					return nil
				})
			})
		},
	}
}

func newTaskPurgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Permanently delete every suspended task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				n, err := s.Tasks().PurgeSuspended()
				if err != nil {
					return err
				}
				a.logger.Info("purged suspended tasks", "roots", n)
				return a.emit(cmd.OutOrStdout(), map[string]int{"purged": n}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "purged %d suspended task trees\n", n)
					return nil
				})
			})
		},
	}
}

func printTasks(cmd *cobra.Command, tasks []*types.Task) error {
	tbl := newTable("ID", "", "POS", "TASK", "DATE", "PROJECT", "SECTION", "PARENT")
	for _, t := range tasks {
		parent := "-"
		if !t.IsTopLevel() {
			parent = fmt.Sprint(t.Parent)
		}
		tbl.AddRow(t.ID, taskMark(t), t.Position, t.Name, formatTime(t.Date), t.Project, t.Section, parent)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), tbl)
	return err
}
