package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects", "p"},
		Short:   "Manage projects",
	}
	cmd.AddCommand(
		newProjectAddCmd(a),
		newProjectListCmd(a),
		newProjectShowCmd(a),
		newProjectMoveCmd(a),
		newProjectArchiveCmd(a),
		newProjectRmCmd(a),
		newProjectFindCmd(a),
	)
	return cmd
}

func newProjectAddCmd(a *app) *cobra.Command {
	var icon, description string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project at the end of the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				p, err := s.Projects().Create(args[0], icon, description)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), p, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "created project %d %q\n", p.ID, p.Name)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&icon, "icon", "", "project icon")
	cmd.Flags().StringVarP(&description, "description", "d", "", "project description")
	return cmd
}

func newProjectListCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				projects, err := s.Projects().List(all)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), projects, func() error {
					return printProjects(cmd, projects)
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include archived projects")
	return cmd
}

func newProjectShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project and its sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				p, err := s.Projects().Get(id)
				if err != nil {
					return err
				}
				sections, err := s.Sections().List(id)
				if err != nil {
					return err
				}
				view := struct {
					*types.Project
					Sections []*types.Section `json:"sections"`
				}{p, sections}
				return a.emit(cmd.OutOrStdout(), view, func() error {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "%d  %s %s\n", p.ID, p.Icon, p.Name)
					if p.Description != "" {
						fmt.Fprintf(out, "    %s\n", p.Description)
					}
					if p.Archived {
						fmt.Fprintf(out, "    %s\n", archivedMark)
					}
					return printSections(cmd, sections)
				})
			})
		},
	}
}

func newProjectMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <index>",
		Short: "Move a project to a new display position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				p, err := s.Projects().Get(id)
				if err != nil {
					return err
				}
				all, err := s.Projects().List(true)
				if err != nil {
					return err
				}
				p.Index = clampIndex(index, int64(len(all))-1)
				if err := s.Projects().Update(p); err != nil {
					return err
				}
				a.logger.Debug("project moved", "id", id, "index", p.Index)
				return a.emit(cmd.OutOrStdout(), p, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "moved project %d to %d\n", id, p.Index)
					return nil
				})
			})
		},
	}
}

func newProjectArchiveCmd(a *app) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive or unarchive a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				p, err := s.Projects().Get(id)
				if err != nil {
					return err
				}
				p.Archived = !undo
				if err := s.Projects().Update(p); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), p, func() error {
					verb := "archived"
					if undo {
						verb = "unarchived"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s project %d\n", verb, id)
					return nil
				})
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "unarchive instead")
	return cmd
}

func newProjectRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a project with its sections, tasks, records, and reminders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if err := s.Projects().Delete(id); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), map[string]int64{"deleted": id}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "deleted project %d\n", id)
					return nil
				})
			})
		},
	}
}

func newProjectFindCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "find <text>",
		Short: "Find projects whose name contains text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				projects, err := s.Projects().Find(args[0], all)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), projects, func() error {
					return printProjects(cmd, projects)
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include archived projects")
	return cmd
}

func printProjects(cmd *cobra.Command, projects []*types.Project) error {
	tbl := newTable("ID", "INDEX", "NAME", "")
	for _, p := range projects {
		name := p.Name
		if p.Icon != "" {
			name = p.Icon + " " + name
		}
		status := ""
		if p.Archived {
			status = archivedMark
		}
		tbl.AddRow(p.ID, p.Index, name, status)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), tbl)
	return err
}

func printSections(cmd *cobra.Command, sections []*types.Section) error {
	tbl := newTable("ID", "INDEX", "SECTION")
	for _, sec := range sections {
		tbl.AddRow(sec.ID, sec.Index, sec.Name)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), tbl)
	return err
}
