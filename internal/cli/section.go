package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

func newSectionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "section",
		Aliases: []string{"sections", "s"},
		Short:   "Manage sections within projects",
	}
	cmd.AddCommand(
		newSectionAddCmd(a),
		newSectionListCmd(a),
		newSectionMoveCmd(a),
		newSectionRmCmd(a),
	)
	return cmd
}

func newSectionAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <project-id> <name>",
		Short: "Create a section at the end of a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if _, err := s.Projects().Get(projectID); err != nil {
					return err
				}
				sec, err := s.Sections().Create(args[1], projectID)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), sec, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "created section %d %q in project %d\n", sec.ID, sec.Name, projectID)
					return nil
				})
			})
		},
	}
}

func newSectionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the sections of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				sections, err := s.Sections().List(projectID)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), sections, func() error {
					return printSections(cmd, sections)
				})
			})
		},
	}
}

func newSectionMoveCmd(a *app) *cobra.Command {
	var project int64
	cmd := &cobra.Command{
		Use:   "move <id> [index]",
		Short: "Reorder a section or move it to another project",
		Long: "Move a section to index within its project. With --project the section\n" +
			"and all of its tasks move to that project, appended unless index is given.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("section", args[0])
			if err != nil {
				return err
			}
			if len(args) < 2 && project == 0 {
				return usageErrorf("section move needs an index, --project, or both")
			}
			return a.withStore(func(s types.Store) error {
				sec, err := s.Sections().Get(id)
				if err != nil {
					return err
				}
				target := sec.Project
				if project != 0 {
					if _, err := s.Projects().Get(project); err != nil {
						return err
					}
					target = project
				}
				siblings, err := s.Sections().List(target)
				if err != nil {
					return err
				}
				last := int64(len(siblings)) - 1
				if target != sec.Project {
					last++
				}
				index := last
				if len(args) == 2 {
					if index, err = parseIndex(args[1]); err != nil {
						return err
					}
				}
				sec.Project = target
				sec.Index = clampIndex(index, last)
				if err := s.Sections().Update(sec); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), sec, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "moved section %d to project %d index %d\n", sec.ID, sec.Project, sec.Index)
					return nil
				})
			})
		},
	}
	cmd.Flags().Int64Var(&project, "project", 0, "destination project id")
	return cmd
}

func newSectionRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a section with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("section", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if err := s.Sections().Delete(id); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), map[string]int64{"deleted": id}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "deleted section %d\n", id)
					return nil
				})
			})
		},
	}
}
