package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/store"
)

func (a *app) projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
		Long: `Create, list, show and delete projects.

Projects group secrets, typically one per application or environment.

Example:
  envvault project create api --description "Backend API"
  envvault project list
  envvault project show api
  envvault project delete api`,
	}

	cmd.AddCommand(
		a.projectCreateCommand(),
		a.projectListCommand(),
		a.projectShowCommand(),
		a.projectDeleteCommand(),
	)
	return cmd
}

func (a *app) projectCreateCommand() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return a.withStore(false, func(s *store.FileStore) error {
				if err := s.CreateProject(name, description); err != nil {
					return fmt.Errorf("failed to create project: %w", err)
				}
				return printSuccess(cmd.OutOrStdout(), "Project '%s' created", name)
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	return cmd
}

func (a *app) projectListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(false, func(s *store.FileStore) error {
				projects, err := s.ListProjects()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(projects) == 0 {
					return writeOutput(out, "No projects found\n")
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tSECRETS\tUPDATED\tDESCRIPTION")
				for _, p := range projects {
					marker := ""
					if p.Name == a.project {
						marker = " *"
					}
					fmt.Fprintf(w, "%s%s\t%d\t%s\t%s\n", p.Name, marker, len(p.Secrets), formatTime(p.LastUpdated), p.Description)
				}
				return w.Flush()
			})
		},
	}
}

func (a *app) projectShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show project details",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.project
			if len(args) == 1 {
				name = args[0]
			}

			return a.withStore(false, func(s *store.FileStore) error {
				p, err := s.GetProject(name)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if err := writeOutput(out, "Project:     %s\n", p.Name); err != nil {
					return err
				}
				if p.Description != "" {
					if err := writeOutput(out, "Description: %s\n", p.Description); err != nil {
						return err
					}
				}
				if err := writeOutput(out, "Created:     %s\nUpdated:     %s\nSecrets:     %d\n",
					formatTime(p.Created), formatTime(p.LastUpdated), len(p.Secrets)); err != nil {
					return err
				}

				categories := map[string]int{}
				for _, secret := range p.Secrets {
					categories[secret.Category]++
				}
				names := make([]string, 0, len(categories))
				for category := range categories {
					names = append(names, category)
				}
				sort.Strings(names)
				for _, category := range names {
					n := categories[category]
					if category == "" {
						category = "(none)"
					}
					if err := writeOutput(out, "  %-16s %d\n", category, n); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (a *app) projectDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a project and all its secrets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return a.withStore(false, func(s *store.FileStore) error {
				p, err := s.GetProject(name)
				if err != nil {
					return err
				}

				if !yes {
					ok, err := a.promptConfirm(fmt.Sprintf("Delete project '%s' and its %d secret(s)?", name, len(p.Secrets)), false)
					if err != nil {
						return err
					}
					if !ok {
						return writeOutput(cmd.OutOrStdout(), "Cancelled\n")
					}
				}

				if err := s.DeleteProject(name); err != nil {
					return fmt.Errorf("failed to delete project: %w", err)
				}
				return printSuccess(cmd.OutOrStdout(), "Project '%s' deleted", name)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
