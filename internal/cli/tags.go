package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/store"
)

func (a *app) tagsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage the vault-wide tag list",
		Long: `Manage the list of tags shared by every project in the vault.

Secrets may carry any tag; the global list documents the ones in use.

Example:
  envvault tags list
  envvault tags add production staging
  envvault tags remove staging`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List global tags",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(false, func(s *store.FileStore) error {
					tags, err := s.GlobalTags()
					if err != nil {
						return err
					}
					if len(tags) == 0 {
						return writeOutput(cmd.OutOrStdout(), "No global tags\n")
					}
					return writeOutput(cmd.OutOrStdout(), "%s\n", strings.Join(tags, "\n"))
				})
			},
		},
		&cobra.Command{
			Use:   "add <tag>...",
			Short: "Add global tags",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(false, func(s *store.FileStore) error {
					if err := s.AddGlobalTags(args...); err != nil {
						return err
					}
					if !s.Status().Pending() {
						return writeOutput(cmd.OutOrStdout(), "Tags already present\n")
					}
					if err := s.Save(); err != nil {
						return err
					}
					return printSuccess(cmd.OutOrStdout(), "Global tags updated")
				})
			},
		},
		&cobra.Command{
			Use:   "remove <tag>",
			Short: "Remove a global tag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(false, func(s *store.FileStore) error {
					removed, err := s.RemoveGlobalTag(args[0])
					if err != nil {
						return err
					}
					if !removed {
						return printWarning(cmd.OutOrStdout(), "Tag '%s' is not in the global list", args[0])
					}
					if err := s.Save(); err != nil {
						return err
					}
					return printSuccess(cmd.OutOrStdout(), "Tag '%s' removed", args[0])
				})
			},
		},
	)
	return cmd
}
