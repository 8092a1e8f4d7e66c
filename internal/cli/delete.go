package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/store"
)

func (a *app) deleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <KEY>",
		Aliases: []string{"rm"},
		Short:   "Delete a secret",
		Long: `Delete a secret from the current project.

The previous vault file is kept as a backup, so a mistaken delete can be
undone with 'envvault backups restore'.

Example:
  envvault delete OPENAI_KEY --project api
  envvault delete OPENAI_KEY -y`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			return a.withStore(false, func(s *store.FileStore) error {
				if _, err := s.GetSecret(a.project, key); err != nil {
					return err
				}

				if !yes {
					ok, err := a.promptConfirm(fmt.Sprintf("Delete '%s' from project '%s'?", key, a.project), false)
					if err != nil {
						return err
					}
					if !ok {
						return writeOutput(cmd.OutOrStdout(), "Cancelled\n")
					}
				}

				if err := s.DeleteSecret(a.project, key); err != nil {
					return fmt.Errorf("failed to delete secret: %w", err)
				}
				return printSuccess(cmd.OutOrStdout(), "Secret '%s' deleted from project '%s'", key, a.project)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
