package cli

import (
	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/domain"
	"github.com/vault-cli/envvault/internal/store"
)

func (a *app) exportCommand() *cobra.Command {
	var (
		category string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a project as an env file",
		Long: `Write the current project's secrets as KEY=VALUE lines.

Output goes to stdout, or to --output which is written atomically with
0600 permissions. A project that does not exist exports as empty text.

Example:
  envvault export --project api > .env
  envvault export --project api --category database --output db.env
  eval "$(envvault export --project api | sed 's/^/export /')"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			err := a.withStore(false, func(s *store.FileStore) error {
				var err error
				text, err = s.ExportEnv(domain.ExportOptions{Project: a.project, Category: category})
				return err
			})
			if err != nil {
				return err
			}

			if output == "" {
				return writeString(cmd.OutOrStdout(), text)
			}
			if err := store.AtomicWriteFile(output, []byte(text), a.log()); err != nil {
				return err
			}
			return printSuccess(cmd.ErrOrStderr(), "Exported project '%s' to %s", a.project, output)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only export secrets in this category")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
