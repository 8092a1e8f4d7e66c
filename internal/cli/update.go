package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/domain"
	"github.com/vault-cli/envvault/internal/store"
)

func (a *app) updateCommand() *cobra.Command {
	var (
		promptValue bool
		valueFile   string
		category    string
		source      string
		tags        []string
		clearTags   bool
	)

	cmd := &cobra.Command{
		Use:   "update <KEY> [VALUE]",
		Short: "Update a secret",
		Long: `Update the value or metadata of an existing secret.

Only the given fields change. A new value comes from the second argument,
--value-file, or a hidden prompt with --value.

Example:
  envvault update OPENAI_KEY sk-456
  envvault update OPENAI_KEY --value
  envvault update DB_URL --category database --tags prod
  envvault update DB_URL --clear-tags`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			var patch domain.SecretPatch

			switch {
			case len(args) == 2:
				patch.Value = &args[1]
			case valueFile != "" || promptValue:
				value, err := a.readSecretValue(valueFile, fmt.Sprintf("New value for %s: ", key))
				if err != nil {
					return err
				}
				patch.Value = &value
			}

			flags := cmd.Flags()
			if flags.Changed("category") {
				patch.Category = &category
			}
			if flags.Changed("source") {
				patch.Source = &source
			}
			if clearTags {
				empty := []string{}
				patch.Tags = &empty
			} else if flags.Changed("tags") {
				patch.Tags = &tags
			}

			if patch.IsEmpty() {
				return errors.New("nothing to update: give a value or at least one of --category, --source, --tags")
			}

			return a.withStore(false, func(s *store.FileStore) error {
				if err := s.UpdateSecret(a.project, key, patch); err != nil {
					return fmt.Errorf("failed to update secret: %w", err)
				}
				return printSuccess(cmd.OutOrStdout(), "Secret '%s' updated in project '%s'", key, a.project)
			})
		},
	}

	cmd.Flags().BoolVar(&promptValue, "value", false, "Prompt for a new value")
	cmd.Flags().StringVar(&valueFile, "value-file", "", "Read the new value from a file (- for stdin)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New category")
	cmd.Flags().StringVar(&source, "source", "", "New provenance")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Replace tags")
	cmd.Flags().BoolVar(&clearTags, "clear-tags", false, "Remove all tags")
	cmd.MarkFlagsMutuallyExclusive("tags", "clear-tags")
	cmd.MarkFlagsMutuallyExclusive("value", "value-file")
	return cmd
}
