package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/domain"
	"github.com/vault-cli/envvault/internal/store"
)

type addOptions struct {
	valueFile     string
	category      string
	source        string
	tags          []string
	createProject bool
}

func (a *app) addCommand() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add <KEY> [VALUE]",
		Short: "Add a secret to a project",
		Long: `Add a new secret to the current project.

The value is taken from the second argument, from a file (--value-file,
"-" for stdin), or prompted for without echo.

Example:
  envvault add OPENAI_KEY --project api
  envvault add DB_URL --value-file db.txt --category database --tags prod,db
  echo -n sk-123 | envvault add STRIPE_KEY --value-file -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAdd(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.valueFile, "value-file", "", "Read the value from a file (- for stdin)")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Secret category")
	cmd.Flags().StringVar(&opts.source, "source", domain.SourceManual, "Provenance of the secret")
	cmd.Flags().StringSliceVarP(&opts.tags, "tags", "t", nil, "Comma-separated tags")
	cmd.Flags().BoolVar(&opts.createProject, "create-project", false, "Create the project if it does not exist")
	return cmd
}

func (a *app) runAdd(cmd *cobra.Command, args []string, opts addOptions) error {
	key := args[0]

	return a.withStore(false, func(s *store.FileStore) error {
		if _, err := s.GetProject(a.project); err != nil {
			if !errors.Is(err, store.ErrProjectNotFound) || !opts.createProject {
				return err
			}
			if err := s.CreateProject(a.project, ""); err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}
		}
		if _, err := s.GetSecret(a.project, key); err == nil {
			return fmt.Errorf("%w: %s/%s (use 'envvault update')", store.ErrSecretExists, a.project, key)
		}

		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			var err error
			value, err = a.readSecretValue(opts.valueFile, fmt.Sprintf("Value for %s: ", key))
			if err != nil {
				return err
			}
		}

		entry := &domain.SecretEntry{
			Key:      key,
			Value:    value,
			Source:   opts.source,
			Category: opts.category,
			Tags:     opts.tags,
		}
		if err := s.AddSecret(a.project, entry); err != nil {
			return fmt.Errorf("failed to add secret: %w", err)
		}

		return printSuccess(cmd.OutOrStdout(), "Secret '%s' added to project '%s'", key, a.project)
	})
}
