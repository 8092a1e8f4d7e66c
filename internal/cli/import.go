package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/domain"
	"github.com/vault-cli/envvault/internal/store"
)

func (a *app) importCommand() *cobra.Command {
	var (
		category  string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import secrets from an env file",
		Long: `Import KEY=VALUE pairs from an env file into the current project.

The project is created if needed. Existing keys are skipped with a warning
unless --overwrite is given. Imported secrets get source "env" and the
given category (default "environment"). Reads stdin when the file is "-"
or omitted.

Example:
  envvault import .env --project api
  envvault import .env.production --category production --overwrite
  cat .env | envvault import`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := "-"
			if len(args) == 1 {
				file = args[0]
			}

			text, err := a.readEnvSource(file)
			if err != nil {
				return err
			}

			opts := domain.ImportOptions{Project: a.project, Category: category, Overwrite: overwrite}
			return a.withStore(false, func(s *store.FileStore) error {
				result, err := s.ImportEnv(text, opts)
				if err != nil {
					return fmt.Errorf("failed to import: %w", err)
				}
				return printImportResult(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Category for imported secrets (default \"environment\")")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing keys")
	return cmd
}

func (a *app) readEnvSource(file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(a.inputReader())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read env file: %w", err)
	}
	return string(data), nil
}

func printImportResult(out io.Writer, result *domain.ImportResult) error {
	if result.ProjectCreated {
		if err := printSuccess(out, "Project '%s' created", result.Project); err != nil {
			return err
		}
	}
	if err := printSuccess(out, "Imported into '%s': %d added, %d updated, %d skipped",
		result.Project, len(result.Added), len(result.Updated), len(result.Skipped)); err != nil {
		return err
	}
	if len(result.Skipped) > 0 {
		if err := printWarning(out, "Skipped: %s", strings.Join(result.Skipped, ", ")); err != nil {
			return err
		}
		return printHint(out, "Use %s to replace existing keys", emphasis("--overwrite"))
	}
	return nil
}
