package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/config"
	"github.com/vault-cli/envvault/internal/store"
)

func (a *app) initCommand() *cobra.Command {
	var createProject bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty encrypted vault",
		Long: `Create an empty encrypted vault at the configured path.

Nothing happens if a vault already exists there. With the passphrase
backend you are asked to choose a passphrase unless ENVVAULT_PASSPHRASE
is set.

Example:
  envvault init
  envvault init --vault ./secrets/vault.json --default-project`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd, createProject)
		},
	}

	cmd.Flags().BoolVar(&createProject, "default-project", false, "Also create the default project")
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, createProject bool) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(a.cfg.VaultPath); err == nil {
		return printWarning(out, "Vault already exists at %s", a.cfg.VaultPath)
	}

	a.newPassphrase = a.cfg.Encryption.Backend == config.BackendPassphrase

	return a.withStore(true, func(s *store.FileStore) error {
		if err := s.Initialize(); err != nil {
			return err
		}
		if err := printSuccess(out, "Vault initialized at %s (%s)", s.Path(), a.cfg.Encryption.Backend); err != nil {
			return err
		}

		if createProject {
			if err := s.CreateProject(a.project, ""); err != nil {
				return err
			}
			if err := printSuccess(out, "Project '%s' created", a.project); err != nil {
				return err
			}
		}
		return printHint(out, "Add a secret with %s", emphasis("envvault add KEY"))
	})
}
