package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/config"
	"github.com/vault-cli/envvault/internal/keyring"
	"github.com/vault-cli/envvault/internal/store"
)

func (a *app) unlockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Cache the vault passphrase in the OS keyring",
		Long: `Verify the vault passphrase and store it in the OS keyring so later
commands do not prompt for it. Only used by the passphrase backend; age
and sops read their own key material.

Example:
  envvault unlock
  ENVVAULT_PASSPHRASE=... envvault unlock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUnlock(cmd)
		},
	}
}

func (a *app) runUnlock(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if a.cfg.Encryption.Backend != config.BackendPassphrase {
		return printHint(out, "The %s backend does not use a passphrase; nothing to unlock", a.cfg.Encryption.Backend)
	}

	pass := os.Getenv(config.EnvPassphrase)
	if pass == "" {
		var err error
		if pass, err = a.promptPassword("Vault passphrase: "); err != nil {
			return err
		}
	}

	gw, err := a.newGateway(a.cfg.Encryption, func() (string, error) { return pass, nil })
	if err != nil {
		return err
	}
	s := store.NewFileStore(a.cfg.VaultPath, gw, store.WithLogger(a.log()))
	if err := s.Load(); err != nil {
		return fmt.Errorf("failed to unlock vault: %w", err)
	}

	if err := keyring.SavePassphrase(a.cfg.VaultPath, pass); err != nil {
		return fmt.Errorf("failed to save passphrase to keyring: %w", err)
	}
	return printSuccess(out, "Vault unlocked; passphrase cached in the OS keyring")
}
