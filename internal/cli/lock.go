package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/keyring"
)

func (a *app) lockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Remove the cached passphrase from the OS keyring",
		Long: `Remove the vault passphrase cached by 'envvault unlock'. Later commands
prompt for the passphrase again unless ENVVAULT_PASSPHRASE is set.

Example:
  envvault lock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !keyring.HasPassphrase(a.cfg.VaultPath) {
				return writeOutput(out, "Vault is already locked\n")
			}
			if err := keyring.DeletePassphrase(a.cfg.VaultPath); err != nil {
				return fmt.Errorf("failed to lock vault: %w", err)
			}
			return printSuccess(out, "Vault locked")
		},
	}
}
