package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/store"
)

func (a *app) getCommand() *cobra.Command {
	var (
		copyValue bool
		noWait    bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "get <KEY>",
		Short: "Print or copy a secret",
		Long: `Print a secret value, or copy it to the clipboard with --copy.

Copied values are cleared from the clipboard after clipboard_ttl unless
something else was copied in the meantime. The command waits for the
clear unless --no-wait is given.

Example:
  envvault get OPENAI_KEY --project api
  envvault get OPENAI_KEY --copy
  envvault get OPENAI_KEY --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			var value string
			err := a.withStore(false, func(s *store.FileStore) error {
				secret, err := s.GetSecret(a.project, key)
				if err != nil {
					return err
				}

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(secret)
				}
				value = secret.Value
				return nil
			})
			if err != nil || asJSON {
				return err
			}

			if !copyValue {
				return writeOutput(cmd.OutOrStdout(), "%s\n", value)
			}
			return a.copyToClipboard(cmd, key, value, !noWait)
		},
	}

	cmd.Flags().BoolVar(&copyValue, "copy", false, "Copy the value to the clipboard instead of printing it")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return immediately after copying; the clipboard is not cleared")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full entry as JSON")
	cmd.MarkFlagsMutuallyExclusive("copy", "json")
	return cmd
}

// copyToClipboard copies value and optionally blocks until the clipboard is cleared
func (a *app) copyToClipboard(cmd *cobra.Command, key, value string, wait bool) error {
	if !a.clipboard.IsAvailable() {
		return fmt.Errorf("clipboard not available, run without --copy to print the value")
	}

	ttl := a.cfg.ClipboardTTL
	if !wait {
		ttl = 0
	}
	done, err := a.clipboard.CopyWithTimeout(value, ttl)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ttl <= 0 {
		return printSuccess(out, "'%s' copied to clipboard", key)
	}
	if err := printSuccess(out, "'%s' copied to clipboard (clears in %s)", key, ttl.Round(time.Second)); err != nil {
		return err
	}
	<-done
	return nil
}
