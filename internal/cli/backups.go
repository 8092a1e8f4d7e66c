package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/store"
)

func (a *app) backupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backups",
		Aliases: []string{"backup"},
		Short:   "List or restore vault backups",
		Long: `Every write keeps a copy of the previous vault file next to the vault.
Only the newest backup_retention copies are kept.

Example:
  envvault backups list
  envvault backups restore 1
  envvault backups restore ~/.local/share/envvault/vault.json.backup.1718000000000`,
	}

	cmd.AddCommand(a.backupsListCommand(), a.backupsRestoreCommand())
	return cmd
}

func (a *app) backupsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(false, func(s *store.FileStore) error {
				backups, err := s.Backups()
				if err != nil {
					return err
				}
				if len(backups) == 0 {
					return writeOutput(cmd.OutOrStdout(), "No backups found\n")
				}
				return writeBackupTable(cmd.OutOrStdout(), backups)
			})
		},
	}
}

func writeBackupTable(out io.Writer, backups []store.Backup) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCREATED\tSIZE\tPATH")
	for i, b := range backups {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i+1, formatTime(b.Timestamp), b.Size, b.Path)
	}
	return w.Flush()
}

func (a *app) backupsRestoreCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <number|path>",
		Short: "Replace the vault with a backup",
		Long: `Replace the vault with one of its backups. The backup is given by its
number in 'envvault backups list' (1 is the newest) or by path.

The current vault is itself backed up before it is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(false, func(s *store.FileStore) error {
				path, err := resolveBackup(s, args[0])
				if err != nil {
					return err
				}

				if !yes {
					ok, err := a.promptConfirm(fmt.Sprintf("Replace the vault with %s?", path), false)
					if err != nil {
						return err
					}
					if !ok {
						return writeOutput(cmd.OutOrStdout(), "Cancelled\n")
					}
				}

				if err := s.RestoreBackup(path); err != nil {
					return fmt.Errorf("failed to restore backup: %w", err)
				}
				return printSuccess(cmd.OutOrStdout(), "Vault restored from %s", path)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

// resolveBackup maps a list number to a backup path; anything else is taken as a path
func resolveBackup(s *store.FileStore, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}

	backups, err := s.Backups()
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(backups) {
		return "", fmt.Errorf("%w: backup number %d out of range (1-%d)", store.ErrNotBackup, n, len(backups))
	}
	return backups[n-1].Path, nil
}
