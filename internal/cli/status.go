package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/keyring"
	"github.com/vault-cli/envvault/internal/store"
)

type projectStatus struct {
	Name    string `json:"name"`
	Secrets int    `json:"secrets"`
}

type statusInfo struct {
	VaultPath      string          `json:"vault_path"`
	Backend        string          `json:"backend"`
	Encrypted      bool            `json:"encrypted"`
	Version        int             `json:"version"`
	Created        time.Time       `json:"created"`
	LastUpdated    time.Time       `json:"last_updated"`
	Projects       []projectStatus `json:"projects"`
	SecretCount    int             `json:"secret_count"`
	GlobalTags     []string        `json:"global_tags"`
	Backups        int             `json:"backups"`
	BackupRetained int             `json:"backup_retention"`
	KeyringCached  bool            `json:"keyring_cached"`
}

func (a *app) statusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show vault status",
		Long:  "Display vault metadata, project statistics and backup state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output status as JSON")
	return cmd
}

func (a *app) runStatus(cmd *cobra.Command, asJSON bool) error {
	info := statusInfo{
		VaultPath:      a.cfg.VaultPath,
		Backend:        a.cfg.Encryption.Backend,
		BackupRetained: a.cfg.BackupRetention,
		KeyringCached:  keyring.HasPassphrase(a.cfg.VaultPath),
	}

	err := a.withStore(false, func(s *store.FileStore) error {
		data, err := s.Snapshot()
		if err != nil {
			return err
		}

		gw, err := a.newGateway(a.cfg.Encryption, a.passphraseSource())
		if err != nil {
			return err
		}
		if info.Encrypted, err = gw.IsEncrypted(s.Path()); err != nil {
			return err
		}

		info.Version = data.Version
		info.Created = data.Metadata.Created
		info.LastUpdated = data.Metadata.LastUpdated
		info.GlobalTags = data.GlobalTags
		info.Projects = make([]projectStatus, 0, len(data.Projects))
		for _, p := range data.Projects {
			info.Projects = append(info.Projects, projectStatus{Name: p.Name, Secrets: len(p.Secrets)})
			info.SecretCount += len(p.Secrets)
		}

		backups, err := s.Backups()
		if err != nil {
			return err
		}
		info.Backups = len(backups)
		return nil
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	lines := []string{
		fmt.Sprintf("Vault:        %s", info.VaultPath),
		fmt.Sprintf("Backend:      %s", info.Backend),
		fmt.Sprintf("Encrypted:    %t", info.Encrypted),
		fmt.Sprintf("Version:      %d", info.Version),
		fmt.Sprintf("Created:      %s", formatTime(info.Created)),
		fmt.Sprintf("Last updated: %s", formatTime(info.LastUpdated)),
		fmt.Sprintf("Projects:     %d", len(info.Projects)),
		fmt.Sprintf("Secrets:      %d", info.SecretCount),
		fmt.Sprintf("Backups:      %d (retaining %d)", info.Backups, info.BackupRetained),
	}
	if len(info.GlobalTags) > 0 {
		lines = append(lines, fmt.Sprintf("Global tags:  %v", info.GlobalTags))
	}
	if info.KeyringCached {
		lines = append(lines, "Keyring:      passphrase cached")
	}
	for _, line := range lines {
		if err := writeOutput(out, "%s\n", line); err != nil {
			return err
		}
	}

	if a.verbose {
		for _, p := range info.Projects {
			if err := writeOutput(out, "  %-20s %d secrets\n", p.Name, p.Secrets); err != nil {
				return err
			}
		}
	}

	if _, err := os.Stat(a.cfg.VaultPath + ".lock"); err == nil {
		return printWarning(out, "lock file present")
	}
	return nil
}
