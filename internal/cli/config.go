package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vault-cli/envvault/internal/config"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage envvault configuration",
		Long: `Manage envvault configuration settings.

Configuration is stored in ~/.config/envvault/config.yaml by default.
Keys use the YAML names, with dots for nested settings.

Example:
  envvault config path                           # Show config file path
  envvault config get                            # Show all configuration
  envvault config get encryption.backend         # Get one value
  envvault config set clipboard_ttl 60s          # Set clipboard timeout
  envvault config set encryption.backend sops`,
	}

	getCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get configuration value(s)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				data, err := yaml.Marshal(a.cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				return writeOutput(cmd.OutOrStdout(), "# %s\n%s", a.cfgFile, data)
			}
			value, err := configValue(a.cfg, args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), "%s\n", value)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Reload so flag overrides such as --vault are not written back
			cfg, err := config.LoadConfig(a.cfgFile)
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg, a.cfgFile); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
			return printSuccess(cmd.OutOrStdout(), "Configuration updated: %s = %s", args[0], args[1])
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOutput(cmd.OutOrStdout(), "%s\n", a.cfgFile)
		},
	}

	cmd.AddCommand(getCmd, setCmd, pathCmd)
	return cmd
}

func normalizeConfigKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "-", "_")
}

func configValue(cfg *config.Config, key string) (string, error) {
	enc := cfg.Encryption
	switch normalizeConfigKey(key) {
	case "vault_path":
		return cfg.VaultPath, nil
	case "default_project":
		return cfg.DefaultProject, nil
	case "backup_retention":
		return strconv.Itoa(cfg.BackupRetention), nil
	case "audit_path":
		return cfg.ResolvedAuditPath(), nil
	case "log_level":
		return cfg.LogLevel, nil
	case "clipboard_ttl":
		return cfg.ClipboardTTL.String(), nil
	case "encryption.backend":
		return enc.Backend, nil
	case "encryption.age.binary":
		return enc.Age.Binary, nil
	case "encryption.age.recipients":
		return strings.Join(enc.Age.Recipients, ","), nil
	case "encryption.age.identity_file":
		return enc.Age.IdentityFile, nil
	case "encryption.age.armor":
		return strconv.FormatBool(enc.Age.Armor), nil
	case "encryption.sops.binary":
		return enc.Sops.Binary, nil
	case "encryption.sops.age_recipients":
		return strings.Join(enc.Sops.AgeRecipients, ","), nil
	case "encryption.passphrase.memory":
		return strconv.FormatUint(uint64(enc.Passphrase.Memory), 10), nil
	case "encryption.passphrase.iterations":
		return strconv.FormatUint(uint64(enc.Passphrase.Iterations), 10), nil
	case "encryption.passphrase.parallelism":
		return strconv.FormatUint(uint64(enc.Passphrase.Parallelism), 10), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

func setConfigValue(cfg *config.Config, key, value string) error {
	enc := &cfg.Encryption
	switch normalizeConfigKey(key) {
	case "vault_path":
		cfg.VaultPath = value
	case "default_project":
		cfg.DefaultProject = value
	case "backup_retention":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		cfg.BackupRetention = n
	case "audit_path":
		cfg.AuditPath = value
	case "log_level":
		switch value {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", value)
		}
		cfg.LogLevel = value
	case "clipboard_ttl":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		cfg.ClipboardTTL = d
	case "encryption.backend":
		enc.Backend = value
	case "encryption.age.binary":
		enc.Age.Binary = value
	case "encryption.age.recipients":
		enc.Age.Recipients = splitList(value)
	case "encryption.age.identity_file":
		enc.Age.IdentityFile = value
	case "encryption.age.armor":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %w", err)
		}
		enc.Age.Armor = b
	case "encryption.sops.binary":
		enc.Sops.Binary = value
	case "encryption.sops.age_recipients":
		enc.Sops.AgeRecipients = splitList(value)
	case "encryption.passphrase.memory":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		enc.Passphrase.Memory = uint32(n)
	case "encryption.passphrase.iterations":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		enc.Passphrase.Iterations = uint32(n)
	case "encryption.passphrase.parallelism":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		enc.Passphrase.Parallelism = uint8(n)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
