package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vault-cli/envvault/internal/audit"
	"github.com/vault-cli/envvault/internal/config"
	"github.com/vault-cli/envvault/internal/store"
)

type doctorReport struct {
	out      io.Writer
	issues   int
	warnings int
}

func (r *doctorReport) section(title string) error {
	return writeOutput(r.out, "\n%s\n", title)
}

func (r *doctorReport) ok(format string, args ...interface{}) error {
	return printSuccess(r.out, format, args...)
}

func (r *doctorReport) warn(format string, args ...interface{}) error {
	r.warnings++
	return printWarning(r.out, format, args...)
}

func (r *doctorReport) fail(format string, args ...interface{}) error {
	r.issues++
	return printFailure(r.out, format, args...)
}

func (a *app) doctorCommand() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check vault health",
		Long: `Run health checks on the vault and its surroundings.

This command checks:
- configuration validity
- vault file permissions and encryption
- that the vault decrypts and passes structural validation
- backup count and leftover temporary files
- audit journal integrity
- availability of the encryption tool

Example:
  envvault doctor
  envvault doctor --fix`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDoctor(cmd, fix)
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Repair permissions and remove leftover temporary files")
	return cmd
}

func (a *app) runDoctor(cmd *cobra.Command, fix bool) error {
	r := &doctorReport{out: cmd.OutOrStdout()}
	if err := writeOutput(r.out, "envvault health check\n=====================\n"); err != nil {
		return err
	}

	if err := a.checkConfig(r); err != nil {
		return err
	}
	if err := a.checkTool(r); err != nil {
		return err
	}

	if err := r.section("Vault file"); err != nil {
		return err
	}
	if _, err := os.Stat(a.cfg.VaultPath); err != nil {
		if err := r.fail("Vault not found at %s", a.cfg.VaultPath); err != nil {
			return err
		}
		if err := printHint(r.out, "Run %s", emphasis("envvault init")); err != nil {
			return err
		}
		return r.summary()
	}

	if err := a.checkPermissions(r, fix); err != nil {
		return err
	}
	if err := a.checkVault(r); err != nil {
		return err
	}
	if err := a.checkLeftovers(r, fix); err != nil {
		return err
	}
	if err := a.checkAudit(r); err != nil {
		return err
	}

	return r.summary()
}

func (r *doctorReport) summary() error {
	if err := writeOutput(r.out, "\n%d issue(s), %d warning(s)\n", r.issues, r.warnings); err != nil {
		return err
	}
	if r.issues > 0 {
		return fmt.Errorf("doctor found %d issue(s)", r.issues)
	}
	return nil
}

func (a *app) checkConfig(r *doctorReport) error {
	if err := r.section("Configuration"); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return r.fail("Invalid configuration: %v", err)
	}
	if info, err := os.Stat(a.cfgFile); err == nil && info.Mode().Perm()&0o077 != 0 {
		return r.warn("Config file permissions %o, 0600 recommended", info.Mode().Perm())
	}
	return r.ok("Configuration is valid (%s)", a.cfgFile)
}

func (a *app) checkTool(r *doctorReport) error {
	var binary string
	switch a.cfg.Encryption.Backend {
	case config.BackendAge:
		binary = a.cfg.Encryption.Age.Binary
		if len(a.cfg.Encryption.Age.Recipients) == 0 {
			if err := r.warn("No age recipients configured; saving will fail"); err != nil {
				return err
			}
		}
	case config.BackendSops:
		binary = a.cfg.Encryption.Sops.Binary
	default:
		return r.ok("Built-in %s backend needs no external tool", a.cfg.Encryption.Backend)
	}

	if path, err := exec.LookPath(binary); err == nil {
		return r.ok("Encryption tool %s found at %s", binary, path)
	}
	return r.warn("Encryption tool %s not found in PATH", binary)
}

func (a *app) checkPermissions(r *doctorReport, fix bool) error {
	info, err := os.Stat(a.cfg.VaultPath)
	if err != nil {
		return r.fail("Cannot stat vault: %v", err)
	}

	perm := info.Mode().Perm()
	if perm&0o077 == 0 {
		return r.ok("Vault file permissions %o", perm)
	}
	if fix {
		if err := store.EnsureFilePermissions(a.cfg.VaultPath); err != nil {
			return r.fail("Failed to fix permissions: %v", err)
		}
		return r.ok("Vault file permissions fixed (was %o)", perm)
	}
	return r.fail("Vault file permissions %o are too permissive, should be 0600", perm)
}

func (a *app) checkVault(r *doctorReport) error {
	return a.withStore(false, func(s *store.FileStore) error {
		gw, err := a.newGateway(a.cfg.Encryption, a.passphraseSource())
		if err != nil {
			return r.fail("Encryption backend unavailable: %v", err)
		}

		encrypted, err := gw.IsEncrypted(s.Path())
		switch {
		case err != nil:
			if err := r.fail("Cannot inspect vault: %v", err); err != nil {
				return err
			}
		case !encrypted:
			if err := r.warn("Vault is stored unencrypted; it will be encrypted on the next save"); err != nil {
				return err
			}
		default:
			if err := r.ok("Vault is encrypted"); err != nil {
				return err
			}
		}

		if err := s.Load(); err != nil {
			return r.fail("Vault does not load: %v", err)
		}
		data, err := s.Snapshot()
		if err != nil {
			return r.fail("Vault does not load: %v", err)
		}
		secrets := 0
		for _, p := range data.Projects {
			secrets += len(p.Secrets)
		}
		if err := r.ok("Vault decrypts and validates (%d projects, %d secrets)", len(data.Projects), secrets); err != nil {
			return err
		}

		if err := r.section("Backups"); err != nil {
			return err
		}
		backups, err := s.Backups()
		if err != nil {
			return r.fail("Cannot list backups: %v", err)
		}
		if len(backups) > a.cfg.BackupRetention {
			return r.warn("%d backups exceed retention of %d; the next save prunes them", len(backups), a.cfg.BackupRetention)
		}
		for _, b := range backups {
			if enc, err := gw.IsEncrypted(b.Path); err == nil && !enc {
				if err := r.warn("Backup %s is not encrypted", filepath.Base(b.Path)); err != nil {
					return err
				}
			}
		}
		return r.ok("%d backup(s), retention %d", len(backups), a.cfg.BackupRetention)
	})
}

// checkLeftovers looks for temporary files left behind by interrupted saves
func (a *app) checkLeftovers(r *doctorReport, fix bool) error {
	dir := filepath.Dir(a.cfg.VaultPath)
	prefix := "." + filepath.Base(a.cfg.VaultPath) + ".tmp."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return r.fail("Cannot read vault directory: %v", err)
	}

	var leftovers []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			leftovers = append(leftovers, filepath.Join(dir, e.Name()))
		}
	}
	if len(leftovers) == 0 {
		return r.ok("No leftover temporary files")
	}
	if !fix {
		return r.warn("%d leftover temporary file(s); run with --fix to remove", len(leftovers))
	}
	for _, path := range leftovers {
		if err := os.Remove(path); err != nil {
			return r.fail("Failed to remove %s: %v", path, err)
		}
	}
	return r.ok("Removed %d leftover temporary file(s)", len(leftovers))
}

func (a *app) checkAudit(r *doctorReport) error {
	if err := r.section("Audit journal"); err != nil {
		return err
	}

	path := a.cfg.ResolvedAuditPath()
	if _, err := os.Stat(path); err != nil {
		return r.warn("No audit journal at %s", path)
	}

	journal, err := audit.Open(path, a.log())
	if err != nil {
		return r.fail("Cannot open audit journal: %v", err)
	}
	defer journal.Close()

	if err := journal.Verify(); err != nil {
		return r.fail("Audit journal integrity check failed: %v", err)
	}
	ops, err := journal.List(0)
	if err != nil {
		return r.fail("Cannot read audit journal: %v", err)
	}
	return r.ok("Audit journal intact (%d entries)", len(ops))
}
