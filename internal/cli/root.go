// Package cli implements the envvault command tree on top of the vault store.
package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vault-cli/envvault/internal/audit"
	"github.com/vault-cli/envvault/internal/clipboard"
	"github.com/vault-cli/envvault/internal/config"
	"github.com/vault-cli/envvault/internal/encryption"
	"github.com/vault-cli/envvault/internal/keyring"
	"github.com/vault-cli/envvault/internal/logger"
	"github.com/vault-cli/envvault/internal/store"
)

// Version is the CLI version reported by --version
var Version = "0.4.0"

// gatewayFactory builds the encryption gateway for a command
type gatewayFactory func(cfg config.EncryptionConfig, source encryption.PassphraseSource) (encryption.Gateway, error)

// app holds the state shared by every command of one invocation
type app struct {
	cfgFile   string
	vaultPath string
	project   string
	verbose   bool

	cfg    *config.Config
	logger *logger.Logger

	newGateway gatewayFactory
	clipboard  *clipboard.Clipboard
	in         io.Reader
	stdinTTY   func() bool

	// newPassphrase makes the passphrase prompt ask for confirmation
	newPassphrase bool
	passOnce      sync.Once
	passphrase    string
	passErr       error
}

func newApp() *app {
	return &app{
		newGateway: encryption.New,
		in:         os.Stdin,
		stdinTTY:   stdinIsTerminal,
	}
}

// NewRootCommand builds the envvault command tree
func NewRootCommand() *cobra.Command {
	return newApp().rootCommand()
}

// Execute runs the envvault command tree
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "envvault",
		Short: "Project-scoped encrypted secret store",
		Long: `envvault keeps environment secrets grouped by project in a single
encrypted file. Every write snapshots the previous file, encrypts the new
content and atomically replaces the vault, keeping a rolling set of backups.

Encryption is delegated to age, sops, or the built-in passphrase backend.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/envvault/config.yaml)")
	root.PersistentFlags().StringVar(&a.vaultPath, "vault", "", "vault file path")
	root.PersistentFlags().StringVarP(&a.project, "project", "p", "", "project to operate on")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		a.initCommand(),
		a.statusCommand(),
		a.doctorCommand(),
		a.projectCommand(),
		a.addCommand(),
		a.getCommand(),
		a.updateCommand(),
		a.deleteCommand(),
		a.listCommand(),
		a.importCommand(),
		a.exportCommand(),
		a.diffCommand(),
		a.tagsCommand(),
		a.backupsCommand(),
		a.auditCommand(),
		a.generateCommand(),
		a.unlockCommand(),
		a.lockCommand(),
		a.configCommand(),
	)

	return root
}

// setup loads configuration and the logger before any command runs
func (a *app) setup() error {
	if a.cfgFile == "" {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		a.cfgFile = path
	}

	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.vaultPath != "" {
		cfg.VaultPath = a.vaultPath
	}
	if a.project == "" {
		a.project = cfg.DefaultProject
	}
	a.cfg = cfg

	if a.logger == nil {
		level := cfg.LogLevel
		if a.verbose || debugEnabled() {
			level = "debug"
		}
		l := logger.New()
		if err := l.Init(level); err != nil {
			return err
		}
		a.logger = l
	}

	if a.clipboard == nil {
		a.clipboard = clipboard.New(a.log())
	}
	return nil
}

func (a *app) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger.Log
}

// withStore runs fn with a store for the configured vault while holding the
// vault lock. The audit journal is attached when the vault exists or create is set.
func (a *app) withStore(create bool, fn func(s *store.FileStore) error) error {
	log := a.log()

	lock := store.NewFileLock(a.cfg.VaultPath, log)
	if err := lock.Lock(store.DefaultLockTimeout); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("failed to release vault lock", zap.String("path", lock.Path()), zap.Error(err))
		}
	}()

	gw, err := a.newGateway(a.cfg.Encryption, a.passphraseSource())
	if err != nil {
		return err
	}

	opts := []store.Option{
		store.WithLogger(log),
		store.WithBackupRetention(a.cfg.BackupRetention),
	}
	if journal := a.openJournal(create); journal != nil {
		defer func() {
			if err := journal.Close(); err != nil {
				log.Warn("failed to close audit journal", zap.Error(err))
			}
		}()
		opts = append(opts, store.WithAuditor(journal))
	}

	return fn(store.NewFileStore(a.cfg.VaultPath, gw, opts...))
}

func (a *app) openJournal(create bool) *audit.Journal {
	if !create {
		if _, err := os.Stat(a.cfg.VaultPath); err != nil {
			return nil
		}
	}
	journal, err := audit.Open(a.cfg.ResolvedAuditPath(), a.log())
	if err != nil {
		a.log().Warn("audit journal unavailable", zap.String("path", a.cfg.ResolvedAuditPath()), zap.Error(err))
		return nil
	}
	return journal
}

// passphraseSource resolves the vault passphrase once per invocation from the
// environment, then the OS keyring, then an interactive prompt
func (a *app) passphraseSource() encryption.PassphraseSource {
	return func() (string, error) {
		a.passOnce.Do(func() {
			a.passphrase, a.passErr = a.resolvePassphrase()
		})
		return a.passphrase, a.passErr
	}
}

func (a *app) resolvePassphrase() (string, error) {
	if p := os.Getenv(config.EnvPassphrase); p != "" {
		return p, nil
	}
	if p, err := keyring.GetPassphrase(a.cfg.VaultPath); err == nil && p != "" {
		a.log().Debug("using passphrase from keyring")
		return p, nil
	}
	if a.newPassphrase {
		return a.promptPasswordConfirm("New vault passphrase: ")
	}
	return a.promptPassword("Vault passphrase: ")
}

func debugEnabled() bool {
	dbg, _ := strconv.ParseBool(os.Getenv(config.EnvDebug))
	return dbg
}
