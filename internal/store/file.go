package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/vault-cli/envvault/internal/domain"
	"github.com/vault-cli/envvault/internal/encryption"
	"github.com/vault-cli/envvault/internal/envfile"
)

// errNoChange aborts a mutation that turned out to change nothing
var errNoChange = errors.New("no change")

// FileStore implements VaultStore on top of one encrypted JSON file
type FileStore struct {
	path    string
	gateway encryption.Gateway
	backups *BackupManager
	log     *zap.Logger
	auditor Auditor
	now     func() time.Time

	data      *domain.VaultData
	revision  uint64
	persisted uint64
}

// Option configures a FileStore
type Option func(*FileStore)

// WithLogger sets the structured logger
func WithLogger(log *zap.Logger) Option {
	return func(fs *FileStore) {
		if log != nil {
			fs.log = log
		}
	}
}

// WithBackupRetention sets how many snapshots survive each save
func WithBackupRetention(retain int) Option {
	return func(fs *FileStore) {
		fs.backups.retain = NewBackupManager(retain, nil).retain
	}
}

// WithAuditor records every attempted persist, successful or not.
// Recording failures are logged and never fail the persist.
func WithAuditor(a Auditor) Option {
	return func(fs *FileStore) {
		fs.auditor = a
	}
}

// WithClock overrides the time source used for timestamps and backup names
func WithClock(now func() time.Time) Option {
	return func(fs *FileStore) {
		if now != nil {
			fs.now = now
		}
	}
}

// NewFileStore creates a store for the vault at path. Nothing is read until
// Load, Open or the first operation.
func NewFileStore(path string, gateway encryption.Gateway, opts ...Option) *FileStore {
	fs := &FileStore{
		path:    filepath.Clean(path),
		gateway: gateway,
		backups: NewBackupManager(DefaultBackupRetention, nil),
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(fs)
	}
	fs.backups.log = fs.log
	fs.backups.now = fs.now
	return fs
}

// Path returns the vault file path
func (fs *FileStore) Path() string {
	return fs.path
}

// BackupManager returns the manager handling this vault's snapshots
func (fs *FileStore) BackupManager() *BackupManager {
	return fs.backups
}

// Status reports the in-memory revision against the last persisted one
func (fs *FileStore) Status() Status {
	return Status{
		Revision:          fs.revision,
		PersistedRevision: fs.persisted,
		Loaded:            fs.data != nil,
	}
}

// Initialize writes an empty encrypted vault if none exists yet
func (fs *FileStore) Initialize() error {
	if _, err := os.Stat(fs.path); err == nil {
		fs.log.Info("vault already exists, skipping initialization", zap.String("path", fs.path))
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: stat %s: %w", ErrIO, fs.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("%w: create vault directory: %w", ErrIO, err)
	}

	now := fs.clock()
	data := domain.NewVaultData(now)
	if err := fs.persist(data, now); err != nil {
		return err
	}

	fs.data = data
	fs.revision++
	fs.persisted = fs.revision
	fs.record(domain.Operation{Type: domain.OpInitialize, Timestamp: now}, true)
	fs.log.Info("vault initialized", zap.String("path", fs.path))
	return nil
}

// Load reads, decrypts and validates the vault file, replacing the in-memory state
func (fs *FileStore) Load() error {
	data, err := fs.readVault(fs.path)
	if err != nil {
		return err
	}

	fs.data = data
	fs.persisted = fs.revision
	fs.log.Info("vault loaded",
		zap.String("path", fs.path),
		zap.Int("projects", len(data.Projects)))
	return nil
}

// Open initializes the vault if needed and loads it
func (fs *FileStore) Open() error {
	if err := fs.Initialize(); err != nil {
		return err
	}
	return fs.Load()
}

// Save persists the in-memory vault
func (fs *FileStore) Save() error {
	if err := fs.ensureLoaded(); err != nil {
		return err
	}

	now := fs.clock()
	next := fs.data.Clone()
	if err := fs.persist(next, now); err != nil {
		fs.record(domain.Operation{Type: domain.OpSave, Timestamp: now}, false)
		return err
	}

	fs.data = next
	fs.persisted = fs.revision
	fs.record(domain.Operation{Type: domain.OpSave, Timestamp: now}, true)
	return nil
}

// Replace validates data and persists it in place of the current vault
func (fs *FileStore) Replace(data *domain.VaultData) error {
	if err := validateVault(data); err != nil {
		return err
	}

	now := fs.clock()
	next := data.Clone()
	next.GlobalTags = normalizeTags(next.GlobalTags)
	if err := fs.persist(next, now); err != nil {
		fs.record(domain.Operation{Type: domain.OpSave, Timestamp: now}, false)
		return err
	}

	fs.data = next
	fs.revision++
	fs.persisted = fs.revision
	fs.record(domain.Operation{Type: domain.OpSave, Timestamp: now}, true)
	return nil
}

// Snapshot returns a deep copy of the in-memory vault
func (fs *FileStore) Snapshot() (*domain.VaultData, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}
	return fs.data.Clone(), nil
}

// CreateProject appends an empty project and persists
func (fs *FileStore) CreateProject(name, description string) error {
	if err := validateProjectName(name); err != nil {
		return err
	}

	op := domain.Operation{Type: domain.OpCreateProject, Project: name}
	return fs.commit(op, func(d *domain.VaultData, now time.Time) error {
		if d.Project(name) != nil {
			return fmt.Errorf("%w: %s", ErrProjectExists, name)
		}
		d.Projects = append(d.Projects, newProject(name, description, now))
		return nil
	})
}

// GetProject returns a copy of the named project
func (fs *FileStore) GetProject(name string) (*domain.VaultProject, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}
	p := fs.data.Project(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return p.Clone(), nil
}

// ListProjects returns copies of all projects in vault order
func (fs *FileStore) ListProjects() ([]*domain.VaultProject, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}
	projects := make([]*domain.VaultProject, 0, len(fs.data.Projects))
	for _, p := range fs.data.Projects {
		projects = append(projects, p.Clone())
	}
	return projects, nil
}

// DeleteProject removes a project and all of its secrets, then persists
func (fs *FileStore) DeleteProject(name string) error {
	op := domain.Operation{Type: domain.OpDeleteProject, Project: name}
	return fs.commit(op, func(d *domain.VaultData, now time.Time) error {
		for i, p := range d.Projects {
			if p.Name == name {
				d.Projects = append(d.Projects[:i], d.Projects[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	})
}

// AddSecret appends entry to project with fresh timestamps and persists
func (fs *FileStore) AddSecret(project string, entry *domain.SecretEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: secret entry is nil", ErrInvalidName)
	}
	if err := validateSecretKey(entry.Key); err != nil {
		return err
	}
	if err := validateSecretValue(entry.Key, entry.Value); err != nil {
		return err
	}

	op := domain.Operation{Type: domain.OpAddSecret, Project: project, Key: entry.Key}
	return fs.commit(op, func(d *domain.VaultData, now time.Time) error {
		p := d.Project(project)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, project)
		}
		if p.Secret(entry.Key) != nil {
			return fmt.Errorf("%w: %s/%s", ErrSecretExists, project, entry.Key)
		}

		secret := entry.Clone()
		secret.Tags = normalizeTags(secret.Tags)
		if len(secret.Tags) == 0 {
			secret.Tags = nil
		}
		secret.Created = now
		secret.LastUpdated = now

		p.Secrets = append(p.Secrets, secret)
		p.LastUpdated = now
		return nil
	})
}

// GetSecret returns a copy of one secret
func (fs *FileStore) GetSecret(project, key string) (*domain.SecretEntry, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}
	p := fs.data.Project(project)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, project)
	}
	s := p.Secret(key)
	if s == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrSecretNotFound, project, key)
	}
	return s.Clone(), nil
}

// ListSecrets returns copies of the project's secrets matching filter, in vault order
func (fs *FileStore) ListSecrets(project string, filter *domain.Filter) ([]*domain.SecretEntry, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}
	p := fs.data.Project(project)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, project)
	}

	secrets := make([]*domain.SecretEntry, 0, len(p.Secrets))
	for _, s := range p.Secrets {
		if MatchesFilter(s, filter) {
			secrets = append(secrets, s.Clone())
		}
	}
	return secrets, nil
}

// UpdateSecret applies patch to an existing secret and persists
func (fs *FileStore) UpdateSecret(project, key string, patch domain.SecretPatch) error {
	if patch.Value != nil {
		if err := validateSecretValue(key, *patch.Value); err != nil {
			return err
		}
	}

	op := domain.Operation{Type: domain.OpUpdateSecret, Project: project, Key: key}
	return fs.commit(op, func(d *domain.VaultData, now time.Time) error {
		p := d.Project(project)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, project)
		}
		s := p.Secret(key)
		if s == nil {
			return fmt.Errorf("%w: %s/%s", ErrSecretNotFound, project, key)
		}

		if patch.Value != nil {
			s.Value = *patch.Value
		}
		if patch.Source != nil {
			s.Source = *patch.Source
		}
		if patch.Category != nil {
			s.Category = *patch.Category
		}
		if patch.Tags != nil {
			s.Tags = normalizeTags(*patch.Tags)
			if len(s.Tags) == 0 {
				s.Tags = nil
			}
		}

		touch(&s.LastUpdated, s.Created, now)
		touch(&p.LastUpdated, p.Created, now)
		return nil
	})
}

// DeleteSecret removes a secret and persists
func (fs *FileStore) DeleteSecret(project, key string) error {
	op := domain.Operation{Type: domain.OpDeleteSecret, Project: project, Key: key}
	return fs.commit(op, func(d *domain.VaultData, now time.Time) error {
		p := d.Project(project)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, project)
		}
		for i, s := range p.Secrets {
			if s.Key == key {
				p.Secrets = append(p.Secrets[:i], p.Secrets[i+1:]...)
				touch(&p.LastUpdated, p.Created, now)
				return nil
			}
		}
		return fmt.Errorf("%w: %s/%s", ErrSecretNotFound, project, key)
	})
}

// ImportEnv parses dotenv text and merges it into a project, creating the
// project if needed. Existing keys are overwritten only when opts.Overwrite
// is set; otherwise they are skipped with a warning. The vault is persisted
// once, and only if something changed.
func (fs *FileStore) ImportEnv(text string, opts domain.ImportOptions) (*domain.ImportResult, error) {
	projectName := opts.Project
	if projectName == "" {
		projectName = domain.DefaultProject
	}
	if err := validateProjectName(projectName); err != nil {
		return nil, err
	}
	category := opts.Category
	if category == "" {
		category = domain.CategoryEnvironment
	}

	pairs := envfile.Parse(text)
	result := &domain.ImportResult{Project: projectName}

	op := domain.Operation{Type: domain.OpImportEnv, Project: projectName}
	err := fs.commit(op, func(d *domain.VaultData, now time.Time) error {
		p := d.Project(projectName)
		if p == nil {
			p = newProject(projectName, "", now)
			d.Projects = append(d.Projects, p)
			result.ProjectCreated = true
		}

		for _, pair := range pairs.Pairs() {
			if err := validateSecretKey(pair.Key); err != nil {
				fs.log.Warn("skipping invalid key during env import",
					zap.String("project", projectName), zap.String("key", pair.Key), zap.Error(err))
				result.Skipped = append(result.Skipped, pair.Key)
				continue
			}

			existing := p.Secret(pair.Key)
			switch {
			case existing == nil:
				p.Secrets = append(p.Secrets, &domain.SecretEntry{
					Key:         pair.Key,
					Value:       pair.Value,
					Source:      domain.SourceEnv,
					Category:    category,
					Created:     now,
					LastUpdated: now,
				})
				result.Added = append(result.Added, pair.Key)
			case opts.Overwrite:
				existing.Value = pair.Value
				existing.Source = domain.SourceEnv
				existing.Category = category
				touch(&existing.LastUpdated, existing.Created, now)
				result.Updated = append(result.Updated, pair.Key)
			default:
				fs.log.Warn("secret already exists, skipping",
					zap.String("project", projectName), zap.String("key", pair.Key))
				result.Skipped = append(result.Skipped, pair.Key)
			}
		}

		if !result.Changed() {
			return errNoChange
		}
		touch(&p.LastUpdated, p.Created, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.log.Info("env import finished",
		zap.String("project", projectName),
		zap.Int("added", len(result.Added)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// ExportEnv renders a project's secrets, optionally filtered by category, as
// dotenv text. A missing project yields empty text.
func (fs *FileStore) ExportEnv(opts domain.ExportOptions) (string, error) {
	if err := fs.ensureLoaded(); err != nil {
		return "", err
	}

	projectName := opts.Project
	if projectName == "" {
		projectName = domain.DefaultProject
	}
	p := fs.data.Project(projectName)
	if p == nil {
		return "", nil
	}

	m := &envfile.Map{}
	for _, s := range p.Secrets {
		if opts.Category != "" && s.Category != opts.Category {
			continue
		}
		if err := validateSecretValue(s.Key, s.Value); err != nil {
			fs.log.Warn("skipping multi-line value during env export",
				zap.String("project", projectName), zap.String("key", s.Key))
			continue
		}
		m.Set(s.Key, s.Value)
	}
	return envfile.Serialize(m), nil
}

// AddGlobalTags adds tags to the vault taxonomy. The change is pending until Save.
func (fs *FileStore) AddGlobalTags(tags ...string) error {
	if err := fs.ensureLoaded(); err != nil {
		return err
	}

	var added []string
	for _, tag := range normalizeTags(tags) {
		if !hasTag(fs.data.GlobalTags, tag) {
			added = append(added, tag)
		}
	}
	if len(added) == 0 {
		return nil
	}

	next := fs.data.Clone()
	next.GlobalTags = append(next.GlobalTags, added...)
	fs.data = next
	fs.revision++
	return nil
}

// RemoveGlobalTag removes tag from the vault taxonomy and reports whether it was
// present. The change is pending until Save.
func (fs *FileStore) RemoveGlobalTag(tag string) (bool, error) {
	if err := fs.ensureLoaded(); err != nil {
		return false, err
	}
	if !hasTag(fs.data.GlobalTags, tag) {
		return false, nil
	}

	next := fs.data.Clone()
	kept := make([]string, 0, len(next.GlobalTags))
	for _, t := range next.GlobalTags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	next.GlobalTags = kept
	fs.data = next
	fs.revision++
	return true, nil
}

// GlobalTags returns the vault taxonomy
func (fs *FileStore) GlobalTags() ([]string, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}
	return append([]string{}, fs.data.GlobalTags...), nil
}

// Backups lists the snapshots of this vault, newest first
func (fs *FileStore) Backups() ([]Backup, error) {
	backups, err := fs.backups.List(fs.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return backups, nil
}

// RestoreBackup loads a snapshot of this vault and persists it as the current
// vault. The file being replaced is itself snapshotted first.
func (fs *FileStore) RestoreBackup(backupPath string) error {
	if !IsBackupOf(fs.path, backupPath) {
		return fmt.Errorf("%w: %s", ErrNotBackup, backupPath)
	}

	data, err := fs.readVault(backupPath)
	if err != nil {
		return err
	}
	if err := fs.Replace(data); err != nil {
		return err
	}

	fs.log.Info("vault restored from backup", zap.String("backup", backupPath))
	return nil
}

// commit applies fn to a copy of the vault, persists the copy and only then
// swaps it in. A failing fn or persist leaves memory and disk unchanged.
func (fs *FileStore) commit(op domain.Operation, fn func(d *domain.VaultData, now time.Time) error) error {
	if err := fs.ensureLoaded(); err != nil {
		return err
	}

	now := fs.clock()
	op.Timestamp = now

	next := fs.data.Clone()
	if err := fn(next, now); err != nil {
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}

	if err := fs.persist(next, now); err != nil {
		fs.record(op, false)
		return err
	}

	fs.data = next
	fs.revision++
	fs.persisted = fs.revision
	fs.record(op, true)
	return nil
}

// persist runs snapshot, temp write, encrypt, rename and prune, in that order
func (fs *FileStore) persist(d *domain.VaultData, now time.Time) error {
	if d.Metadata == nil {
		d.Metadata = &domain.VaultMetadata{Created: now}
	}
	touch(&d.Metadata.LastUpdated, d.Metadata.Created, now)

	if err := validateVault(d); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode vault: %w", ErrVaultCorrupted, err)
	}
	defer encryption.Zeroize(payload)

	var snapshot string
	if _, err := os.Stat(fs.path); err == nil {
		snapshot, err = fs.backups.Snapshot(fs.path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: stat %s: %w", ErrIO, fs.path, err)
	}

	if err := fs.writeEncrypted(payload); err != nil {
		fs.discardSnapshot(snapshot)
		return err
	}

	fs.backups.Prune(fs.path)
	fs.log.Debug("vault saved", zap.String("path", fs.path), zap.Int("projects", len(d.Projects)))
	return nil
}

func (fs *FileStore) writeEncrypted(payload []byte) error {
	w, err := NewAtomicWriter(fs.path, fs.log)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("%w: write temp file: %w", ErrIO, err)
	}

	err = w.CommitWith(func(tempPath string) error {
		if err := fs.gateway.Encrypt(tempPath); err != nil {
			if errors.Is(err, ErrEncryption) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrEncryption, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEncryption) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// discardSnapshot removes a snapshot taken for a persist that did not happen,
// so failed saves never push the backup count past the retention limit
func (fs *FileStore) discardSnapshot(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fs.log.Warn("failed to remove unused backup", zap.String("backup", path), zap.Error(err))
	}
}

func (fs *FileStore) readVault(path string) (*domain.VaultData, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %w: %s", ErrIO, ErrVaultNotFound, path)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}

	encrypted, err := fs.gateway.IsEncrypted(path)
	if err != nil {
		return nil, fmt.Errorf("%w: inspect %s: %w", ErrIO, path, err)
	}

	var raw []byte
	if encrypted {
		raw, err = fs.gateway.Decrypt(path)
		if err != nil {
			if errors.Is(err, ErrEncryption) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
		}
	} else {
		fs.log.Warn("vault file is not encrypted; it will be encrypted on next save", zap.String("path", path))
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
		}
	}
	defer encryption.Zeroize(raw)

	return decodeVault(raw)
}

func (fs *FileStore) ensureLoaded() error {
	if fs.data != nil {
		return nil
	}
	return fs.Load()
}

func (fs *FileStore) clock() time.Time {
	return fs.now().UTC()
}

func (fs *FileStore) record(op domain.Operation, success bool) {
	if fs.auditor == nil {
		return
	}
	op.Success = success
	if err := fs.auditor.Record(&op); err != nil {
		fs.log.Warn("failed to record audit entry", zap.String("type", op.Type), zap.Error(err))
	}
}

func newProject(name, description string, now time.Time) *domain.VaultProject {
	return &domain.VaultProject{
		Name:        name,
		Description: description,
		Secrets:     []*domain.SecretEntry{},
		Created:     now,
		LastUpdated: now,
	}
}

// touch sets *lastUpdated to now, never earlier than created
func touch(lastUpdated *time.Time, created, now time.Time) {
	if now.Before(created) {
		now = created
	}
	*lastUpdated = now
}
