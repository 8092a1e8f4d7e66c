// Package store owns the in-memory vault document and persists it as a
// single encrypted file.
//
// Every persist runs the same pipeline: snapshot the existing file, write the
// new document to a hidden temporary file in the same directory, encrypt the
// temporary file, rename it over the vault, then prune old snapshots. The
// rename is the only step a reader of the vault path can observe.
//
// FileStore is not safe for concurrent use. Callers serialize access to one
// instance and must not point two writers at the same vault path.
package store

import (
	"errors"

	"github.com/vault-cli/envvault/internal/domain"
	"github.com/vault-cli/envvault/internal/encryption"
)

// Error variables for vault store operations
var (
	// ErrVaultNotFound is returned when the vault file does not exist
	ErrVaultNotFound = errors.New("vault not found")
	// ErrProjectNotFound is returned when the named project does not exist
	ErrProjectNotFound = errors.New("project not found")
	// ErrSecretNotFound is returned when the key does not exist in the project
	ErrSecretNotFound = errors.New("secret not found")
	// ErrProjectExists is returned when creating a project whose name is taken
	ErrProjectExists = errors.New("project already exists")
	// ErrSecretExists is returned when adding a key the project already holds
	ErrSecretExists = errors.New("secret already exists")
	// ErrVaultCorrupted is returned when vault content is malformed or violates the schema
	ErrVaultCorrupted = errors.New("vault data is corrupted")
	// ErrIO is returned for filesystem failures while reading or writing the vault
	ErrIO = errors.New("vault i/o error")
	// ErrInvalidName is returned for empty or malformed project names and secret keys
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidValue is returned for secret values the env format cannot represent
	ErrInvalidValue = errors.New("invalid secret value")
	// ErrNotBackup is returned when restoring from a file that is not a backup of this vault
	ErrNotBackup = errors.New("not a backup of this vault")
	// ErrLocked is returned when the vault lock is held by another process
	ErrLocked = errors.New("vault is locked by another process")

	// ErrEncryption is returned when the encryption gateway fails
	ErrEncryption = encryption.ErrEncryption
)

// Status describes how far the in-memory state is ahead of the file
type Status struct {
	Revision          uint64
	PersistedRevision uint64
	Loaded            bool
}

// Pending reports whether there are mutations that have not reached disk
func (s Status) Pending() bool {
	return s.Revision != s.PersistedRevision
}

// Auditor receives a record of every persisted vault operation
type Auditor interface {
	Record(op *domain.Operation) error
}

// VaultStore defines the vault operations exposed to the command layer
type VaultStore interface {
	// Lifecycle
	Initialize() error
	Load() error
	Open() error
	Save() error
	Replace(data *domain.VaultData) error
	Snapshot() (*domain.VaultData, error)
	Status() Status
	Path() string

	// Project operations
	CreateProject(name, description string) error
	GetProject(name string) (*domain.VaultProject, error)
	ListProjects() ([]*domain.VaultProject, error)
	DeleteProject(name string) error

	// Secret operations
	AddSecret(project string, entry *domain.SecretEntry) error
	GetSecret(project, key string) (*domain.SecretEntry, error)
	ListSecrets(project string, filter *domain.Filter) ([]*domain.SecretEntry, error)
	UpdateSecret(project, key string, patch domain.SecretPatch) error
	DeleteSecret(project, key string) error

	// Env interchange
	ImportEnv(text string, opts domain.ImportOptions) (*domain.ImportResult, error)
	ExportEnv(opts domain.ExportOptions) (string, error)

	// Global tags
	AddGlobalTags(tags ...string) error
	RemoveGlobalTag(tag string) (bool, error)
	GlobalTags() ([]string, error)

	// Backups
	Backups() ([]Backup, error)
	RestoreBackup(backupPath string) error
}
