// Package domain defines the core data structures of the secret vault.
// It contains the vault document persisted to disk and the option types
// exchanged with the store.
package domain

import (
	"time"
)

// CurrentVersion is the vault document schema version written by this build
const CurrentVersion = 1

// DefaultProject is the project used when a caller does not name one
const DefaultProject = "default"

// Provenance and classification values used by env import
const (
	SourceEnv    = "env"
	SourceManual = "manual"

	CategoryEnvironment = "environment"
)

// VaultData is the root of the vault document
type VaultData struct {
	Version    int             `json:"version"`
	Metadata   *VaultMetadata  `json:"metadata"`
	Projects   []*VaultProject `json:"projects"`
	GlobalTags []string        `json:"globalTags"`
}

// VaultMetadata records document level timestamps
type VaultMetadata struct {
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// VaultProject groups secrets under a unique name
type VaultProject struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Secrets     []*SecretEntry `json:"secrets"`
	Created     time.Time      `json:"created"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// SecretEntry is a single key/value secret with its metadata
type SecretEntry struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Source      string    `json:"source,omitempty"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SecretPatch describes a partial update. Nil fields are left untouched.
type SecretPatch struct {
	Value    *string
	Source   *string
	Category *string
	Tags     *[]string
}

// IsEmpty reports whether the patch changes nothing
func (p SecretPatch) IsEmpty() bool {
	return p.Value == nil && p.Source == nil && p.Category == nil && p.Tags == nil
}

// ImportOptions controls env import
type ImportOptions struct {
	Project   string
	Category  string
	Overwrite bool
}

// ImportResult reports what an env import did, key by key
type ImportResult struct {
	Project        string
	ProjectCreated bool
	Added          []string
	Updated        []string
	Skipped        []string
}

// Changed reports whether the import modified the vault
func (r *ImportResult) Changed() bool {
	return r.ProjectCreated || len(r.Added) > 0 || len(r.Updated) > 0
}

// ExportOptions controls env export
type ExportOptions struct {
	Project  string
	Category string
}

// Filter represents secret filtering options
type Filter struct {
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	SearchTokens []string `json:"search_tokens"`
}

// Operation represents an audit journal record. It never carries secret values.
type Operation struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Project   string    `json:"project,omitempty"`
	Key       string    `json:"key,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}

// Audit operation types
const (
	OpInitialize    = "initialize"
	OpCreateProject = "create_project"
	OpDeleteProject = "delete_project"
	OpAddSecret     = "add_secret"
	OpUpdateSecret  = "update_secret"
	OpDeleteSecret  = "delete_secret"
	OpImportEnv     = "import_env"
	OpSave          = "save"
)

// NewVaultData returns an empty vault document stamped with now
func NewVaultData(now time.Time) *VaultData {
	return &VaultData{
		Version: CurrentVersion,
		Metadata: &VaultMetadata{
			Created:     now,
			LastUpdated: now,
		},
		Projects:   []*VaultProject{},
		GlobalTags: []string{},
	}
}

// Project returns the named project or nil
func (d *VaultData) Project(name string) *VaultProject {
	for _, p := range d.Projects {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Secret returns the secret with the given key or nil
func (p *VaultProject) Secret(key string) *SecretEntry {
	for _, s := range p.Secrets {
		if s.Key == key {
			return s
		}
	}
	return nil
}

// Clone returns a deep copy of the vault document
func (d *VaultData) Clone() *VaultData {
	if d == nil {
		return nil
	}
	out := &VaultData{
		Version:    d.Version,
		GlobalTags: cloneStrings(d.GlobalTags),
	}
	if d.Metadata != nil {
		meta := *d.Metadata
		out.Metadata = &meta
	}
	if d.Projects != nil {
		out.Projects = make([]*VaultProject, 0, len(d.Projects))
		for _, p := range d.Projects {
			out.Projects = append(out.Projects, p.Clone())
		}
	}
	return out
}

// Clone returns a deep copy of the project
func (p *VaultProject) Clone() *VaultProject {
	if p == nil {
		return nil
	}
	out := *p
	if p.Secrets != nil {
		out.Secrets = make([]*SecretEntry, 0, len(p.Secrets))
		for _, s := range p.Secrets {
			out.Secrets = append(out.Secrets, s.Clone())
		}
	}
	return &out
}

// Clone returns a deep copy of the secret
func (s *SecretEntry) Clone() *SecretEntry {
	if s == nil {
		return nil
	}
	out := *s
	out.Tags = cloneStrings(s.Tags)
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}
