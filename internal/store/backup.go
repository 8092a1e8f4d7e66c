package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBackupRetention is the number of snapshots kept when none is configured
const DefaultBackupRetention = 5

const backupInfix = ".backup."

// Backup describes one snapshot of the vault file
type Backup struct {
	Path      string
	Millis    int64
	Timestamp time.Time
	Size      int64
}

// BackupManager snapshots the vault file before it is overwritten and keeps
// only the newest snapshots. Snapshot files sit next to the vault and are
// named <vault>.backup.<epoch-millis>.
type BackupManager struct {
	retain int
	log    *zap.Logger
	now    func() time.Time
	remove func(string) error
}

// NewBackupManager creates a backup manager keeping retain snapshots.
// Values below one fall back to DefaultBackupRetention.
func NewBackupManager(retain int, log *zap.Logger) *BackupManager {
	if retain < 1 {
		retain = DefaultBackupRetention
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BackupManager{
		retain: retain,
		log:    log,
		now:    time.Now,
		remove: os.Remove,
	}
}

// Retention returns the number of snapshots kept by Prune
func (bm *BackupManager) Retention() int {
	return bm.retain
}

// Snapshot copies the file at path to a new backup and returns the backup path.
// The snapshot is stamped with the current time in milliseconds, bumped past
// the newest existing snapshot so ordering by name always matches creation order.
func (bm *BackupManager) Snapshot(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to read %s for backup: %w", path, err)
	}

	millis := bm.now().UnixMilli()
	existing, err := bm.List(path)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 && existing[0].Millis >= millis {
		millis = existing[0].Millis + 1
	}

	backupPath := backupName(path, millis)
	if err := AtomicWriteFile(backupPath, data, bm.log); err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", backupPath, err)
	}

	bm.log.Debug("vault snapshot created", zap.String("backup", backupPath))
	return backupPath, nil
}

// List returns the snapshots of path, newest first
func (bm *BackupManager) List(path string) ([]Backup, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + backupInfix

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups in %s: %w", dir, err)
	}

	var backups []Backup
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		millis, err := strconv.ParseInt(strings.TrimPrefix(name, prefix), 10, 64)
		if err != nil {
			continue
		}

		b := Backup{
			Path:      filepath.Join(dir, name),
			Millis:    millis,
			Timestamp: time.UnixMilli(millis).UTC(),
		}
		if info, err := entry.Info(); err == nil {
			b.Size = info.Size()
		}
		backups = append(backups, b)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Millis > backups[j].Millis
	})
	return backups, nil
}

// Prune deletes all but the newest Retention snapshots of path and returns
// the removed paths. Failures are logged and skipped.
func (bm *BackupManager) Prune(path string) []string {
	backups, err := bm.List(path)
	if err != nil {
		bm.log.Warn("failed to list backups for pruning", zap.String("path", path), zap.Error(err))
		return nil
	}
	if len(backups) <= bm.retain {
		return nil
	}

	var removed []string
	for _, b := range backups[bm.retain:] {
		if err := bm.remove(b.Path); err != nil {
			bm.log.Warn("failed to remove old backup", zap.String("backup", b.Path), zap.Error(err))
			continue
		}
		removed = append(removed, b.Path)
	}

	if len(removed) > 0 {
		bm.log.Debug("pruned old backups", zap.Int("removed", len(removed)), zap.Int("retained", bm.retain))
	}
	return removed
}

// IsBackupOf reports whether backupPath names a snapshot of path
func IsBackupOf(path, backupPath string) bool {
	if filepath.Clean(filepath.Dir(backupPath)) != filepath.Clean(filepath.Dir(path)) {
		return false
	}
	prefix := filepath.Base(path) + backupInfix
	name := filepath.Base(backupPath)
	if !strings.HasPrefix(name, prefix) {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimPrefix(name, prefix), 10, 64)
	return err == nil
}

func backupName(path string, millis int64) string {
	return path + backupInfix + strconv.FormatInt(millis, 10)
}
