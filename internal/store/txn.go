package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AtomicWriter handles atomic file operations using temp file + rename
type AtomicWriter struct {
	targetPath string
	tempPath   string
	tempFile   *os.File
	log        *zap.Logger
}

// NewAtomicWriter creates a new atomic writer for the target path. The
// temporary file is hidden and lives in the target's directory so the final
// rename never crosses filesystems.
func NewAtomicWriter(targetPath string, log *zap.Logger) (*AtomicWriter, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dir := filepath.Dir(targetPath)
	base := filepath.Base(targetPath)

	cleanDir := filepath.Clean(dir)
	if cleanDir != dir {
		return nil, fmt.Errorf("invalid directory path: potential directory traversal detected")
	}

	if base == "." || base == ".." || strings.ContainsRune(base, filepath.Separator) {
		return nil, fmt.Errorf("invalid filename: %s", base)
	}

	tempPath := filepath.Join(cleanDir, fmt.Sprintf(".%s.tmp.%d.%d", base, os.Getpid(), time.Now().UnixNano()))

	if err := os.MkdirAll(cleanDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile, err := os.OpenFile(filepath.Clean(tempPath), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	return &AtomicWriter{
		targetPath: targetPath,
		tempPath:   tempPath,
		tempFile:   tempFile,
		log:        log,
	}, nil
}

// TempPath returns the path of the temporary file
func (aw *AtomicWriter) TempPath() string {
	return aw.tempPath
}

// Write writes data to the temporary file. On failure the writer is aborted.
func (aw *AtomicWriter) Write(data []byte) (int, error) {
	if aw.tempFile == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	n, err := aw.tempFile.Write(data)
	if err != nil {
		aw.abortQuietly("write")
	}
	return n, err
}

// Commit finalizes the write by syncing and atomically renaming
func (aw *AtomicWriter) Commit() error {
	return aw.CommitWith(nil)
}

// CommitWith syncs and closes the temporary file, runs prepare on it, and
// renames it over the target. An error from prepare is returned unchanged
// after the temporary file is removed; the target is untouched.
func (aw *AtomicWriter) CommitWith(prepare func(tempPath string) error) error {
	if aw.tempFile == nil {
		return fmt.Errorf("writer is closed")
	}

	if err := aw.tempFile.Sync(); err != nil {
		aw.abortQuietly("sync")
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := aw.tempFile.Close(); err != nil {
		aw.tempFile = nil
		aw.abortQuietly("close")
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	aw.tempFile = nil

	if prepare != nil {
		if err := prepare(aw.tempPath); err != nil {
			aw.abortQuietly("prepare")
			return err
		}
	}

	if err := os.Rename(aw.tempPath, aw.targetPath); err != nil {
		_ = os.Remove(aw.tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	syncDir(filepath.Dir(aw.targetPath))
	return nil
}

// Abort cancels the write and cleans up the temporary file
func (aw *AtomicWriter) Abort() error {
	var err error

	if aw.tempFile != nil {
		if closeErr := aw.tempFile.Close(); closeErr != nil {
			err = closeErr
		}
		aw.tempFile = nil
	}

	if removeErr := os.Remove(aw.tempPath); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = removeErr
	}

	return err
}

func (aw *AtomicWriter) abortQuietly(stage string) {
	if err := aw.Abort(); err != nil {
		aw.log.Warn("failed to abort atomic write",
			zap.String("stage", stage),
			zap.String("temp_path", aw.tempPath),
			zap.Error(err))
	}
}

// AtomicWriteFile writes data to a file atomically
func AtomicWriteFile(path string, data []byte, log *zap.Logger) error {
	writer, err := NewAtomicWriter(path, log)
	if err != nil {
		return err
	}

	if _, err := writer.Write(data); err != nil {
		return err
	}

	return writer.Commit()
}

// EnsureFilePermissions ensures the file has secure permissions (0600)
func EnsureFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		return os.Chmod(path, 0o600)
	}

	return nil
}

// syncDir flushes directory metadata so a completed rename survives a crash.
// Not every platform supports fsync on directories; failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
