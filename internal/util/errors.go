// Package util provides helpers shared by the command layer, chiefly the
// mapping from vault errors to process exit codes.
package util

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vault-cli/envvault/internal/encryption"
	"github.com/vault-cli/envvault/internal/store"
)

// Exit codes
const (
	ExitOK           = 0
	ExitError        = 1
	ExitInvalidInput = 2
	ExitVaultLocked  = 3
	ExitIntegrityErr = 4
	ExitNotFound     = 5
	ExitConflict     = 6
	ExitEncryption   = 7
)

// ExitCode maps err to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, store.ErrLocked):
		return ExitVaultLocked
	case errors.Is(err, store.ErrVaultCorrupted):
		return ExitIntegrityErr
	case errors.Is(err, store.ErrVaultNotFound),
		errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, store.ErrSecretNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrProjectExists),
		errors.Is(err, store.ErrSecretExists):
		return ExitConflict
	case errors.Is(err, store.ErrInvalidName),
		errors.Is(err, store.ErrInvalidValue),
		errors.Is(err, store.ErrNotBackup):
		return ExitInvalidInput
	case errors.Is(err, encryption.ErrEncryption):
		return ExitEncryption
	default:
		return ExitError
	}
}

// Hint returns a follow-up suggestion for err, or ""
func Hint(err error) string {
	switch {
	case errors.Is(err, store.ErrVaultNotFound):
		return "Run 'envvault init' to create a vault."
	case errors.Is(err, store.ErrVaultCorrupted):
		return "Run 'envvault doctor' to diagnose issues, or 'envvault backups restore' to roll back."
	case errors.Is(err, encryption.ErrToolUnavailable):
		return "Install the configured encryption tool or change encryption.backend in the config."
	case errors.Is(err, store.ErrLocked):
		return "Another envvault process is using this vault; retry when it finishes."
	default:
		return ""
	}
}

// PrintError writes err and its hint to w and returns the exit code
func PrintError(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := Hint(err); hint != "" {
		fmt.Fprintln(w, hint)
	}
	return ExitCode(err)
}

// HandleError prints err to stderr and exits with its code
func HandleError(err error) {
	if err == nil {
		return
	}
	os.Exit(PrintError(os.Stderr, err))
}

// WrapError wraps an error with additional context
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
