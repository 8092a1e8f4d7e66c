// Package clipboard copies secret values to the system clipboard and clears
// them again after a timeout.
package clipboard

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// Backend is the system clipboard
type Backend interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemBackend struct{}

func (systemBackend) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemBackend) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Clipboard writes to a Backend and clears values it wrote
type Clipboard struct {
	backend Backend
	log     *zap.Logger
}

// New returns a Clipboard on the system clipboard
func New(log *zap.Logger) *Clipboard {
	return NewWithBackend(systemBackend{}, log)
}

// NewWithBackend returns a Clipboard on backend
func NewWithBackend(backend Backend, log *zap.Logger) *Clipboard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Clipboard{backend: backend, log: log}
}

// IsAvailable reports whether the clipboard can be read
func (c *Clipboard) IsAvailable() bool {
	_, err := c.backend.ReadAll()
	return err == nil
}

// CopyWithTimeout copies text and clears it after timeout, unless the
// clipboard has been overwritten in the meantime. The returned channel is
// closed once the clear has run. A non-positive timeout never clears.
func (c *Clipboard) CopyWithTimeout(text string, timeout time.Duration) (<-chan struct{}, error) {
	if err := c.backend.WriteAll(text); err != nil {
		return nil, fmt.Errorf("failed to copy to clipboard: %w", err)
	}

	done := make(chan struct{})
	if timeout <= 0 {
		close(done)
		return done, nil
	}

	go func() {
		defer close(done)
		time.Sleep(timeout)

		current, err := c.backend.ReadAll()
		if err != nil || current != text {
			return
		}
		if err := c.backend.WriteAll(""); err != nil {
			c.log.Warn("failed to clear clipboard", zap.Error(err))
		}
	}()

	return done, nil
}

// Clear empties the clipboard
func (c *Clipboard) Clear() error {
	return c.backend.WriteAll("")
}
