package clipboard

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	mu   sync.Mutex
	text string
	err  error
}

func (m *memoryBackend) ReadAll() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, m.err
}

func (m *memoryBackend) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.text = text
	return nil
}

func TestCopyWithTimeoutClears(t *testing.T) {
	backend := &memoryBackend{}
	cb := NewWithBackend(backend, nil)

	done, err := cb.CopyWithTimeout("sk-123", 20*time.Millisecond)
	require.NoError(t, err)

	text, _ := backend.ReadAll()
	assert.Equal(t, "sk-123", text)

	<-done
	text, _ = backend.ReadAll()
	assert.Empty(t, text)
}

func TestCopyWithTimeoutKeepsForeignContent(t *testing.T) {
	backend := &memoryBackend{}
	cb := NewWithBackend(backend, nil)

	done, err := cb.CopyWithTimeout("sk-123", 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, backend.WriteAll("something else"))

	<-done
	text, _ := backend.ReadAll()
	assert.Equal(t, "something else", text)
}

func TestCopyWithoutTimeout(t *testing.T) {
	backend := &memoryBackend{}
	cb := NewWithBackend(backend, nil)

	done, err := cb.CopyWithTimeout("value", 0)
	require.NoError(t, err)
	<-done

	text, _ := backend.ReadAll()
	assert.Equal(t, "value", text)
}

func TestCopyUnavailable(t *testing.T) {
	cb := NewWithBackend(&memoryBackend{err: errors.New("no display")}, nil)

	assert.False(t, cb.IsAvailable())
	_, err := cb.CopyWithTimeout("value", time.Second)
	assert.Error(t, err)
}
