// Package audit keeps an append-only journal of vault operations in a bbolt
// database next to the vault. Entries carry the operation type, project and
// key names and never secret values.
package audit

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/vault-cli/envvault/internal/domain"
)

var operationsBucket = []byte("operations")

// ErrClosed is returned when using a journal after Close
var ErrClosed = errors.New("audit journal is closed")

// openTimeout bounds how long Open waits for another process holding the database
const openTimeout = 5 * time.Second

type envelope struct {
	Operation *domain.Operation `json:"operation"`
}

// Journal is a bbolt backed audit log. It satisfies store.Auditor.
type Journal struct {
	db   *bbolt.DB
	path string
	log  *zap.Logger
	now  func() time.Time
}

// Open opens or creates the journal database at path
func Open(path string, log *zap.Logger) (*Journal, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit journal: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(operationsBucket)
		return err
	})
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Warn("failed to close audit journal", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to create audit bucket: %w", err)
	}

	return &Journal{db: db, path: path, log: log, now: time.Now}, nil
}

// Path returns the journal database path
func (j *Journal) Path() string {
	return j.path
}

// Record appends op to the journal, assigning an ID and timestamp when missing
func (j *Journal) Record(op *domain.Operation) error {
	if j.db == nil {
		return ErrClosed
	}
	if op == nil {
		return fmt.Errorf("operation cannot be nil")
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = j.now().UTC()
	}

	return j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(operationsBucket)
		if bucket == nil {
			return fmt.Errorf("audit bucket not found")
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate audit sequence: %w", err)
		}

		payload, err := json.Marshal(envelope{Operation: op})
		if err != nil {
			return fmt.Errorf("failed to encode audit entry: %w", err)
		}

		return bucket.Put(sequenceKey(seq), payload)
	})
}

// List returns journal entries in chronological order. A positive limit
// returns only the most recent limit entries.
func (j *Journal) List(limit int) ([]*domain.Operation, error) {
	if j.db == nil {
		return nil, ErrClosed
	}

	var ops []*domain.Operation
	err := j.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(operationsBucket)
		if bucket == nil {
			return fmt.Errorf("audit bucket not found")
		}

		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(ops) >= limit {
				break
			}
			var env envelope
			if err := json.Unmarshal(v, &env); err != nil {
				return fmt.Errorf("failed to decode audit entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if env.Operation == nil {
				continue
			}
			op := *env.Operation
			op.Timestamp = op.Timestamp.UTC()
			ops = append(ops, &op)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, k := 0, len(ops)-1; i < k; i, k = i+1, k-1 {
		ops[i], ops[k] = ops[k], ops[i]
	}
	return ops, nil
}

// Verify checks that every entry decodes, carries a valid ID and that
// sequence numbers have no gaps
func (j *Journal) Verify() error {
	if j.db == nil {
		return ErrClosed
	}

	return j.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(operationsBucket)
		if bucket == nil {
			return fmt.Errorf("audit bucket not found")
		}

		var expected uint64 = 1
		return bucket.ForEach(func(k, v []byte) error {
			if len(k) != 8 {
				return fmt.Errorf("malformed audit key %x", k)
			}
			seq := binary.BigEndian.Uint64(k)
			if seq != expected {
				return fmt.Errorf("audit sequence gap: expected %d, found %d", expected, seq)
			}
			expected++

			var env envelope
			if err := json.Unmarshal(v, &env); err != nil {
				return fmt.Errorf("corrupted audit entry %d: %w", seq, err)
			}
			if env.Operation == nil {
				return fmt.Errorf("audit entry %d missing operation data", seq)
			}
			if _, err := uuid.Parse(env.Operation.ID); err != nil {
				return fmt.Errorf("audit entry %d has invalid id: %w", seq, err)
			}
			return nil
		})
	})
}

// Close releases the database
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
