package store

import (
	"encoding/json"
	"errors"
	"testing"
)

func FuzzDecodeVault(f *testing.F) {
	f.Add([]byte(`{"version":1,"metadata":{"created":"2024-01-01T00:00:00Z","lastUpdated":"2024-01-01T00:00:00Z"},"projects":[],"globalTags":[]}`))
	f.Add([]byte(`{"version":1,"metadata":{},"projects":[{"name":"api","secrets":[{"key":"K","value":"v"}]}]}`))
	f.Add([]byte(`{"version":2}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`invalid json`))

	f.Fuzz(func(t *testing.T, raw []byte) {
		if len(raw) > 50000 {
			t.Skip("input too large")
		}

		data, err := decodeVault(raw)
		if err != nil {
			if !errors.Is(err, ErrVaultCorrupted) {
				t.Fatalf("decode error does not wrap ErrVaultCorrupted: %v", err)
			}
			return
		}

		// anything accepted must survive being written back
		encoded, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("accepted document does not marshal: %v", err)
		}
		if _, err := decodeVault(encoded); err != nil {
			t.Fatalf("accepted document rejected after re-encoding: %v", err)
		}
	})
}
