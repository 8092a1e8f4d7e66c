package secretgen

import (
	"strings"
	"testing"

	"github.com/vault-cli/envvault/internal/envfile"
)

type deterministicReader struct {
	next byte
}

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.next
		r.next++
	}
	return len(p), nil
}

func useDeterministicSource(t *testing.T) {
	t.Helper()
	SetRandomSource(&deterministicReader{})
	t.Cleanup(func() {
		SetRandomSource(nil)
	})
}

func TestGenerateCharsets(t *testing.T) {
	useDeterministicSource(t)

	for _, charset := range Charsets() {
		t.Run(string(charset), func(t *testing.T) {
			value, err := Generate(40, charset)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got := len([]rune(value)); got != 40 {
				t.Fatalf("Generate() length = %d, want 40", got)
			}

			allowed := string(charsetLookup[charset])
			for _, r := range value {
				if !strings.ContainsRune(allowed, r) {
					t.Fatalf("Generate() produced rune %q outside %s", r, charset)
				}
			}
		})
	}
}

func TestGeneratedValuesSurviveEnvRoundTrip(t *testing.T) {
	for _, charset := range Charsets() {
		value, err := Generate(64, charset)
		if err != nil {
			t.Fatalf("Generate(%s) error = %v", charset, err)
		}

		m := envfile.NewMap(envfile.Pair{Key: "SECRET", Value: value})
		got, ok := envfile.Parse(envfile.Serialize(m)).Get("SECRET")
		if !ok || got != value {
			t.Fatalf("round trip of %s value %q gave %q", charset, value, got)
		}
	}
}

func TestGenerateInvalidInput(t *testing.T) {
	if _, err := Generate(0, CharsetAlnum); err == nil {
		t.Fatal("Generate() expected error for zero length")
	}
	if _, err := Generate(10, Charset("invalid")); err == nil {
		t.Fatal("Generate() expected error for unknown charset")
	}
}

func TestPassphrase(t *testing.T) {
	useDeterministicSource(t)

	phrase, err := Passphrase(4, " ")
	if err != nil {
		t.Fatalf("Passphrase() error = %v", err)
	}

	words := strings.Split(phrase, " ")
	if len(words) != 4 {
		t.Fatalf("Passphrase() produced %d words, want 4", len(words))
	}
	for _, w := range words {
		if !strings.Contains(w, "-") {
			t.Fatalf("word %q is not an adjective-noun pair", w)
		}
	}

	if _, err := Passphrase(0, " "); err == nil {
		t.Fatal("Passphrase() expected error for zero words")
	}
}

func TestRandomIndexBounds(t *testing.T) {
	reader := &deterministicReader{}
	for _, max := range []int{1, 7, 256, 1000, 70000} {
		for i := 0; i < 50; i++ {
			idx, err := randomIndex(reader, max)
			if err != nil {
				t.Fatalf("randomIndex(%d) error = %v", max, err)
			}
			if idx < 0 || idx >= max {
				t.Fatalf("randomIndex(%d) = %d out of range", max, idx)
			}
		}
	}
}
