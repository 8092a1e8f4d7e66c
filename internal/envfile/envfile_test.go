package envfile

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Pair
	}{
		{
			name:  "simple assignments",
			input: "FOO=bar\nBAZ=qux\n",
			want:  []Pair{{"FOO", "bar"}, {"BAZ", "qux"}},
		},
		{
			name:  "comments and blank lines",
			input: "# header\n\nFOO=bar\n   # indented comment\n\t\nBAZ=qux",
			want:  []Pair{{"FOO", "bar"}, {"BAZ", "qux"}},
		},
		{
			name:  "quoted values",
			input: "A=\"double\"\nB='single'\nC=\"mismatched'\nD=\"\"",
			want:  []Pair{{"A", "double"}, {"B", "single"}, {"C", "\"mismatched'"}, {"D", ""}},
		},
		{
			name:  "export prefix",
			input: "export TOKEN=abc\nexport   SPACED=1",
			want:  []Pair{{"TOKEN", "abc"}, {"SPACED", "1"}},
		},
		{
			name:  "splits on first equals only",
			input: "URL=postgres://u:p@h/db?sslmode=disable",
			want:  []Pair{{"URL", "postgres://u:p@h/db?sslmode=disable"}},
		},
		{
			name:  "lines without equals are ignored",
			input: "JUSTAKEY\nFOO=bar\n=novalue",
			want:  []Pair{{"FOO", "bar"}},
		},
		{
			name:  "windows line endings",
			input: "FOO=bar\r\nBAZ=qux\r\n",
			want:  []Pair{{"FOO", "bar"}, {"BAZ", "qux"}},
		},
		{
			name:  "duplicate keys keep first position and last value",
			input: "A=1\nB=2\nA=3",
			want:  []Pair{{"A", "3"}, {"B", "2"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			assert.Equal(t, tt.want, got.Pairs())
		})
	}
}

func TestSerialize(t *testing.T) {
	m := NewMap(Pair{"OPENAI_KEY", "sk-123"})
	assert.Equal(t, "OPENAI_KEY=sk-123\n", Serialize(m))

	m.Set("SECOND", "two words")
	assert.Equal(t, "OPENAI_KEY=sk-123\nSECOND=two words\n", Serialize(m))

	assert.Equal(t, "", Serialize(&Map{}))
	assert.Equal(t, "", Serialize(nil))
}

func TestMapSetKeepsOrder(t *testing.T) {
	var m Map
	m.Set("b", "1")
	m.Set("a", "2")
	m.Set("b", "3")

	assert.Equal(t, []string{"b", "a"}, m.Keys())
	v, ok := m.Get("b")
	require.True(t, ok)
	assert.Equal(t, "3", v)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ_0123456789"
	const valueAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789-_.:/=+@"

	rng := rand.New(rand.NewSource(42))
	randomString := func(chars string, min, max int) string {
		n := min + rng.Intn(max-min+1)
		b := make([]byte, n)
		for i := range b {
			b[i] = chars[rng.Intn(len(chars))]
		}
		return string(b)
	}

	for i := 0; i < 200; i++ {
		m := &Map{}
		for j := 0; j < rng.Intn(12); j++ {
			m.Set("K"+randomString(alphabet, 1, 16), randomString(valueAlphabet, 0, 32))
		}

		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			got := Parse(Serialize(m))
			assert.True(t, m.Equal(got), "round trip mismatch: %v != %v", m.Pairs(), got.Pairs())
		})
	}
}
