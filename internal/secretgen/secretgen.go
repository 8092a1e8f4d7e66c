// Package secretgen produces random secret values for the generate command.
package secretgen

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"sync"
)

// Charset names the alphabet a generated value is drawn from
type Charset string

const (
	// CharsetAlnum uses a-z, A-Z and 0-9
	CharsetAlnum Charset = "alnum"
	// CharsetEnvSafe adds '-', '_' and '.' to alnum; values never need quoting in env files
	CharsetEnvSafe Charset = "env"
	// CharsetHex uses lowercase hexadecimal digits
	CharsetHex Charset = "hex"
	// CharsetSymbols adds punctuation that survives an env file round trip unquoted
	CharsetSymbols Charset = "symbols"
)

var (
	errInvalidLength    = errors.New("length must be positive")
	errUnknownCharset   = errors.New("unknown charset")
	errInvalidWordCount = errors.New("word count must be positive")
)

const alnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	charsetLookup = map[Charset][]rune{
		CharsetAlnum:   []rune(alnum),
		CharsetEnvSafe: []rune(alnum + "-_."),
		CharsetHex:     []rune("0123456789abcdef"),
		CharsetSymbols: []rune(alnum + "!@$%^&*()-_+[]{}<>?,.:;/|~"),
	}
	randSource io.Reader = rand.Reader
	randMux    sync.RWMutex
)

var wordAdjectives = []string{
	"able", "amber", "brave", "calm", "clever", "crisp", "daring", "eager", "early", "fancy", "gentle", "happy", "ideal", "jolly", "keen", "lively", "magic", "noble", "oaken", "pearl", "quick", "ready", "solar", "tidy", "urban", "vivid", "warm", "young", "zesty", "bright", "candid", "elegant", "friendly", "glossy", "humble",
}

var wordNouns = []string{
	"anchor", "beacon", "canyon", "dream", "ember", "forest", "galaxy", "harbor", "island", "jungle", "kingdom", "lantern", "meadow", "nebula", "ocean", "prairie", "quartz", "river", "summit", "temple", "valley", "willow", "xenon", "yonder", "zephyr", "apple", "bridge", "comet", "dragon", "feather", "garden", "horizon", "jade", "keeper", "legend",
}

var (
	wordList []string
	wordOnce sync.Once
)

// Charsets lists the supported charset names
func Charsets() []Charset {
	return []Charset{CharsetAlnum, CharsetEnvSafe, CharsetHex, CharsetSymbols}
}

// SetRandomSource replaces the random source. nil restores crypto/rand.
func SetRandomSource(r io.Reader) {
	randMux.Lock()
	if r == nil {
		randSource = rand.Reader
	} else {
		randSource = r
	}
	randMux.Unlock()
}

// Generate returns a random value of length characters drawn from charset
func Generate(length int, charset Charset) (string, error) {
	if length <= 0 {
		return "", errInvalidLength
	}

	chars, ok := charsetLookup[charset]
	if !ok {
		return "", errUnknownCharset
	}

	src := source()

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		idx, err := randomIndex(src, len(chars))
		if err != nil {
			return "", err
		}
		b.WriteRune(chars[idx])
	}
	return b.String(), nil
}

// Passphrase returns wordCount random adjective-noun words joined by sep
func Passphrase(wordCount int, sep string) (string, error) {
	if wordCount <= 0 {
		return "", errInvalidWordCount
	}

	words := words()
	src := source()

	result := make([]string, wordCount)
	for i := range result {
		idx, err := randomIndex(src, len(words))
		if err != nil {
			return "", err
		}
		result[i] = words[idx]
	}
	return strings.Join(result, sep), nil
}

func source() io.Reader {
	randMux.RLock()
	defer randMux.RUnlock()
	return randSource
}

func words() []string {
	wordOnce.Do(func() {
		merged := make([]string, 0, len(wordAdjectives)*len(wordNouns))
		for _, adj := range wordAdjectives {
			for _, noun := range wordNouns {
				merged = append(merged, adj+"-"+noun)
			}
		}
		wordList = merged
	})
	return wordList
}

// randomIndex returns a uniform index in [0, max) using rejection sampling
func randomIndex(r io.Reader, max int) (int, error) {
	if max <= 0 {
		return 0, errInvalidLength
	}

	if max <= 256 {
		var buf [1]byte
		usable := 256 - (256 % max)
		for {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return 0, err
			}
			if int(buf[0]) < usable {
				return int(buf[0]) % max, nil
			}
		}
	}

	if max <= 65536 {
		var buf [2]byte
		usable := 65536 - (65536 % max)
		for {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return 0, err
			}
			val := int(binary.BigEndian.Uint16(buf[:]))
			if val < usable {
				return val % max, nil
			}
		}
	}

	var buf [4]byte
	const maxUint32 = ^uint32(0)
	limit := maxUint32 - (maxUint32 % uint32(max))
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		val := binary.BigEndian.Uint32(buf[:])
		if val < limit {
			return int(val % uint32(max)), nil
		}
	}
}
