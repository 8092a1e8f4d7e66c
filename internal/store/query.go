package store

import (
	"strings"
	"unicode"

	"github.com/vault-cli/envvault/internal/domain"
)

// ParseSearchTokens splits the raw search string into lower-cased tokens.
// Tokens are delimited by '+' or any whitespace character.
func ParseSearchTokens(raw string) []string {
	fields := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool {
		return unicode.IsSpace(r) || r == '+'
	})
	if len(fields) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		tokens = append(tokens, strings.ToLower(field))
	}
	return tokens
}

// MatchesFilter reports whether the secret satisfies every part of filter.
// Category must match exactly, every tag must be present, and each search
// token must appear in the key, category, source or one of the tags.
func MatchesFilter(secret *domain.SecretEntry, filter *domain.Filter) bool {
	if filter == nil || secret == nil {
		return true
	}

	if filter.Category != "" && secret.Category != filter.Category {
		return false
	}

	for _, want := range filter.Tags {
		if !hasTag(secret.Tags, want) {
			return false
		}
	}

	return matchesSearchTokens(secret, filter.SearchTokens)
}

func matchesSearchTokens(secret *domain.SecretEntry, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}

	key := strings.ToLower(secret.Key)
	category := strings.ToLower(secret.Category)
	source := strings.ToLower(secret.Source)

	for _, token := range tokens {
		token = strings.ToLower(token)
		if token == "" {
			continue
		}

		if strings.Contains(key, token) ||
			strings.Contains(category, token) ||
			strings.Contains(source, token) ||
			tagContainsToken(secret.Tags, token) {
			continue
		}

		return false
	}

	return true
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func tagContainsToken(tags []string, token string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), token) {
			return true
		}
	}
	return false
}
