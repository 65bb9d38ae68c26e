package validation

import (
	"errors"
	"unicode"
)

// MaxKeyLen bounds lookup keys so the escaped cache key stays well under
// memcached's 250 byte limit.
const MaxKeyLen = 64

// ErrKeyEmpty is returned for an empty lookup key.
var ErrKeyEmpty = errors.New("key is required")

// ErrKeyTooLong is returned when a key exceeds MaxKeyLen runes.
var ErrKeyTooLong = errors.New("key too long")

// ErrKeyInvalidChars is returned when a key contains disallowed characters.
var ErrKeyInvalidChars = errors.New("key contains invalid characters")

// ValidateKey checks a symbol, base currency or location name taken from a
// request path. The key is not trimmed or case-folded: lookups are exact.
// Allowed: letters (Unicode), digits, space, hyphen, period, underscore.
func ValidateKey(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	n := 0
	for _, c := range key {
		n++
		if n > MaxKeyLen {
			return ErrKeyTooLong
		}
		if !isAllowedKeyRune(c) {
			return ErrKeyInvalidChars
		}
	}
	return nil
}

func isAllowedKeyRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', '-', '.', '_':
		return true
	}
	return false
}
