// Package ledger – token.go generates redemption key tokens.
package ledger

import (
	"crypto/rand"
	"strings"
)

const (
	// TokenPrefix marks every PolarDev redemption key.
	TokenPrefix = "PD-"

	// tokenLength is the number of random characters after the prefix.
	tokenLength = 16

	// tokenAlphabet excludes easily-confused glyphs (0/O, 1/I).
	tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateToken returns a fresh key token in the form
// PD-XXXX-XXXX-XXXX-XXXX. Tokens are random, not guaranteed unique; the
// store rejects duplicate inserts, so callers should regenerate on that
// (astronomically unlikely) collision.
func GenerateToken() string {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic("ledger: reading random bytes: " + err.Error())
	}

	var b strings.Builder
	b.Grow(len(TokenPrefix) + tokenLength + 3)
	b.WriteString(TokenPrefix)
	for i, rb := range buf {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(tokenAlphabet[int(rb)%len(tokenAlphabet)])
	}
	return b.String()
}

// ValidTokenFormat reports whether s looks like a PolarDev key token.
// Used to reject obviously malformed input before hitting the store.
func ValidTokenFormat(s string) bool {
	if !strings.HasPrefix(s, TokenPrefix) {
		return false
	}
	rest := strings.TrimPrefix(s, TokenPrefix)
	groups := strings.Split(rest, "-")
	if len(groups) != 4 {
		return false
	}
	for _, g := range groups {
		if len(g) != 4 {
			return false
		}
		for i := 0; i < len(g); i++ {
			if !strings.ContainsRune(tokenAlphabet, rune(g[i])) {
				return false
			}
		}
	}
	return true
}
