package ledger

import (
	"regexp"
	"strings"
	"testing"
)

var tokenRe = regexp.MustCompile(`^PD-[A-Z2-9]{4}-[A-Z2-9]{4}-[A-Z2-9]{4}-[A-Z2-9]{4}$`)

func TestGenerateTokenFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		tok := GenerateToken()
		if !tokenRe.MatchString(tok) {
			t.Fatalf("token %q does not match PD-XXXX-XXXX-XXXX-XXXX", tok)
		}
		// Confusable glyphs are excluded from the alphabet.
		if strings.ContainsAny(tok[len(TokenPrefix):], "01OI") {
			t.Fatalf("token %q contains a confusable glyph", tok)
		}
	}
}

func TestGenerateTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok := GenerateToken()
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}

func TestValidTokenFormat(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid", "PD-ABCD-EFGH-JKLM-NPQR", true},
		{"valid digits", "PD-2345-6789-WXYZ-ABCD", true},
		{"missing prefix", "ABCD-EFGH-JKLM-NPQR", false},
		{"wrong prefix", "XX-ABCD-EFGH-JKLM-NPQR", false},
		{"short group", "PD-ABC-EFGH-JKLM-NPQR", false},
		{"three groups", "PD-ABCD-EFGH-JKLM", false},
		{"confusable zero", "PD-AB0D-EFGH-JKLM-NPQR", false},
		{"confusable oh", "PD-ABOD-EFGH-JKLM-NPQR", false},
		{"lowercase", "PD-abcd-efgh-jklm-npqr", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidTokenFormat(tt.token); got != tt.want {
				t.Errorf("ValidTokenFormat(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}
