package auth

import (
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	tg := NewTokenGenerator()

	token, tokenHash, tokenPrefix, err := tg.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if !strings.HasPrefix(token, TokenPrefix) {
		t.Errorf("token %q does not start with %q", token, TokenPrefix)
	}
	if len(tokenHash) != 64 {
		t.Errorf("expected 64-char hex hash, got %d chars", len(tokenHash))
	}
	if !strings.HasPrefix(tokenPrefix, TokenPrefix) {
		t.Errorf("prefix %q does not start with %q", tokenPrefix, TokenPrefix)
	}
	if len(tokenPrefix) != len(TokenPrefix)+8 {
		t.Errorf("unexpected prefix length: %q", tokenPrefix)
	}

	if tg.HashToken(token) != tokenHash {
		t.Error("HashToken does not match hash returned by GenerateToken")
	}
}

func TestGenerateTokenUnique(t *testing.T) {
	tg := NewTokenGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, _, _, err := tg.GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		if seen[token] {
			t.Fatal("duplicate token generated")
		}
		seen[token] = true
	}
}

func TestValidateTokenFormat(t *testing.T) {
	tg := NewTokenGenerator()

	token, _, _, err := tg.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid token", token, false},
		{"wrong prefix", "spoke_abc123", true},
		{"empty", "", true},
		{"prefix only", TokenPrefix, true},
		{"invalid base64", TokenPrefix + "!!!not-base64!!!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tg.ValidateTokenFormat(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTokenFormat(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			}
		})
	}
}

func TestExtractPrefix(t *testing.T) {
	tg := NewTokenGenerator()

	if got := tg.ExtractPrefix("not-a-legate-token"); got != "" {
		t.Errorf("expected empty prefix for foreign token, got %q", got)
	}

	token, _, tokenPrefix, err := tg.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if got := tg.ExtractPrefix(token); got != tokenPrefix {
		t.Errorf("ExtractPrefix = %q, want %q", got, tokenPrefix)
	}
}
