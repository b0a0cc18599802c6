package google

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const testClientJSON = `{"installed":{"client_id":"client-id","client_secret":"secret",` +
	`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
	`"redirect_uris":["http://localhost"]}}`

func TestOAuthConfigFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", "")
	if _, err := OAuthConfigFromEnv(); !errors.Is(err, ErrNoOAuthClient) {
		t.Fatalf("expected ErrNoOAuthClient, got %v", err)
	}

	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testClientJSON)
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ClientID != "client-id" || len(cfg.Scopes) != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", filepath.Join(t.TempDir(), "missing.json"))
	if _, err := OAuthConfigFromEnv(); err == nil || !strings.Contains(err.Error(), "read oauth client file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.Expiry.Equal(want.Expiry) {
		t.Fatalf("token mismatch: %+v", got)
	}
}

func TestTokenFile(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", "")
	if TokenFile() != DefaultTokenFile {
		t.Fatalf("expected default token file, got %q", TokenFile())
	}
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", "/tmp/tok.json")
	if TokenFile() != "/tmp/tok.json" {
		t.Fatalf("unexpected token file %q", TokenFile())
	}
}

func TestNewFromEnv_OAuthWithoutToken(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testClientJSON)
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", filepath.Join(t.TempDir(), "absent.json"))

	_, err := NewFromEnv(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "open token file") {
		t.Fatalf("expected token error, got %v", err)
	}
}
