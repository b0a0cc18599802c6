package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultTokenFile is where cmd/sheets-auth stores the user token.
const DefaultTokenFile = "token.json"

// ErrNoOAuthClient means neither GOOGLE_OAUTH_CLIENT_JSON nor
// GOOGLE_OAUTH_CLIENT_FILE is set.
var ErrNoOAuthClient = errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")

// OAuthConfigFromEnv builds the installed-app OAuth config for the Sheets
// scope from GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE.
func OAuthConfigFromEnv() (*oauth2.Config, error) {
	var raw []byte
	clientJSON := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	clientFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
	switch {
	case clientJSON != "":
		raw = []byte(clientJSON)
	case clientFile != "":
		b, err := os.ReadFile(clientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		raw = b
	default:
		return nil, ErrNoOAuthClient
	}
	cfg, err := goauth.ConfigFromJSON(raw, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// TokenFile returns GOOGLE_OAUTH_TOKEN_FILE or DefaultTokenFile.
func TokenFile() string {
	if f := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")); f != "" {
		return f
	}
	return DefaultTokenFile
}

// LoadToken reads a token previously written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes tok to path, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		_ = f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

// oauthHTTPClient returns a refreshing client when OAuth user credentials are
// configured, or ErrNoOAuthClient.
func oauthHTTPClient(ctx context.Context) (*http.Client, error) {
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(TokenFile())
	if err != nil {
		return nil, err
	}
	return cfg.Client(ctx, tok), nil
}
