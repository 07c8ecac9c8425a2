// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// APIBaseURL is the tracker backend base, including the /api prefix.
	APIBaseURL string
	ListenAddr string
	DBPath     string

	// SecretKey encrypts cached refresh tokens at rest. Nil disables the
	// persistent token cache; the session then lives only in process memory.
	SecretKey []byte

	// Identity provider (OAuth2 authorization-code flow).
	OAuthAuthURL     string
	OAuthTokenURL    string
	OAuthLogoutURL   string
	OAuthClientID    string
	OAuthScopes      []string
	OAuthRedirectURL string

	// GitHubToken enables linked-issue enrichment when set.
	GitHubToken string
}

// HasIdentityProvider returns true when the OAuth endpoints and client id are
// all configured. Used by the composition root to decide whether sign-in is
// possible at all.
func (c *Config) HasIdentityProvider() bool {
	return c.OAuthAuthURL != "" && c.OAuthTokenURL != "" && c.OAuthClientID != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// Identity provider settings (REQTRACK_OAUTH_AUTH_URL, REQTRACK_OAUTH_TOKEN_URL,
// REQTRACK_OAUTH_CLIENT_ID) are required; the rest have defaults:
// REQTRACK_API_BASE_URL (http://localhost:5119/api), REQTRACK_LISTEN_ADDR
// (127.0.0.1:8484), REQTRACK_DB_PATH (reqtrack.db), REQTRACK_OAUTH_SCOPES
// (openid,profile,email,offline_access), REQTRACK_OAUTH_REDIRECT_URL
// (http://<listen_addr>/auth/callback).
func Load() (*Config, error) {
	apiBase := "http://localhost:5119/api"
	if v, ok := os.LookupEnv("REQTRACK_API_BASE_URL"); ok {
		apiBase = strings.TrimRight(v, "/")
	}

	listenAddr := "127.0.0.1:8484"
	if v, ok := os.LookupEnv("REQTRACK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "reqtrack.db"
	if v, ok := os.LookupEnv("REQTRACK_DB_PATH"); ok {
		dbPath = v
	}

	var secretKey []byte
	if v := os.Getenv("REQTRACK_SECRET_KEY"); v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("REQTRACK_SECRET_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("REQTRACK_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	authURL := os.Getenv("REQTRACK_OAUTH_AUTH_URL")
	tokenURL := os.Getenv("REQTRACK_OAUTH_TOKEN_URL")
	clientID := os.Getenv("REQTRACK_OAUTH_CLIENT_ID")
	if authURL == "" || tokenURL == "" || clientID == "" {
		return nil, fmt.Errorf("identity provider not configured: REQTRACK_OAUTH_AUTH_URL, REQTRACK_OAUTH_TOKEN_URL and REQTRACK_OAUTH_CLIENT_ID are required")
	}

	scopes := []string{"openid", "profile", "email", "offline_access"}
	if v, ok := os.LookupEnv("REQTRACK_OAUTH_SCOPES"); ok && v != "" {
		scopes = scopes[:0]
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				scopes = append(scopes, s)
			}
		}
	}

	redirectURL := fmt.Sprintf("http://%s/auth/callback", listenAddr)
	if v, ok := os.LookupEnv("REQTRACK_OAUTH_REDIRECT_URL"); ok {
		redirectURL = v
	}

	return &Config{
		APIBaseURL:       apiBase,
		ListenAddr:       listenAddr,
		DBPath:           dbPath,
		SecretKey:        secretKey,
		OAuthAuthURL:     authURL,
		OAuthTokenURL:    tokenURL,
		OAuthLogoutURL:   os.Getenv("REQTRACK_OAUTH_LOGOUT_URL"),
		OAuthClientID:    clientID,
		OAuthScopes:      scopes,
		OAuthRedirectURL: redirectURL,
		GitHubToken:      os.Getenv("REQTRACK_GITHUB_TOKEN"),
	}, nil
}
