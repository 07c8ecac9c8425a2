package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every REQTRACK_ env var that Load() reads.
var allConfigKeys = []string{
	"REQTRACK_API_BASE_URL",
	"REQTRACK_LISTEN_ADDR",
	"REQTRACK_DB_PATH",
	"REQTRACK_SECRET_KEY",
	"REQTRACK_OAUTH_AUTH_URL",
	"REQTRACK_OAUTH_TOKEN_URL",
	"REQTRACK_OAUTH_LOGOUT_URL",
	"REQTRACK_OAUTH_CLIENT_ID",
	"REQTRACK_OAUTH_SCOPES",
	"REQTRACK_OAUTH_REDIRECT_URL",
	"REQTRACK_GITHUB_TOKEN",
}

// isolateConfigEnv saves and unsets all REQTRACK_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores originals.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

// setRequiredEnv sets the minimum identity-provider settings Load() demands.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REQTRACK_OAUTH_AUTH_URL", "https://id.example.com/authorize")
	t.Setenv("REQTRACK_OAUTH_TOKEN_URL", "https://id.example.com/token")
	t.Setenv("REQTRACK_OAUTH_CLIENT_ID", "panel-client")
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("REQTRACK_API_BASE_URL", "https://tracker.example.com/api/")
	t.Setenv("REQTRACK_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("REQTRACK_DB_PATH", "/tmp/test.db")
	t.Setenv("REQTRACK_SECRET_KEY", strings.Repeat("ab", 32))
	t.Setenv("REQTRACK_GITHUB_TOKEN", "ghp_test123")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://tracker.example.com/api", cfg.APIBaseURL, "trailing slash trimmed")
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Len(t, cfg.SecretKey, 32)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.True(t, cfg.HasIdentityProvider())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5119/api", cfg.APIBaseURL)
	assert.Equal(t, "127.0.0.1:8484", cfg.ListenAddr)
	assert.Equal(t, "reqtrack.db", cfg.DBPath)
	assert.Nil(t, cfg.SecretKey, "no secret key means in-memory session only")
	assert.Equal(t, []string{"openid", "profile", "email", "offline_access"}, cfg.OAuthScopes)
	assert.Equal(t, "http://127.0.0.1:8484/auth/callback", cfg.OAuthRedirectURL)
	assert.Empty(t, cfg.GitHubToken)
}

func TestLoad_MissingIdentityProvider(t *testing.T) {
	isolateConfigEnv(t)

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity provider not configured")
}

func TestLoad_ScopesParsing(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("REQTRACK_OAUTH_SCOPES", "openid, offline_access , api://tracker/.default,")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "offline_access", "api://tracker/.default"}, cfg.OAuthScopes)
}

func TestLoad_InvalidSecretKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "not hex", key: "zz"},
		{name: "wrong length", key: "abcd"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolateConfigEnv(t)
			setRequiredEnv(t)
			t.Setenv("REQTRACK_SECRET_KEY", tc.key)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "REQTRACK_SECRET_KEY")
		})
	}
}
