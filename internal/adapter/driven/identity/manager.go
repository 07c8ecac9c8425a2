// Package identity implements the SessionManager port against an OAuth2/OIDC
// identity provider using the golang.org/x/oauth2 authorization-code flow.
package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/mwalcott/reqtrack/internal/domain/model"
	"github.com/mwalcott/reqtrack/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionManager = (*Manager)(nil)

// expirySkew is subtracted from token expiry so a token about to lapse
// mid-request is refreshed instead of sent.
const expirySkew = 30 * time.Second

// Config holds the identity provider endpoints and client registration.
type Config struct {
	AuthURL     string
	TokenURL    string
	LogoutURL   string // Optional end-session endpoint.
	ClientID    string
	Scopes      []string
	RedirectURL string
}

// Manager owns the zero-or-one active identity-provider session. It is
// constructed once at startup and injected everywhere a token is needed;
// tests swap it via the driven.SessionManager port.
type Manager struct {
	oauth     *oauth2.Config
	store     driven.TokenStore
	logoutURL string
	http      *http.Client // nil means the oauth2 package default.
	logger    *slog.Logger

	mu       sync.Mutex
	verifier string        // PKCE verifier for the in-flight interactive flow.
	cached   *oauth2.Token // Current access token; never persisted.
	memToken string        // Refresh token fallback when the store has no encryption key.
}

// NewManager creates a session manager backed by the given token store.
func NewManager(cfg Config, store driven.TokenStore, logger *slog.Logger) *Manager {
	return &Manager{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			Scopes:      cfg.Scopes,
			RedirectURL: cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		store:     store,
		logoutURL: cfg.LogoutURL,
		logger:    logger,
	}
}

// NewManagerWithHTTPClient creates a Manager that talks to the provider with a
// custom http.Client. This constructor is intended for testing, allowing
// injection of an httptest server.
func NewManagerWithHTTPClient(cfg Config, store driven.TokenStore, logger *slog.Logger, httpClient *http.Client) *Manager {
	m := NewManager(cfg, store, logger)
	m.http = httpClient
	return m
}

// CurrentAccounts returns the locally cached authenticated accounts.
func (m *Manager) CurrentAccounts(ctx context.Context) ([]model.Account, error) {
	accounts, err := m.store.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cached accounts: %w", err)
	}
	return accounts, nil
}

// AcquireToken attempts silent token acquisition for the active account.
// Any silent failure -- no refresh credential, provider rejection, network
// error -- yields driven.ErrReauthRequired; the caller's request is dropped
// and the interactive flow runs on the next page load. The method itself
// never navigates anywhere.
func (m *Manager) AcquireToken(ctx context.Context) (string, error) {
	accounts, err := m.store.Accounts(ctx)
	if err != nil {
		return "", fmt.Errorf("list cached accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", driven.ErrNoSession
	}
	account := accounts[0] // Single active account by convention.

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && m.cached.Expiry.After(time.Now().Add(expirySkew)) {
		return m.cached.AccessToken, nil
	}

	refresh := m.memToken
	if refresh == "" {
		stored, err := m.store.RefreshToken(ctx, account.ID)
		if err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return "", fmt.Errorf("read refresh token: %w", err)
		}
		refresh = stored
	}
	if refresh == "" {
		return "", driven.ErrReauthRequired
	}

	src := m.oauth.TokenSource(m.httpContext(ctx), &oauth2.Token{RefreshToken: refresh})
	tok, err := src.Token()
	if err != nil {
		// Credential failures and network failures are treated identically:
		// both fall back to the interactive flow.
		m.logger.Warn("silent token acquisition failed", "account", account.ID, "error", err)
		return "", driven.ErrReauthRequired
	}

	if tok.RefreshToken != "" && tok.RefreshToken != refresh {
		m.persistRefreshTokenLocked(ctx, account.ID, tok.RefreshToken)
	}
	m.cached = tok

	return tok.AccessToken, nil
}

// LoginURL builds the provider's authorization URL for the interactive
// redirect flow, minting a fresh PKCE verifier for the exchange.
func (m *Manager) LoginURL(state string) string {
	m.mu.Lock()
	m.verifier = oauth2.GenerateVerifier()
	verifier := m.verifier
	m.mu.Unlock()

	return m.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)
}

// CompleteLogin exchanges the authorization code delivered to the redirect
// callback, caches the account, and persists the refresh credential.
func (m *Manager) CompleteLogin(ctx context.Context, code string) (model.Account, error) {
	m.mu.Lock()
	verifier := m.verifier
	m.verifier = ""
	m.mu.Unlock()

	opts := []oauth2.AuthCodeOption{}
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	tok, err := m.oauth.Exchange(m.httpContext(ctx), code, opts...)
	if err != nil {
		return model.Account{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	account, err := accountFromIDToken(tok)
	if err != nil {
		return model.Account{}, err
	}

	if err := m.store.SaveAccount(ctx, account); err != nil {
		return model.Account{}, fmt.Errorf("cache account: %w", err)
	}

	m.mu.Lock()
	m.cached = tok
	m.memToken = ""
	m.mu.Unlock()

	if tok.RefreshToken != "" {
		m.persistRefreshToken(ctx, account.ID, tok.RefreshToken)
	}

	m.logger.Info("session established", "account", account.ID, "email", account.Email)
	return account, nil
}

// Logout tears down the session and returns the provider's end-session URL,
// or "" when none is configured. The caller performs the redirect.
func (m *Manager) Logout(ctx context.Context) (string, error) {
	if err := m.store.Clear(ctx); err != nil {
		return "", fmt.Errorf("clear token store: %w", err)
	}

	m.mu.Lock()
	m.cached = nil
	m.memToken = ""
	m.verifier = ""
	m.mu.Unlock()

	m.logger.Info("session cleared")
	return m.logoutURL, nil
}

// persistRefreshTokenLocked stores the rotated refresh credential, downgrading
// to in-memory retention when the store has no encryption key. Caller holds m.mu.
func (m *Manager) persistRefreshTokenLocked(ctx context.Context, accountID, token string) {
	if err := m.store.SaveRefreshToken(ctx, accountID, token); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			m.memToken = token
			return
		}
		m.logger.Warn("persist refresh token failed", "account", accountID, "error", err)
		m.memToken = token
	}
}

// persistRefreshToken is persistRefreshTokenLocked for callers not holding m.mu.
func (m *Manager) persistRefreshToken(ctx context.Context, accountID, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistRefreshTokenLocked(ctx, accountID, token)
}

// httpContext injects the custom http.Client for the oauth2 package when one
// was provided (tests).
func (m *Manager) httpContext(ctx context.Context) context.Context {
	if m.http == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.http)
}

// idTokenClaims is the subset of OIDC claims used for display identity.
type idTokenClaims struct {
	Subject           string `json:"sub"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

// accountFromIDToken decodes display identity from the ID token payload.
// The signature is not verified locally: these claims drive the GUI only,
// and the backend independently validates every access token it receives.
func accountFromIDToken(tok *oauth2.Token) (model.Account, error) {
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return model.Account{}, errors.New("token response carries no id_token; is the openid scope configured?")
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return model.Account{}, errors.New("malformed id_token")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return model.Account{}, fmt.Errorf("decode id_token payload: %w", err)
	}

	var claims idTokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return model.Account{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	if claims.Subject == "" {
		return model.Account{}, errors.New("id_token carries no subject")
	}

	name := claims.Name
	if name == "" {
		name = claims.PreferredUsername
	}

	return model.Account{
		ID:    claims.Subject,
		Name:  name,
		Email: claims.Email,
	}, nil
}
