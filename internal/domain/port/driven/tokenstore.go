package driven

import (
	"context"
	"errors"

	"github.com/mwalcott/reqtrack/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by TokenStore operations when
// REQTRACK_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set REQTRACK_SECRET_KEY")

// TokenStore defines the driven port for persisting the session across
// restarts: cached accounts plus their refresh credentials. The adapter layer
// is responsible for encrypting refresh tokens at rest; this interface
// operates on plaintext values at the domain boundary.
type TokenStore interface {
	// SaveAccount stores or replaces the cached account.
	SaveAccount(ctx context.Context, account model.Account) error

	// Accounts returns all cached accounts, most recently updated first.
	Accounts(ctx context.Context) ([]model.Account, error)

	// SaveRefreshToken stores or replaces the refresh credential for the
	// given account. Returns ErrEncryptionKeyNotSet if the adapter was
	// constructed without an encryption key.
	SaveRefreshToken(ctx context.Context, accountID, plaintext string) error

	// RefreshToken retrieves the refresh credential for the given account.
	// Returns ("", nil) if none is stored.
	RefreshToken(ctx context.Context, accountID string) (string, error)

	// Clear removes all cached accounts and credentials.
	Clear(ctx context.Context) error
}
