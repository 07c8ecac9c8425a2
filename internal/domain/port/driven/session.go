package driven

import (
	"context"
	"errors"

	"github.com/mwalcott/reqtrack/internal/domain/model"
)

// ErrNoSession is returned by AcquireToken when no account is cached at all.
// Callers issue the request without an Authorization header in this case.
var ErrNoSession = errors.New("no authenticated session")

// ErrReauthRequired signals that silent token acquisition failed and an
// interactive redirect through the identity provider is needed. It is a
// distinct outcome rather than a generic failure: the call that hit it must
// be treated as dropped, and the shell renders the reauthentication flow.
var ErrReauthRequired = errors.New("interactive reauthentication required")

// SessionManager defines the driven port for the identity-provider session.
// The process holds zero or one active session; the concrete manager is
// constructed once at startup and injected into everything that needs tokens.
type SessionManager interface {
	// CurrentAccounts returns the locally cached authenticated accounts.
	// The first account is treated as the active session.
	CurrentAccounts(ctx context.Context) ([]model.Account, error)

	// AcquireToken attempts silent token acquisition from the cached refresh
	// credential. Returns ErrNoSession when no account is cached, and
	// ErrReauthRequired on any silent failure (absent or revoked credential,
	// provider rejection, network error). It never starts an interactive
	// flow itself.
	AcquireToken(ctx context.Context) (string, error)

	// LoginURL builds the identity provider's authorization URL for the
	// interactive redirect flow. state is echoed back on the callback.
	LoginURL(state string) string

	// CompleteLogin exchanges the authorization code delivered to the
	// redirect callback and establishes the session.
	CompleteLogin(ctx context.Context, code string) (model.Account, error)

	// Logout tears down the session and returns the provider's end-session
	// URL, or "" when the provider does not expose one.
	Logout(ctx context.Context) (string, error)
}
