// authenticationhandler/authenticationhandler.go

/* Package authenticationhandler manages the OAuth access token lifecycle for the API clients.
It caches the most recent token, refreshes it silently through an identity store and falls back
to a single interactive acquisition when the identity store asks for user interaction. */
package authenticationhandler

import (
	"context"
	"errors"
	"time"
)

// ErrInteractionRequired is returned by an IdentityStore when a token cannot be obtained silently.
// It never reaches callers of AuthTokenProvider; it drives the interactive fallback.
var ErrInteractionRequired = errors.New("user interaction required")

// Account identifies one signed-in user known to the identity store.
type Account struct {
	Username      string `json:"username"`                  // Username is the login name, matched against the login hint.
	HomeAccountID string `json:"home_account_id,omitempty"` // HomeAccountID is the stable identifier issued by the authority.
}

// AuthResult is the outcome of a successful token acquisition.
type AuthResult struct {
	AccessToken string    // AccessToken is the OAuth bearer string stamped on outgoing requests.
	ExpiresOn   time.Time // ExpiresOn is the absolute expiry instant reported by the authority.
	Account     *Account  // Account is the account the token was issued for, if known.
}

// IdentityStore is the external authority the provider acquires tokens from.
type IdentityStore interface {
	// Accounts enumerates the accounts held in the store's cache.
	Accounts(ctx context.Context) ([]Account, error)
	// AcquireTokenSilent obtains a token without user interaction. It returns an error wrapping
	// ErrInteractionRequired when the user has to sign in again.
	AcquireTokenSilent(ctx context.Context, scopes []string, account *Account) (*AuthResult, error)
	// AcquireTokenInteractive runs the user-facing sign-in flow and blocks until it completes.
	AcquireTokenInteractive(ctx context.Context, scopes []string, loginHint string) (*AuthResult, error)
}
