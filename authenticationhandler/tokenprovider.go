// authenticationhandler/tokenprovider.go
package authenticationhandler

import (
	"context"
	"errors"
	"time"

	"github.com/deploymenttheory/go-api-soap-client/environment"
	apierrors "github.com/deploymenttheory/go-api-soap-client/errors"
	"github.com/deploymenttheory/go-api-soap-client/logger"
	"go.uber.org/zap"
)

const (
	DefaultTokenExpirationOffsetSeconds = -60
	DefaultFetchTimeout                 = 300 * time.Second
)

// ProviderConfig configures an AuthTokenProvider.
type ProviderConfig struct {
	Environment environment.Environment // Environment selects the scope set requested from the identity store.
	LoginHint   string                  // LoginHint selects the cached account when the store holds several.

	// TokenExpirationOffsetSeconds must be negative. With an expiry of 09:30 and an offset of -600,
	// any call after 09:20 fetches a fresh token.
	TokenExpirationOffsetSeconds int

	// FetchTimeout bounds how long a request waits for a token before giving up.
	FetchTimeout time.Duration
}

// DefaultProviderConfig returns the production defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Environment:                  environment.Production,
		TokenExpirationOffsetSeconds: DefaultTokenExpirationOffsetSeconds,
		FetchTimeout:                 DefaultFetchTimeout,
	}
}

// AuthTokenProvider hands out access tokens. Valid cached tokens are returned without I/O; otherwise
// it tries silent acquisition and falls back to at most one interactive prompt at a time.
type AuthTokenProvider struct {
	store        IdentityStore
	scopes       []string
	loginHint    string
	fetchTimeout time.Duration
	cache        *TokenCache
	interactive  chan struct{} // one-slot semaphore guarding interactive acquisition
	now          func() time.Time
	Logger       logger.Logger
}

// NewAuthTokenProvider validates config and creates a provider backed by store.
func NewAuthTokenProvider(store IdentityStore, config ProviderConfig, log logger.Logger) (*AuthTokenProvider, error) {
	if store == nil {
		return nil, apierrors.NewConfigurationError("IdentityStore", "must not be nil")
	}
	if config.TokenExpirationOffsetSeconds >= 0 {
		return nil, apierrors.NewConfigurationError("TokenExpirationOffsetSeconds", "value must be negative, got %d", config.TokenExpirationOffsetSeconds)
	}
	if config.FetchTimeout <= 0 {
		return nil, apierrors.NewConfigurationError("FetchTimeout", "must be greater than 0, got %s", config.FetchTimeout)
	}
	scopes, err := environment.Scopes(config.Environment)
	if err != nil {
		return nil, err
	}

	return &AuthTokenProvider{
		store:        store,
		scopes:       scopes,
		loginHint:    config.LoginHint,
		fetchTimeout: config.FetchTimeout,
		cache:        NewTokenCache(time.Duration(config.TokenExpirationOffsetSeconds) * time.Second),
		interactive:  make(chan struct{}, 1),
		now:          time.Now,
		Logger:       logger.OrNop(log).Named("AuthTokenProvider"),
	}, nil
}

// FetchTimeout returns the configured bound for a single token fetch.
func (p *AuthTokenProvider) FetchTimeout() time.Duration {
	return p.fetchTimeout
}

// Cache exposes the provider's token cache.
func (p *AuthTokenProvider) Cache() *TokenCache {
	return p.cache
}

// AcquireToken returns a valid access token. Acquisition is bounded by the fetch timeout unless ctx
// already ends sooner. Failures are reported as *errors.AuthError; a cancelled
// or expired ctx yields an AuthError whose Timeout method reports true.
func (p *AuthTokenProvider) AcquireToken(ctx context.Context) (string, error) {
	if token, ok := p.cache.Lookup(p.now()); ok {
		return token, nil
	}
	if err := ctx.Err(); err != nil {
		return "", apierrors.NewAuthError("silent", err)
	}
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > p.fetchTimeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}

	account := p.resolveAccount(ctx)

	p.Logger.Debug("AcquireTokenSilent called", zap.Bool("HasAccountHint", account != nil))
	result, err := p.store.AcquireTokenSilent(ctx, p.scopes, account)
	if err == nil {
		return p.update(result, "silent")
	}
	if !errors.Is(err, ErrInteractionRequired) {
		logger.LogAuthTokenError(p.Logger, "silent", err)
		return "", apierrors.NewAuthError("silent", err)
	}

	// Reached on first start without a persisted cache, when the login hint matches no cached
	// account, or when the refresh token can no longer be redeemed.
	p.Logger.Warn("Silent token acquisition requires interaction", zap.Error(err))
	return p.acquireInteractive(ctx)
}

// resolveAccount prefers the account of the last successful acquisition and otherwise matches the
// login hint against the accounts known to the store.
func (p *AuthTokenProvider) resolveAccount(ctx context.Context) *Account {
	if account := p.cache.Account(); account != nil {
		return account
	}
	if p.loginHint == "" {
		return nil
	}
	accounts, err := p.store.Accounts(ctx)
	if err != nil {
		p.Logger.Warn("Failed to enumerate cached accounts", zap.Error(err))
		return nil
	}
	for i := range accounts {
		if accounts[i].Username == p.loginHint {
			account := accounts[i]
			return &account
		}
	}
	return nil
}

// acquireInteractive serializes interactive prompts. Every caller re-checks the cache before and
// after taking the semaphore so that only the first one actually prompts.
func (p *AuthTokenProvider) acquireInteractive(ctx context.Context) (string, error) {
	if token, ok := p.cache.Lookup(p.now()); ok {
		return token, nil
	}

	select {
	case p.interactive <- struct{}{}:
	case <-ctx.Done():
		logger.LogAuthTokenError(p.Logger, "interactive", ctx.Err())
		return "", apierrors.NewAuthError("lock", ctx.Err())
	}
	defer func() { <-p.interactive }()

	if token, ok := p.cache.Lookup(p.now()); ok {
		return token, nil
	}

	p.Logger.Info("AcquireTokenInteractive called", zap.Bool("HasLoginHint", p.loginHint != ""))
	p.Logger.Debug("Interactive sign-in account", zap.String("LoginHint", p.loginHint))
	result, err := p.store.AcquireTokenInteractive(ctx, p.scopes, p.loginHint)
	if err != nil {
		logger.LogAuthTokenError(p.Logger, "interactive", err)
		return "", apierrors.NewAuthError("interactive", err)
	}
	return p.update(result, "interactive")
}

func (p *AuthTokenProvider) update(result *AuthResult, mode string) (string, error) {
	if result == nil || result.AccessToken == "" {
		err := errors.New("identity store returned an empty access token")
		logger.LogAuthTokenError(p.Logger, mode, err)
		return "", apierrors.NewAuthError(mode, err)
	}
	p.cache.Set(result.AccessToken, result.ExpiresOn, result.Account)
	logger.LogTokenAcquired(p.Logger, mode, result.ExpiresOn)
	return result.AccessToken, nil
}
