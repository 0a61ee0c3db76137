// authenticationhandler/oauth2store.go
package authenticationhandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/deploymenttheory/go-api-soap-client/environment"
	apierrors "github.com/deploymenttheory/go-api-soap-client/errors"
	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// minCachedLifetime is the remaining lifetime below which a stored access token is refreshed
// instead of being handed out again.
const minCachedLifetime = 5 * time.Minute

// Authority error codes that mean the user has to sign in again.
var interactionErrorCodes = map[string]bool{
	"invalid_grant":        true,
	"interaction_required": true,
	"login_required":       true,
	"consent_required":     true,
}

// OAuth2StoreConfig configures an OAuth2IdentityStore.
type OAuth2StoreConfig struct {
	ClientID    string                  // ClientID is the application (client) id registered with the authority. Required.
	Environment environment.Environment // Environment supplies the authorization endpoint and redirect URI.
	RedirectURI string                  // RedirectURI overrides the environment redirect URI.
	Endpoint    *oauth2.Endpoint        // Endpoint overrides the environment authorization endpoint.
	HTTPClient  *http.Client            // HTTPClient is used for token requests; http.DefaultClient when nil.
	Persistence TokenPersistence        // Persistence keeps tokens across restarts; nil disables it.
}

// OAuth2IdentityStore is an IdentityStore for a public client on an OAuth2 authority. Silent acquisition
// redeems the account's refresh token; interactive acquisition runs authorization code with PKCE.
type OAuth2IdentityStore struct {
	clientID    string
	redirectURI string
	endpoint    oauth2.Endpoint
	httpClient  *http.Client
	flow        InteractiveFlow
	persistence TokenPersistence

	mu      sync.Mutex
	entries map[string]*SnapshotEntry

	now    func() time.Time
	Logger logger.Logger
}

// NewOAuth2IdentityStore creates the store and restores any persisted tokens. A persisted cache that
// cannot be read is logged and ignored.
func NewOAuth2IdentityStore(ctx context.Context, config OAuth2StoreConfig, flow InteractiveFlow, log logger.Logger) (*OAuth2IdentityStore, error) {
	if config.ClientID == "" {
		return nil, apierrors.NewConfigurationError("ClientID", "must not be blank")
	}
	if flow == nil {
		return nil, apierrors.NewConfigurationError("InteractiveFlow", "must not be nil")
	}
	settings, err := environment.Lookup(config.Environment)
	if err != nil {
		return nil, err
	}

	endpoint := settings.AuthEndpoint
	if config.Endpoint != nil {
		endpoint = *config.Endpoint
	}
	// Public clients have no secret; the client id travels in the form body.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	redirectURI := settings.RedirectURI
	if config.RedirectURI != "" {
		redirectURI = config.RedirectURI
	}

	s := &OAuth2IdentityStore{
		clientID:    config.ClientID,
		redirectURI: redirectURI,
		endpoint:    endpoint,
		httpClient:  config.HTTPClient,
		flow:        flow,
		persistence: config.Persistence,
		entries:     map[string]*SnapshotEntry{},
		now:         time.Now,
		Logger:      logger.OrNop(log).Named("OAuth2IdentityStore"),
	}
	s.restore(ctx)
	return s, nil
}

// Accounts lists the cached accounts ordered by username.
func (s *OAuth2IdentityStore) Accounts(ctx context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := make([]Account, 0, len(s.entries))
	for _, entry := range s.entries {
		accounts = append(accounts, entry.Account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Username < accounts[j].Username })
	return accounts, nil
}

// AcquireTokenSilent returns the stored access token while it has enough lifetime left and otherwise
// redeems the stored refresh token.
func (s *OAuth2IdentityStore) AcquireTokenSilent(ctx context.Context, scopes []string, account *Account) (*AuthResult, error) {
	if account == nil {
		return nil, fmt.Errorf("%w: no account to acquire a token for", ErrInteractionRequired)
	}
	entry := s.lookup(account)
	if entry == nil || entry.Token == nil {
		return nil, fmt.Errorf("%w: account %q is not cached", ErrInteractionRequired, account.Username)
	}
	if entry.Token.AccessToken != "" && entry.Token.Expiry.Sub(s.now()) > minCachedLifetime {
		return &AuthResult{AccessToken: entry.Token.AccessToken, ExpiresOn: entry.Token.Expiry, Account: &entry.Account}, nil
	}
	if entry.Token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token for account %q", ErrInteractionRequired, account.Username)
	}

	s.Logger.Debug("Redeeming refresh token", zap.String("Username", entry.Account.Username))
	source := s.oauthConfig(scopes).TokenSource(s.httpContext(ctx), &oauth2.Token{RefreshToken: entry.Token.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, classifyTokenError(err)
	}
	// Authorities may omit the refresh token on renewal; keep the one we had.
	if token.RefreshToken == "" {
		token.RefreshToken = entry.Token.RefreshToken
	}
	return s.remember(ctx, entry.Account, token), nil
}

// AcquireTokenInteractive runs the authorization-code flow with PKCE through the configured InteractiveFlow.
func (s *OAuth2IdentityStore) AcquireTokenInteractive(ctx context.Context, scopes []string, loginHint string) (*AuthResult, error) {
	config := s.oauthConfig(scopes)
	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	options := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if loginHint != "" {
		options = append(options, oauth2.SetAuthURLParam("login_hint", loginHint))
	}
	authURL := config.AuthCodeURL(state, options...)

	s.Logger.Info("Waiting for interactive sign-in", zap.String("LoginHint", loginHint))
	redirected, err := s.flow.Authorize(ctx, authURL)
	if err != nil {
		return nil, err
	}
	code, err := authorizationCode(redirected, state)
	if err != nil {
		return nil, err
	}

	token, err := config.Exchange(s.httpContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return s.remember(ctx, accountFromToken(token, loginHint), token), nil
}

func (s *OAuth2IdentityStore) oauthConfig(scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    s.clientID,
		Endpoint:    s.endpoint,
		RedirectURL: s.redirectURI,
		Scopes:      withIdentityScopes(scopes),
	}
}

func (s *OAuth2IdentityStore) httpContext(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func (s *OAuth2IdentityStore) lookup(account *Account) *SnapshotEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[accountKey(*account)]; ok {
		return entry
	}
	for _, entry := range s.entries {
		if entry.Account.Username == account.Username {
			return entry
		}
	}
	return nil
}

// remember stores token for account and persists the cache. Persistence failures are logged only.
func (s *OAuth2IdentityStore) remember(ctx context.Context, account Account, token *oauth2.Token) *AuthResult {
	s.mu.Lock()
	entry := &SnapshotEntry{Account: account, Token: token}
	s.entries[accountKey(account)] = entry
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if s.persistence != nil {
		if err := s.persistence.Save(ctx, snapshot); err != nil {
			s.Logger.Warn("Failed to persist token cache", zap.Error(err))
		}
	}
	return &AuthResult{AccessToken: token.AccessToken, ExpiresOn: token.Expiry, Account: &entry.Account}
}

func (s *OAuth2IdentityStore) snapshotLocked() *Snapshot {
	snapshot := &Snapshot{SavedAt: s.now()}
	for _, entry := range s.entries {
		snapshot.Entries = append(snapshot.Entries, *entry)
	}
	sort.Slice(snapshot.Entries, func(i, j int) bool {
		return snapshot.Entries[i].Account.Username < snapshot.Entries[j].Account.Username
	})
	return snapshot
}

func (s *OAuth2IdentityStore) restore(ctx context.Context) {
	if s.persistence == nil {
		return
	}
	snapshot, err := s.persistence.Load(ctx)
	if err != nil {
		s.Logger.Warn("Failed to load persisted token cache", zap.Error(err))
		return
	}
	if snapshot == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range snapshot.Entries {
		entry := snapshot.Entries[i]
		s.entries[accountKey(entry.Account)] = &entry
	}
	s.Logger.Debug("Restored persisted token cache", zap.Int("Accounts", len(snapshot.Entries)))
}

func accountKey(account Account) string {
	if account.HomeAccountID != "" {
		return account.HomeAccountID
	}
	return account.Username
}

func withIdentityScopes(scopes []string) []string {
	result := append([]string(nil), scopes...)
	for _, scope := range []string{"openid", "profile"} {
		found := false
		for _, existing := range result {
			if existing == scope {
				found = true
				break
			}
		}
		if !found {
			result = append(result, scope)
		}
	}
	return result
}

// classifyTokenError maps authority errors that need a new sign-in onto ErrInteractionRequired.
func classifyTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && interactionErrorCodes[retrieveErr.ErrorCode] {
		return fmt.Errorf("%w: %s: %s", ErrInteractionRequired, retrieveErr.ErrorCode, retrieveErr.ErrorDescription)
	}
	return fmt.Errorf("failed to redeem refresh token: %w", err)
}

// authorizationCode extracts the code from the redirect URL after checking state.
func authorizationCode(redirected string, state string) (string, error) {
	parsed, err := url.Parse(redirected)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}
	query := parsed.Query()
	if code := query.Get("error"); code != "" {
		return "", fmt.Errorf("authorization failed: %s: %s", code, query.Get("error_description"))
	}
	if query.Get("state") != state {
		return "", errors.New("authorization failed: state mismatch")
	}
	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("missing code in redirect URL %v", redirected)
	}
	return code, nil
}

// accountFromToken reads the signed-in account from the id_token claims without verifying the signature,
// falling back to the login hint.
func accountFromToken(token *oauth2.Token, loginHint string) Account {
	account := Account{Username: loginHint}
	raw, _ := token.Extra("id_token").(string)
	if raw == "" {
		return account
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return account
	}
	for _, name := range []string{"preferred_username", "upn", "email"} {
		if value, _ := claims[name].(string); value != "" {
			account.Username = value
			break
		}
	}
	oid, _ := claims["oid"].(string)
	tid, _ := claims["tid"].(string)
	switch {
	case oid != "" && tid != "":
		account.HomeAccountID = oid + "." + tid
	case oid != "":
		account.HomeAccountID = oid
	default:
		account.HomeAccountID, _ = claims["sub"].(string)
	}
	return account
}
