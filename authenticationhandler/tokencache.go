// authenticationhandler/tokencache.go
package authenticationhandler

import (
	"sync/atomic"
	"time"
)

// cachedToken is immutable once stored; TokenCache replaces it as a whole.
type cachedToken struct {
	token     string
	expiresOn time.Time
	account   *Account
}

// TokenCache holds the most recently acquired token and answers validity queries against a
// safety offset. Reads are lock-free; writes replace the whole entry atomically.
type TokenCache struct {
	offset  time.Duration // offset is negative: the margin before expiry at which a token stops being usable.
	current atomic.Pointer[cachedToken]
}

// NewTokenCache creates an empty cache using offset as the expiry safety margin.
func NewTokenCache(offset time.Duration) *TokenCache {
	return &TokenCache{offset: offset}
}

// IsValid reports whether a token is held and now is strictly before expiresOn+offset.
func (c *TokenCache) IsValid(now time.Time) bool {
	_, ok := c.Lookup(now)
	return ok
}

// Lookup returns the cached token when it is valid at now.
func (c *TokenCache) Lookup(now time.Time) (string, bool) {
	entry := c.current.Load()
	if entry == nil || entry.token == "" {
		return "", false
	}
	if !now.Before(entry.expiresOn.Add(c.offset)) {
		return "", false
	}
	return entry.token, true
}

// Get returns the cached token regardless of its validity.
func (c *TokenCache) Get() (string, bool) {
	entry := c.current.Load()
	if entry == nil {
		return "", false
	}
	return entry.token, true
}

// ExpiresOn returns the expiry of the cached token, or the zero time when empty.
func (c *TokenCache) ExpiresOn() time.Time {
	if entry := c.current.Load(); entry != nil {
		return entry.expiresOn
	}
	return time.Time{}
}

// Account returns the account of the last successful acquisition.
func (c *TokenCache) Account() *Account {
	if entry := c.current.Load(); entry != nil {
		return entry.account
	}
	return nil
}

// Set replaces the cached entry.
func (c *TokenCache) Set(token string, expiresOn time.Time, account *Account) {
	c.current.Store(&cachedToken{token: token, expiresOn: expiresOn, account: account})
}
