// soap/binding.go
package soap

import (
	"math"
	"net/http"
	"time"
)

const (
	DefaultTimeout                = 60 * time.Second
	DefaultMaxReceivedMessageSize = math.MaxInt32
)

// Binding holds the transport settings shared by the channels of a factory.
type Binding struct {
	HTTPClient             *http.Client  // HTTPClient sends the calls; a factory-owned client is used when nil.
	Timeout                time.Duration // Timeout bounds a single call including reading the reply.
	MaxReceivedMessageSize int64         // MaxReceivedMessageSize caps the size of a reply body in bytes.
	MaxConcurrentCalls     int           // MaxConcurrentCalls caps the calls in flight per factory; 0 means no limit.

	// The settings below only apply to the factory-owned client.
	AllowCookies    bool // AllowCookies keeps cookies set by the service across calls.
	FollowRedirects bool
	MaxRedirects    int
	ProxyURL        string
	ProxyUsername   string
	ProxyPassword   string
}

// DefaultBinding returns an HTTPS binding accepting replies of any practical size.
func DefaultBinding() *Binding {
	return &Binding{
		Timeout:                DefaultTimeout,
		MaxReceivedMessageSize: DefaultMaxReceivedMessageSize,
	}
}

// withDefaults fills unset fields without touching b.
func (b *Binding) withDefaults() Binding {
	out := *DefaultBinding()
	if b == nil {
		return out
	}
	out.HTTPClient = b.HTTPClient
	out.MaxConcurrentCalls = b.MaxConcurrentCalls
	out.AllowCookies = b.AllowCookies
	out.FollowRedirects = b.FollowRedirects
	out.MaxRedirects = b.MaxRedirects
	out.ProxyURL = b.ProxyURL
	out.ProxyUsername = b.ProxyUsername
	out.ProxyPassword = b.ProxyPassword
	if b.Timeout > 0 {
		out.Timeout = b.Timeout
	}
	if b.MaxReceivedMessageSize > 0 {
		// The reader asks for one byte past the cap to detect oversized replies.
		out.MaxReceivedMessageSize = min(b.MaxReceivedMessageSize, math.MaxInt64-1)
	}
	return out
}
