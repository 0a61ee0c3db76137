// status.go
// This package classifies the HTTP status codes a SOAP endpoint or an intermediary in front of it may return.
package status

import (
	"net/http"
)

// IsRedirectStatusCode checks if the provided HTTP status code is one of the redirect codes.
// Redirect status codes instruct the client to make a new request to a different URI, as defined in the response's Location header.
//
// - 301 Moved Permanently and 308 Permanent Redirect: the resource has a new permanent URI.
// - 302 Found and 307 Temporary Redirect: the resource resides temporarily under a different URI.
// - 303 See Other: the response can be found under a different URI and should be retrieved using GET.
func IsRedirectStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// IsPermanentRedirect checks if the provided HTTP status code is one of the permanent redirect codes.
func IsPermanentRedirect(statusCode int) bool {
	switch statusCode {
	case http.StatusMovedPermanently,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// IsMethodPreservingRedirect reports whether a client following the redirect must repeat the request with the
// same method and body. Only these redirects can carry a SOAP POST to its new location.
func IsMethodPreservingRedirect(statusCode int) bool {
	return statusCode == http.StatusTemporaryRedirect || statusCode == http.StatusPermanentRedirect
}

// IsRetryableStatusCode checks if the provided HTTP status code is considered retryable.
// 500 is excluded: SOAP faults travel as 500 and carry their own error codes.
func IsRetryableStatusCode(statusCode int) bool {
	retryableStatusCodes := map[int]bool{
		http.StatusRequestTimeout:     true,
		http.StatusTooManyRequests:    true,
		http.StatusBadGateway:         true,
		http.StatusServiceUnavailable: true,
		http.StatusGatewayTimeout:     true,
	}

	return retryableStatusCodes[statusCode]
}
