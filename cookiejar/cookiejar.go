// cookiejar/cookiejar.go

/* Package cookiejar gives the factory-owned HTTP client of a binding an optional cookie jar, for
services that pin a caller to a backend with affinity or session cookies, and helps log reply cookies
without leaking session values. */
package cookiejar

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/deploymenttheory/go-api-soap-client/logger"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// SensitiveCookieNames lists cookies whose values are replaced before logging.
var SensitiveCookieNames = map[string]bool{
	"ASP.NET_SessionId":  true,
	".AspNet.Cookies":    true,
	"ESTSAUTH":           true,
	"ESTSAUTHPERSISTENT": true,
}

// SetupCookieJar gives client a cookie jar scoped by the public suffix list when enabled.
func SetupCookieJar(client *http.Client, enableCookieJar bool, log logger.Logger) error {
	if !enableCookieJar {
		return nil
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return log.Error("Failed to create cookie jar", zap.Error(err))
	}
	client.Jar = jar
	log.Debug("Cookie jar enabled")
	return nil
}

// RedactSensitiveCookies replaces the values of sensitive cookies in place and returns cookies.
func RedactSensitiveCookies(cookies []*http.Cookie) []*http.Cookie {
	for _, cookie := range cookies {
		if SensitiveCookieNames[cookie.Name] {
			cookie.Value = "REDACTED"
		}
	}
	return cookies
}

// CookiesFromHeader parses the Set-Cookie lines of header.
func CookiesFromHeader(header http.Header) []*http.Cookie {
	cookies := []*http.Cookie{}
	for _, cookieHeader := range header["Set-Cookie"] {
		if cookie := ParseCookieHeader(cookieHeader); cookie != nil {
			cookies = append(cookies, cookie)
		}
	}
	return cookies
}

// ParseCookieHeader parses the name and value of a single Set-Cookie line, ignoring its attributes.
func ParseCookieHeader(header string) *http.Cookie {
	name, value, ok := strings.Cut(strings.SplitN(header, ";", 2)[0], "=")
	if !ok {
		return nil
	}
	return &http.Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}
}

// LogReplyCookies logs the cookies set by a reply at debug level, redacted when hide is true.
func LogReplyCookies(header http.Header, hide bool, log logger.Logger) {
	cookies := CookiesFromHeader(header)
	if len(cookies) == 0 {
		return
	}
	if hide {
		RedactSensitiveCookies(cookies)
	}
	fields := make([]zap.Field, 0, len(cookies))
	for _, cookie := range cookies {
		fields = append(fields, zap.String(cookie.Name, cookie.Value))
	}
	log.Debug(fmt.Sprintf("Reply set %d cookie(s)", len(cookies)), fields...)
}
