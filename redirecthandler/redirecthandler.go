/* Package redirecthandler applies the redirect policy of SOAP channels. SOAP calls are POSTs whose envelope
carries the developer and authentication tokens, so a redirect is only followed when it keeps the method and
body (307/308) and stays on the same host. Everything else is handed back as the last response and surfaces
as a fault. */
package redirecthandler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/deploymenttheory/go-api-soap-client/status"
	"go.uber.org/zap"
)

// RedirectHandler contains configurations for handling HTTP redirects.
type RedirectHandler struct {
	Logger           logger.Logger // Logger instance for logging.
	MaxRedirects     int           // Maximum allowed redirects to prevent infinite loops.
	SensitiveHeaders []string      // Headers removed before any redirect is followed.
}

// NewRedirectHandler creates a new instance of RedirectHandler.
func NewRedirectHandler(log logger.Logger, maxRedirects int) *RedirectHandler {
	return &RedirectHandler{
		Logger:           logger.OrNop(log),
		MaxRedirects:     maxRedirects,
		SensitiveHeaders: []string{"Authorization", "Cookie", "Proxy-Authorization"},
	}
}

// AddSensitiveHeader allows adding configurable sensitive headers.
func (r *RedirectHandler) AddSensitiveHeader(header string) {
	r.SensitiveHeaders = append(r.SensitiveHeaders, header)
}

// WithRedirectHandling applies the redirect handling policy to an http.Client.
func (r *RedirectHandler) WithRedirectHandling(client *http.Client) {
	client.CheckRedirect = r.checkRedirect
}

// checkRedirect implements the redirect handling logic.
func (r *RedirectHandler) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) == 0 {
		return nil
	}
	previous := via[len(via)-1]

	if previous.Response != nil && !status.IsMethodPreservingRedirect(previous.Response.StatusCode) {
		r.Logger.Warn("Redirect would change the method of a SOAP call, not following",
			zap.Int("StatusCode", previous.Response.StatusCode),
			zap.String("Location", req.URL.String()),
		)
		return http.ErrUseLastResponse
	}

	if req.URL.Host != previous.URL.Host {
		r.Logger.Warn("Cross-host redirect refused", zap.String("From", previous.URL.Host), zap.String("To", req.URL.Host))
		return &CrossHostRedirectError{From: previous.URL.Host, To: req.URL.Host}
	}

	history := make([]*url.URL, 0, len(via)+1)
	for _, v := range via {
		history = append(history, v.URL)
	}
	history = append(history, req.URL)
	if hasLoop(history) {
		r.Logger.Error("Redirect loop detected", zap.String("URL", req.URL.String()))
		return &RedirectLoopError{URL: req.URL.String()}
	}

	if len(via) > r.MaxRedirects {
		r.Logger.Warn("Maximum redirects reached", zap.Int("MaxRedirects", r.MaxRedirects))
		return &MaxRedirectsError{MaxRedirects: r.MaxRedirects}
	}

	for _, header := range r.SensitiveHeaders {
		req.Header.Del(header)
	}
	if previous.Response != nil && status.IsPermanentRedirect(previous.Response.StatusCode) {
		r.Logger.Warn("Endpoint moved permanently, update the endpoint table",
			zap.String("From", previous.URL.String()),
			zap.String("To", req.URL.String()),
		)
	}
	r.Logger.Info("Redirecting request", zap.String("NewURL", req.URL.String()), zap.Int("RedirectCount", len(via)))
	return nil
}

// RedirectLoopError represents an error when a redirect loop is detected.
type RedirectLoopError struct {
	URL string
}

// RedirectLoopError defines an error for when a redirect loop is detected.
func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("redirect loop detected at %s", e.URL)
}

// MaxRedirectsError represents an error when the maximum number of redirects is reached.
type MaxRedirectsError struct {
	MaxRedirects int
}

// MaxRedirectsError defines an error for when the maximum number of redirects is reached.
func (e *MaxRedirectsError) Error() string {
	return fmt.Sprintf("maximum redirects reached: %d", e.MaxRedirects)
}

// CrossHostRedirectError is returned when a redirect points at another host.
type CrossHostRedirectError struct {
	From string
	To   string
}

func (e *CrossHostRedirectError) Error() string {
	return fmt.Sprintf("refusing cross-host redirect from %s to %s", e.From, e.To)
}

// hasLoop checks if there's a loop in the redirect history.
func hasLoop(history []*url.URL) bool {
	urlSet := make(map[string]struct{})
	for _, u := range history {
		if _, exists := urlSet[u.String()]; exists {
			return true
		}
		urlSet[u.String()] = struct{}{}
	}
	return false
}

// SetupRedirectHandler configures the redirect policy of client. With followRedirects false every redirect
// is returned to the caller unfollowed.
func SetupRedirectHandler(client *http.Client, followRedirects bool, maxRedirects int, log logger.Logger) error {
	log = logger.OrNop(log)
	if !followRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		return nil
	}
	if maxRedirects < 1 {
		log.Error("Invalid maxRedirects value", zap.Int("maxRedirects", maxRedirects))
		return fmt.Errorf("invalid maxRedirects value: %d", maxRedirects)
	}

	NewRedirectHandler(log, maxRedirects).WithRedirectHandling(client)
	log.Debug("Redirect handling enabled", zap.Int("MaxRedirects", maxRedirects))
	return nil
}
