// headers/headers.go
package headers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/deploymenttheory/go-api-soap-client/headers/redact"
	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/deploymenttheory/go-api-soap-client/version"
	"go.uber.org/zap"
)

// SOAP 1.1 content type of request envelopes.
const ContentTypeSOAP11 = "text/xml; charset=utf-8"

// HeaderHandler is responsible for managing and setting the HTTP headers of SOAP requests.
type HeaderHandler struct {
	req *http.Request // The http.Request for which headers are being managed
	log logger.Logger // The logger to use for logging headers
}

// NewHeaderHandler creates a new instance of HeaderHandler for a given http.Request and logger.
func NewHeaderHandler(req *http.Request, log logger.Logger) *HeaderHandler {
	return &HeaderHandler{
		req: req,
		log: logger.OrNop(log),
	}
}

// SetContentType sets the Content-Type header for the request.
func (h *HeaderHandler) SetContentType(contentType string) {
	h.req.Header.Set("Content-Type", contentType)
}

// SetAccept sets the Accept header for the request.
func (h *HeaderHandler) SetAccept(acceptHeader string) {
	h.req.Header.Set("Accept", acceptHeader)
}

// SetUserAgent sets the User-Agent header for the request.
func (h *HeaderHandler) SetUserAgent(userAgent string) {
	h.req.Header.Set("User-Agent", userAgent)
}

// SetSOAPAction sets the SOAPAction header. SOAP 1.1 requires the value to be quoted.
func (h *HeaderHandler) SetSOAPAction(action string) {
	h.req.Header.Set("SOAPAction", `"`+strings.Trim(action, `"`)+`"`)
}

// SetRequestHeaders sets every HTTP header a SOAP 1.1 call needs.
func (h *HeaderHandler) SetRequestHeaders(action string) {
	h.SetContentType(ContentTypeSOAP11)
	h.SetAccept("text/xml")
	h.SetUserAgent(version.GetUserAgentHeader())
	h.SetSOAPAction(action)
}

// LogHeaders prints all the current headers in the http.Request using the zap logger.
// It uses the RedactSensitiveHeaderData function to redact sensitive data based on the hideSensitiveData flag.
func (h *HeaderHandler) LogHeaders(hideSensitiveData bool) {
	if h.log.GetLogLevel() <= logger.LogLevelDebug {
		redactedHeaders := http.Header{}
		for name, values := range h.req.Header {
			if len(values) > 0 {
				redactedHeaders.Set(name, RedactSensitiveHeaderData(hideSensitiveData, name, values[0]))
			}
		}
		h.log.Debug("HTTP Request Headers", zap.String("Headers", HeadersToString(redactedHeaders)))
	}
}

// HeadersToString converts a http.Header to a string for logging,
// with each header on a new line in name order.
func HeadersToString(headers http.Header) string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	headerStrings := make([]string, 0, len(names))
	for _, name := range names {
		headerStrings = append(headerStrings, fmt.Sprintf("%s: %s", name, strings.Join(headers[name], ", ")))
	}
	return strings.Join(headerStrings, "\n")
}

// CheckDeprecationHeader checks the response headers for the Deprecation header and logs a warning if present.
func CheckDeprecationHeader(resp *http.Response, log logger.Logger) {
	deprecationHeader := resp.Header.Get("Deprecation")
	if deprecationHeader != "" {
		endpoint := ""
		if resp.Request != nil && resp.Request.URL != nil {
			endpoint = resp.Request.URL.String()
		}
		logger.OrNop(log).Warn("API endpoint is deprecated",
			zap.String("Date", deprecationHeader),
			zap.String("Endpoint", endpoint),
		)
	}
}

// RedactSensitiveHeaderData redacts sensitive data based on the hideSensitiveData flag.
func RedactSensitiveHeaderData(hideSensitiveData bool, key, value string) string {
	return redact.RedactSensitiveHeaderData(hideSensitiveData, key, value)
}
