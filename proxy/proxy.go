// proxy.go

package proxy

import (
	"net/http"
	"net/url"

	"github.com/deploymenttheory/go-api-soap-client/logger"
	"go.uber.org/zap"
)

// ConfigureTransport routes transport through proxyURL. Username and password, when both are set, are sent
// as proxy basic authentication. An empty proxyURL leaves transport untouched.
func ConfigureTransport(transport *http.Transport, proxyURL, proxyUsername, proxyPassword string, log logger.Logger) error {
	if proxyURL == "" {
		return nil
	}
	log = logger.OrNop(log)

	parsedProxyURL, err := url.Parse(proxyURL)
	if err != nil {
		log.Error("Failed to parse proxy URL", zap.Error(err))
		return err
	}

	if proxyUsername != "" && proxyPassword != "" {
		parsedProxyURL.User = url.UserPassword(proxyUsername, proxyPassword)
	}
	transport.Proxy = http.ProxyURL(parsedProxyURL)

	log.Info("Proxy configured", zap.String("ProxyURL", parsedProxyURL.Redacted()))
	return nil
}
