package proxy

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/deploymenttheory/go-api-soap-client/mocklogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureTransport(t *testing.T) {
	target := &http.Request{URL: &url.URL{Scheme: "https", Host: "campaign.api.bingads.microsoft.com"}}

	t.Run("NoProxy", func(t *testing.T) {
		transport := &http.Transport{}
		require.NoError(t, ConfigureTransport(transport, "", "", "", nil))
		assert.Nil(t, transport.Proxy)
	})

	t.Run("WithCredentials", func(t *testing.T) {
		transport := &http.Transport{}
		require.NoError(t, ConfigureTransport(transport, "http://proxy.local:3128", "user", "secret", mocklogger.NewMockLogger().AllowAll()))

		proxyURL, err := transport.Proxy(target)
		require.NoError(t, err)
		assert.Equal(t, "proxy.local:3128", proxyURL.Host)
		password, _ := proxyURL.User.Password()
		assert.Equal(t, "user", proxyURL.User.Username())
		assert.Equal(t, "secret", password)
	})

	t.Run("InvalidURL", func(t *testing.T) {
		transport := &http.Transport{}
		assert.Error(t, ConfigureTransport(transport, "://bad", "", "", mocklogger.NewMockLogger().AllowAll()))
		assert.Nil(t, transport.Proxy)
	})
}
