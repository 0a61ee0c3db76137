package apiclient

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deploymenttheory/go-api-soap-client/authenticationhandler"
	"github.com/deploymenttheory/go-api-soap-client/environment"
	apierrors "github.com/deploymenttheory/go-api-soap-client/errors"
	"github.com/deploymenttheory/go-api-soap-client/mocklogger"
	"github.com/deploymenttheory/go-api-soap-client/soap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var noopFlow = authenticationhandler.InteractiveFlowFunc(func(ctx context.Context, authURL string) (string, error) {
	return "", errors.New("no interaction in tests")
})

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoadConfigFromFile tests that file values are kept and the rest defaulted.
func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, "clientconfig.json", `{
		"DeveloperToken": "dev-token",
		"CustomerID": "1",
		"ClientID": "client",
		"MaxConcurrentRequests": 4,
		"FollowRedirects": true,
		"LogOutputFormat": "console"
	}`)

	config, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "dev-token", config.DeveloperToken)
	assert.Equal(t, "1", config.CustomerID)
	assert.Equal(t, 4, config.MaxConcurrentRequests)
	assert.Equal(t, "console", config.LogOutputFormat)
	assert.Equal(t, DefaultEnvironment, config.Environment)
	assert.Equal(t, DefaultAPIVersion, config.APIVersion)
	assert.Equal(t, DefaultTokenExpirationOffsetSeconds, config.TokenExpirationOffsetSeconds)
	assert.Equal(t, DefaultTokenFetchTimeout, config.TokenFetchTimeout)
	assert.Equal(t, DefaultCustomTimeout, config.CustomTimeout)
	assert.Equal(t, DefaultMaxRedirects, config.MaxRedirects)
}

// TestLoadConfigFromFile_Errors tests the rejected paths and contents.
func TestLoadConfigFromFile_Errors(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfigFromFile(writeConfigFile(t, "clientconfig.yaml", "DeveloperToken: x"))
	assert.ErrorContains(t, err, "invalid file extension")

	_, err = LoadConfigFromFile(writeConfigFile(t, "broken.json", "{"))
	assert.ErrorContains(t, err, "could not unmarshal JSON")
}

// TestLoadConfigFromEnv tests that set variables override the base config and unset ones keep it.
func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BINGADS_DEVELOPER_TOKEN", "env-token")
	t.Setenv("BINGADS_ACCOUNT_ID", "22")
	t.Setenv("TOKEN_EXPIRATION_OFFSET_SECONDS", "-120")
	t.Setenv("TOKEN_FETCH_TIMEOUT", "90s")
	t.Setenv("MAX_CONCURRENT_REQUESTS", "3")
	t.Setenv("HIDE_SENSITIVE_DATA", "true")
	t.Setenv("ALLOW_COOKIES", "true")
	t.Setenv("PROXY_URL", "http://proxy.local:3128")

	config, err := LoadConfigFromEnv(&ClientConfig{
		DeveloperToken: "file-token",
		CustomerID:     "11",
		ClientID:       "client",
	})
	require.NoError(t, err)

	assert.Equal(t, "env-token", config.DeveloperToken)
	assert.Equal(t, "11", config.CustomerID)
	assert.Equal(t, "22", config.CustomerAccountID)
	assert.Equal(t, "client", config.ClientID)
	assert.Equal(t, -120, config.TokenExpirationOffsetSeconds)
	assert.Equal(t, 90*time.Second, config.TokenFetchTimeout)
	assert.Equal(t, 3, config.MaxConcurrentRequests)
	assert.True(t, config.HideSensitiveData)
	assert.True(t, config.AllowCookies)
	assert.Equal(t, "http://proxy.local:3128", config.ProxyURL)
	assert.Equal(t, DefaultLogLevelString, config.LogLevel)
}

// TestLoadConfigFromEnv_NilConfig tests starting from an empty config with malformed numbers.
func TestLoadConfigFromEnv_NilConfig(t *testing.T) {
	t.Setenv("CUSTOM_TIMEOUT", "soon")
	t.Setenv("MAX_REDIRECTS", "many")

	config, err := LoadConfigFromEnv(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultCustomTimeout, config.CustomTimeout)
	assert.Zero(t, config.MaxRedirects)
}

// TestValidateClientConfig tests each rejected field.
func TestValidateClientConfig(t *testing.T) {
	valid := ClientConfig{DeveloperToken: "dev", ClientID: "client"}
	require.NoError(t, validateClientConfig(valid, true))

	tests := []struct {
		name   string
		mutate func(c *ClientConfig)
		field  string
	}{
		{"blank developer token", func(c *ClientConfig) { c.DeveloperToken = " " }, "DeveloperToken"},
		{"blank client id", func(c *ClientConfig) { c.ClientID = "" }, "ClientID"},
		{"positive offset", func(c *ClientConfig) { c.TokenExpirationOffsetSeconds = 30 }, "TokenExpirationOffsetSeconds"},
		{"negative fetch timeout", func(c *ClientConfig) { c.TokenFetchTimeout = -time.Second }, "TokenFetchTimeout"},
		{"negative custom timeout", func(c *ClientConfig) { c.CustomTimeout = -time.Second }, "CustomTimeout"},
		{"negative concurrency", func(c *ClientConfig) { c.MaxConcurrentRequests = -1 }, "MaxConcurrentRequests"},
		{"unknown environment", func(c *ClientConfig) { c.Environment = "Mars" }, "Environment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)

			err := validateClientConfig(config, true)

			var configErr *apierrors.ConfigurationError
			require.True(t, errors.As(err, &configErr), "got %v", err)
			assert.Equal(t, tt.field, configErr.Field)
		})
	}

	redirects := valid
	redirects.FollowRedirects = true
	redirects.MaxRedirects = 0
	err := validateClientConfig(redirects, false)
	var configErr *apierrors.ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "MaxRedirects", configErr.Field)
}

// TestBuildClientFactory tests the wiring from config to a factory with the configured binding.
func TestBuildClientFactory(t *testing.T) {
	log := mocklogger.NewMockLogger()
	log.On("Info", "Client factory built", mock.Anything).Once()
	log.AllowAll()

	config := ClientConfig{
		DeveloperToken:          "dev-token",
		CustomerID:              "1",
		ClientID:                "client",
		TokenCacheCorrelationID: "probe",
		TokenCacheLocation:      t.TempDir(),
		MaxConcurrentRequests:   2,
		FollowRedirects:         true,
		ProxyURL:                "http://proxy.local:3128",
	}
	SetDefaultValuesClientConfig(&config)

	factory, err := BuildClientFactoryWithLogger(context.Background(), config, noopFlow, log)
	require.NoError(t, err)

	assert.Equal(t, "dev-token", factory.Template().DeveloperToken)
	assert.Equal(t, &soap.Binding{
		Timeout:                DefaultCustomTimeout,
		MaxReceivedMessageSize: DefaultMaxReceivedMessageSize,
		MaxConcurrentCalls:     2,
		FollowRedirects:        true,
		MaxRedirects:           DefaultMaxRedirects,
		ProxyURL:               "http://proxy.local:3128",
	}, factory.Binding)
	provider, ok := factory.tokens.(*authenticationhandler.AuthTokenProvider)
	require.True(t, ok)
	assert.Equal(t, DefaultTokenFetchTimeout, provider.FetchTimeout())

	client, err := factory.CreateClient(environment.CustomerManagement, nil)
	require.NoError(t, err)
	assert.NoError(t, client.Close())
	log.AssertExpectations(t)
}

// TestBuildClientFactory_InvalidConfig tests that validation runs before anything is built.
func TestBuildClientFactory_InvalidConfig(t *testing.T) {
	_, err := BuildClientFactory(context.Background(), ClientConfig{DeveloperToken: "dev"}, noopFlow)

	var configErr *apierrors.ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "ClientID", configErr.Field)

	_, err = BuildClientFactory(context.Background(), ClientConfig{DeveloperToken: "dev", ClientID: "client"}, nil)
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "InteractiveFlow", configErr.Field)
}
