// apiclient/config.go
// Description: This file contains functions to load, default and validate the client configuration from a
// JSON file or environment variables, and to build a ready to use ClientFactory from it.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/deploymenttheory/go-api-soap-client/authenticationhandler"
	"github.com/deploymenttheory/go-api-soap-client/environment"
	apierrors "github.com/deploymenttheory/go-api-soap-client/errors"
	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/deploymenttheory/go-api-soap-client/soap"
	"go.uber.org/zap"
)

const (
	DefaultEnvironment                  = string(environment.Production)
	DefaultAPIVersion                   = string(environment.V13)
	DefaultLogLevelString               = "LogLevelInfo"
	DefaultLogOutputFormatString        = "json"
	DefaultLogConsoleSeparator          = "	"
	DefaultTokenCacheLocation           = "."
	DefaultTokenExpirationOffsetSeconds = authenticationhandler.DefaultTokenExpirationOffsetSeconds
	DefaultTokenFetchTimeout            = authenticationhandler.DefaultFetchTimeout
	DefaultCustomTimeout                = soap.DefaultTimeout
	DefaultMaxReceivedMessageSize       = int64(soap.DefaultMaxReceivedMessageSize)
	DefaultMaxRedirects                 = 5
)

// ClientConfig is the complete configuration of a client factory and its token provider.
type ClientConfig struct {
	// Credentials
	DeveloperToken    string
	CustomerID        string
	CustomerAccountID string
	ClientID          string // ClientID is the application id registered with the identity authority.
	LoginHint         string // LoginHint is the username whose cached token is used.

	// Target
	Environment string
	APIVersion  string

	// Token
	TokenCacheCorrelationID      string // TokenCacheCorrelationID keys the persisted token cache; empty disables persistence.
	TokenCacheLocation           string
	TokenExpirationOffsetSeconds int // TokenExpirationOffsetSeconds must be negative.
	TokenFetchTimeout            time.Duration

	// Transport
	CustomTimeout          time.Duration
	MaxReceivedMessageSize int64
	MaxConcurrentRequests  int // MaxConcurrentRequests caps in-flight calls per service client; 0 means no limit.
	AllowCookies           bool
	FollowRedirects        bool
	MaxRedirects           int
	ProxyURL               string
	ProxyUsername          string
	ProxyPassword          string

	// Log
	LogLevel            string
	LogOutputFormat     string // Output format of the logs. Use "json" for JSON format, "console" for human-readable format
	LogConsoleSeparator string
	HideSensitiveData   bool
}

// LoadConfigFromFile loads the client configuration from a JSON file and fills in defaults.
func LoadConfigFromFile(filepath string) (*ClientConfig, error) {
	absPath, err := validateFilePath(filepath)
	if err != nil {
		return nil, fmt.Errorf("invalid file path: %v", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %v", err)
	}
	defer file.Close()

	byteValue, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("could not read file: %v", err)
	}

	var config ClientConfig
	err = json.Unmarshal(byteValue, &config)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal JSON: %v", err)
	}

	SetDefaultValuesClientConfig(&config)

	return &config, nil
}

// LoadConfigFromEnv overlays environment variables on config. Each variable that is set replaces the
// corresponding field; unset variables keep the existing value. A nil config starts from an empty one.
// Defaults are applied last.
func LoadConfigFromEnv(config *ClientConfig) (*ClientConfig, error) {
	if config == nil {
		config = &ClientConfig{}
	}

	// Credentials
	config.DeveloperToken = getEnvOrDefault("BINGADS_DEVELOPER_TOKEN", config.DeveloperToken)
	config.CustomerID = getEnvOrDefault("BINGADS_CUSTOMER_ID", config.CustomerID)
	config.CustomerAccountID = getEnvOrDefault("BINGADS_ACCOUNT_ID", config.CustomerAccountID)
	config.ClientID = getEnvOrDefault("BINGADS_CLIENT_ID", config.ClientID)
	config.LoginHint = getEnvOrDefault("BINGADS_LOGIN_HINT", config.LoginHint)

	// Target
	config.Environment = getEnvOrDefault("BINGADS_ENVIRONMENT", config.Environment)
	config.APIVersion = getEnvOrDefault("BINGADS_API_VERSION", config.APIVersion)

	// Token
	config.TokenCacheCorrelationID = getEnvOrDefault("TOKEN_CACHE_CORRELATION_ID", config.TokenCacheCorrelationID)
	config.TokenCacheLocation = getEnvOrDefault("TOKEN_CACHE_LOCATION", config.TokenCacheLocation)
	config.TokenExpirationOffsetSeconds = parseInt(getEnvOrDefault("TOKEN_EXPIRATION_OFFSET_SECONDS", strconv.Itoa(config.TokenExpirationOffsetSeconds)), config.TokenExpirationOffsetSeconds)
	config.TokenFetchTimeout = parseDuration(getEnvOrDefault("TOKEN_FETCH_TIMEOUT", config.TokenFetchTimeout.String()), config.TokenFetchTimeout)

	// Transport
	config.CustomTimeout = parseDuration(getEnvOrDefault("CUSTOM_TIMEOUT", config.CustomTimeout.String()), config.CustomTimeout)
	config.MaxReceivedMessageSize = parseInt64(getEnvOrDefault("MAX_RECEIVED_MESSAGE_SIZE", strconv.FormatInt(config.MaxReceivedMessageSize, 10)), config.MaxReceivedMessageSize)
	config.MaxConcurrentRequests = parseInt(getEnvOrDefault("MAX_CONCURRENT_REQUESTS", strconv.Itoa(config.MaxConcurrentRequests)), config.MaxConcurrentRequests)
	config.AllowCookies = parseBool(getEnvOrDefault("ALLOW_COOKIES", strconv.FormatBool(config.AllowCookies)))
	config.FollowRedirects = parseBool(getEnvOrDefault("FOLLOW_REDIRECTS", strconv.FormatBool(config.FollowRedirects)))
	config.MaxRedirects = parseInt(getEnvOrDefault("MAX_REDIRECTS", strconv.Itoa(config.MaxRedirects)), config.MaxRedirects)
	config.ProxyURL = getEnvOrDefault("PROXY_URL", config.ProxyURL)
	config.ProxyUsername = getEnvOrDefault("PROXY_USERNAME", config.ProxyUsername)
	config.ProxyPassword = getEnvOrDefault("PROXY_PASSWORD", config.ProxyPassword)

	// Logging
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)
	config.LogOutputFormat = getEnvOrDefault("LOG_OUTPUT_FORMAT", config.LogOutputFormat)
	config.LogConsoleSeparator = getEnvOrDefault("LOG_CONSOLE_SEPARATOR", config.LogConsoleSeparator)
	config.HideSensitiveData = parseBool(getEnvOrDefault("HIDE_SENSITIVE_DATA", strconv.FormatBool(config.HideSensitiveData)))

	SetDefaultValuesClientConfig(config)

	return config, nil
}

// SetDefaultValuesClientConfig fills every unset field with its default. TokenExpirationOffsetSeconds is
// only defaulted when zero; a positive value is left for validation to reject.
func SetDefaultValuesClientConfig(config *ClientConfig) {
	setDefaultString(&config.Environment, DefaultEnvironment)
	setDefaultString(&config.APIVersion, DefaultAPIVersion)
	setDefaultString(&config.TokenCacheLocation, DefaultTokenCacheLocation)
	if config.TokenExpirationOffsetSeconds == 0 {
		config.TokenExpirationOffsetSeconds = DefaultTokenExpirationOffsetSeconds
	}
	setDefaultDuration(&config.TokenFetchTimeout, DefaultTokenFetchTimeout)
	setDefaultDuration(&config.CustomTimeout, DefaultCustomTimeout)
	if config.MaxReceivedMessageSize <= 0 {
		config.MaxReceivedMessageSize = DefaultMaxReceivedMessageSize
	}
	if config.FollowRedirects && config.MaxRedirects <= 0 {
		config.MaxRedirects = DefaultMaxRedirects
	}
	setDefaultString(&config.LogLevel, DefaultLogLevelString)
	setDefaultString(&config.LogOutputFormat, DefaultLogOutputFormatString)
	setDefaultString(&config.LogConsoleSeparator, DefaultLogConsoleSeparator)
}

// validateClientConfig reports the first invalid field as a ConfigurationError.
func validateClientConfig(config ClientConfig, populateDefaults bool) error {
	if populateDefaults {
		SetDefaultValuesClientConfig(&config)
	}

	if strings.TrimSpace(config.DeveloperToken) == "" {
		return apierrors.NewConfigurationError("DeveloperToken", "must not be blank")
	}
	if strings.TrimSpace(config.ClientID) == "" {
		return apierrors.NewConfigurationError("ClientID", "must not be blank")
	}
	if config.TokenExpirationOffsetSeconds >= 0 {
		return apierrors.NewConfigurationError("TokenExpirationOffsetSeconds", "value must be negative, got %d", config.TokenExpirationOffsetSeconds)
	}
	if config.TokenFetchTimeout < 0 {
		return apierrors.NewConfigurationError("TokenFetchTimeout", "cannot be less than 0 seconds")
	}
	if config.CustomTimeout < 0 {
		return apierrors.NewConfigurationError("CustomTimeout", "cannot be less than 0 seconds")
	}
	if config.MaxConcurrentRequests < 0 {
		return apierrors.NewConfigurationError("MaxConcurrentRequests", "cannot be less than 0")
	}
	if config.FollowRedirects && config.MaxRedirects < 1 {
		return apierrors.NewConfigurationError("MaxRedirects", "cannot be less than 1 when following redirects")
	}
	if _, err := environment.Lookup(environment.Environment(config.Environment)); err != nil {
		return err
	}
	return nil
}

// binding translates the transport settings into a soap.Binding.
func (c ClientConfig) binding() *soap.Binding {
	return &soap.Binding{
		Timeout:                c.CustomTimeout,
		MaxReceivedMessageSize: c.MaxReceivedMessageSize,
		MaxConcurrentCalls:     c.MaxConcurrentRequests,
		AllowCookies:           c.AllowCookies,
		FollowRedirects:        c.FollowRedirects,
		MaxRedirects:           c.MaxRedirects,
		ProxyURL:               c.ProxyURL,
		ProxyUsername:          c.ProxyUsername,
		ProxyPassword:          c.ProxyPassword,
	}
}

// BuildClientFactory wires the whole stack from config: the zap logger, the persisted token cache, the
// OAuth2 identity store driving flow for interactive sign-in, the token provider and the factory.
func BuildClientFactory(ctx context.Context, config ClientConfig, flow authenticationhandler.InteractiveFlow) (*ClientFactory, error) {
	SetDefaultValuesClientConfig(&config)
	if err := validateClientConfig(config, false); err != nil {
		return nil, err
	}

	parsedLogLevel := logger.ParseLogLevelFromString(config.LogLevel)
	log := logger.BuildLogger(parsedLogLevel, config.LogOutputFormat, config.LogConsoleSeparator)

	return BuildClientFactoryWithLogger(ctx, config, flow, log)
}

// BuildClientFactoryWithLogger is BuildClientFactory writing to log instead of a logger built from the
// LogLevel and LogOutputFormat settings.
func BuildClientFactoryWithLogger(ctx context.Context, config ClientConfig, flow authenticationhandler.InteractiveFlow, log logger.Logger) (*ClientFactory, error) {
	SetDefaultValuesClientConfig(&config)
	if err := validateClientConfig(config, false); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)
	env := environment.Environment(config.Environment)

	store, err := authenticationhandler.NewOAuth2IdentityStore(ctx, authenticationhandler.OAuth2StoreConfig{
		ClientID:    config.ClientID,
		Environment: env,
		Persistence: authenticationhandler.NewAFSPersistence(config.TokenCacheLocation, config.TokenCacheCorrelationID),
	}, flow, log)
	if err != nil {
		return nil, err
	}

	provider, err := authenticationhandler.NewAuthTokenProvider(store, authenticationhandler.ProviderConfig{
		Environment:                  env,
		LoginHint:                    config.LoginHint,
		TokenExpirationOffsetSeconds: config.TokenExpirationOffsetSeconds,
		FetchTimeout:                 config.TokenFetchTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	factory, err := NewClientFactory(FactoryConfig{
		DeveloperToken:    config.DeveloperToken,
		CustomerID:        config.CustomerID,
		CustomerAccountID: config.CustomerAccountID,
		Environment:       env,
		APIVersion:        environment.APIVersion(config.APIVersion),
		HideSensitiveData: config.HideSensitiveData,
	}, provider, log)
	if err != nil {
		return nil, err
	}
	factory.Binding = config.binding()

	log.Info("Client factory built",
		zap.String("Environment", config.Environment),
		zap.String("APIVersion", config.APIVersion),
		zap.Bool("TokenCachePersisted", config.TokenCacheCorrelationID != ""),
		zap.Duration("TokenFetchTimeout", config.TokenFetchTimeout),
		zap.Duration("CustomTimeout", config.CustomTimeout),
		zap.Int("MaxConcurrentRequests", config.MaxConcurrentRequests),
		zap.Bool("FollowRedirects", config.FollowRedirects),
		zap.Bool("ProxyConfigured", config.ProxyURL != ""),
	)
	return factory, nil
}
