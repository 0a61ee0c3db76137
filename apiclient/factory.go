// apiclient/factory.go
package apiclient

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/deploymenttheory/go-api-soap-client/environment"
	apierrors "github.com/deploymenttheory/go-api-soap-client/errors"
	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/deploymenttheory/go-api-soap-client/soap"
	"go.uber.org/zap"
)

// FactoryConfig holds the credentials and target of a ClientFactory.
type FactoryConfig struct {
	DeveloperToken    string                  // DeveloperToken is required.
	CustomerID        string                  // CustomerID is optional; numeric when set.
	CustomerAccountID string                  // CustomerAccountID is optional; numeric when set.
	Environment       environment.Environment // Environment defaults to environment.Production.
	APIVersion        environment.APIVersion  // APIVersion defaults to environment.V13.
	HideSensitiveData bool                    // HideSensitiveData redacts credentials in debug logs.
}

// ClientOptions overrides the defaults of CreateClient.
type ClientOptions struct {
	EndpointURL string        // EndpointURL replaces the URL looked up from the environment table.
	Binding     *soap.Binding // Binding replaces the factory binding.
}

// ClientFactory creates ServiceClients that share one TokenSource and one identity template.
type ClientFactory struct {
	template          Identity
	tokens            TokenSource
	environment       environment.Environment
	apiVersion        environment.APIVersion
	hideSensitiveData bool
	Binding           *soap.Binding
	Logger            logger.Logger
}

// NewClientFactory validates config and creates a factory. A blank developer token, a nil token source,
// a non-numeric customer or account id and an unknown environment are ConfigurationErrors.
func NewClientFactory(config FactoryConfig, tokens TokenSource, log logger.Logger) (*ClientFactory, error) {
	if strings.TrimSpace(config.DeveloperToken) == "" {
		return nil, apierrors.NewConfigurationError("DeveloperToken", "must not be blank")
	}
	if isNil(tokens) {
		return nil, apierrors.NewConfigurationError("TokenSource", "must not be nil")
	}
	if err := validateID("CustomerID", config.CustomerID); err != nil {
		return nil, err
	}
	if err := validateID("CustomerAccountID", config.CustomerAccountID); err != nil {
		return nil, err
	}
	if config.Environment == "" {
		config.Environment = environment.Production
	}
	if config.APIVersion == "" {
		config.APIVersion = environment.V13
	}
	namespace, err := environment.HeaderNamespace(config.Environment)
	if err != nil {
		return nil, err
	}

	log = logger.OrNop(log)
	log.Debug("New client factory initialized",
		zap.String("Environment", string(config.Environment)),
		zap.String("APIVersion", string(config.APIVersion)),
		zap.Bool("CustomerIdSet", config.CustomerID != ""),
		zap.Bool("CustomerAccountIdSet", config.CustomerAccountID != ""),
		zap.Bool("HideSensitiveData", config.HideSensitiveData),
	)

	return &ClientFactory{
		template: Identity{
			DeveloperToken:    config.DeveloperToken,
			CustomerID:        config.CustomerID,
			CustomerAccountID: config.CustomerAccountID,
			HeaderNamespace:   namespace,
		},
		tokens:            tokens,
		environment:       config.Environment,
		apiVersion:        config.APIVersion,
		hideSensitiveData: config.HideSensitiveData,
		Binding:           soap.DefaultBinding(),
		Logger:            log,
	}, nil
}

// Template returns a copy of the identity template stamped on every request.
func (f *ClientFactory) Template() Identity {
	return f.template
}

// CreateClient creates a client for service. The endpoint comes from opts when set and otherwise from the
// environment table; a service missing from the table is a ConfigurationError. The caller owns the returned
// client and must Close it.
func (f *ClientFactory) CreateClient(service environment.ServiceType, opts *ClientOptions) (*ServiceClient, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}

	endpoint := opts.EndpointURL
	if endpoint == "" {
		resolved, err := environment.EndpointURL(f.environment, f.apiVersion, service)
		if err != nil {
			return nil, err
		}
		endpoint = resolved
	}
	binding := opts.Binding
	if binding == nil {
		binding = f.Binding
	}

	log := f.Logger.With(zap.String("Service", service.String()))
	channelFactory, err := soap.NewChannelFactory(endpoint, binding, log)
	if err != nil {
		return nil, apierrors.NewConfigurationError("EndpointURL", "%v", err)
	}
	channelFactory.SetHideSensitiveData(f.hideSensitiveData)
	if err := channelFactory.AddInterceptor(NewRequestAuthenticator(f.template, f.tokens, log)); err != nil {
		return nil, err
	}
	channel, err := channelFactory.CreateChannel()
	if err != nil {
		return nil, err
	}

	log.Debug("Service client created", zap.String("Endpoint", endpoint))
	return newServiceClient(service, channelFactory, channel, log), nil
}

func validateID(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := strconv.ParseInt(value, 10, 64); err != nil {
		return apierrors.NewConfigurationError(field, "must be numeric, got %q", value)
	}
	return nil
}

// isNil catches typed nil pointers stored in the interface.
func isNil(tokens TokenSource) bool {
	if tokens == nil {
		return true
	}
	v := reflect.ValueOf(tokens)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
