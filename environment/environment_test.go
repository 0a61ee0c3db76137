package environment

import (
	"errors"
	"testing"

	apierrors "github.com/deploymenttheory/go-api-soap-client/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEndpointURL_Production verifies every V13 service resolves in production.
func TestEndpointURL_Production(t *testing.T) {
	for _, service := range ServiceTypes {
		t.Run(string(service), func(t *testing.T) {
			url, err := EndpointURL(Production, V13, service)
			require.NoError(t, err)
			assert.Contains(t, url, "https://")
			assert.Contains(t, url, "Service.svc")
		})
	}
}

// TestEndpointURL_CaseInsensitive ensures service names are matched without regard to case.
func TestEndpointURL_CaseInsensitive(t *testing.T) {
	url, err := EndpointURL(Production, V13, ServiceType("customermanagement"))
	require.NoError(t, err)
	assert.Equal(t, "https://clientcenter.api.bingads.microsoft.com/Api/CustomerManagement/v13/CustomerManagementService.svc", url)
}

// TestEndpointURL_Unknown checks every lookup failure is a ConfigurationError.
func TestEndpointURL_Unknown(t *testing.T) {
	tests := []struct {
		name    string
		env     Environment
		version APIVersion
		service ServiceType
		field   string
	}{
		{"unknown service", Production, V13, ServiceType("Billing"), "ServiceType"},
		{"unknown version", Production, APIVersion("V12"), CustomerManagement, "APIVersion"},
		{"unknown environment", Environment("Moon"), V13, CustomerManagement, "Environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EndpointURL(tt.env, tt.version, tt.service)
			var cfgErr *apierrors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

// TestScopes_ReturnsCopy ensures callers cannot mutate the registered scopes.
func TestScopes_ReturnsCopy(t *testing.T) {
	scopes, err := Scopes(Production)
	require.NoError(t, err)
	require.NotEmpty(t, scopes)
	scopes[0] = "mutated"

	again, err := Scopes(Production)
	require.NoError(t, err)
	assert.Equal(t, "https://ads.microsoft.com/ads.manage", again[0])
}

// TestRegister adds a custom environment and resolves it.
func TestRegister(t *testing.T) {
	env := Environment("Test")
	Register(env, Settings{
		HeaderNamespace: "urn:test",
		Endpoints: map[APIVersion]map[ServiceType]string{
			V13: {Reporting: "http://localhost/Reporting.svc"},
		},
	})

	ns, err := HeaderNamespace(env)
	require.NoError(t, err)
	assert.Equal(t, "urn:test", ns)

	url, err := EndpointURL(env, V13, Reporting)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/Reporting.svc", url)
	assert.Contains(t, Environments(), env)
}

// TestParseServiceType accepts interface-style and short names.
func TestParseServiceType(t *testing.T) {
	for input, expected := range map[string]ServiceType{
		"ICustomerManagementService": CustomerManagement,
		"bulk":                       Bulk,
		"ReportingService":           Reporting,
		"IAdInsightService":          AdInsight,
	} {
		got, err := ParseServiceType(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got)
	}

	_, err := ParseServiceType("Unknown")
	assert.Error(t, err)
}
