package apiclient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/deploymenttheory/go-api-soap-client/environment"
	apierrors "github.com/deploymenttheory/go-api-soap-client/errors"
	"github.com/deploymenttheory/go-api-soap-client/soap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestV13Client_LazyCreation tests that only accessed services get a client.
func TestV13Client_LazyCreation(t *testing.T) {
	bundle, err := newTestFactory(t, staticTokens("T")).CreateV13Client(nil)
	require.NoError(t, err)
	assert.Empty(t, bundle.Constructed())

	reporting, err := bundle.Reporting()
	require.NoError(t, err)
	customer, err := bundle.CustomerManagement()
	require.NoError(t, err)
	again, err := bundle.CustomerManagement()
	require.NoError(t, err)

	assert.Same(t, customer, again)
	assert.Equal(t, []environment.ServiceType{environment.CustomerManagement, environment.Reporting}, bundle.Constructed())

	require.NoError(t, bundle.Close())
	assert.Equal(t, StateDisposed, reporting.State())
	assert.Equal(t, StateDisposed, customer.State())
	assert.Empty(t, bundle.Constructed())
}

// TestV13Client_Accessors tests that each accessor returns its own service.
func TestV13Client_Accessors(t *testing.T) {
	bundle, err := newTestFactory(t, staticTokens("T")).CreateV13Client(nil)
	require.NoError(t, err)
	defer bundle.Close()

	accessors := map[environment.ServiceType]func() (*ServiceClient, error){
		environment.AdInsight:          bundle.AdInsight,
		environment.Bulk:               bundle.Bulk,
		environment.CampaignManagement: bundle.CampaignManagement,
		environment.CustomerBilling:    bundle.CustomerBilling,
		environment.CustomerManagement: bundle.CustomerManagement,
		environment.Reporting:          bundle.Reporting,
	}
	for service, accessor := range accessors {
		client, err := accessor()
		require.NoError(t, err, service)
		assert.Equal(t, service, client.Service())
	}
	assert.Equal(t, environment.ServiceTypes, bundle.Constructed())
}

// TestV13Client_ConcurrentFirstUse tests that racing first calls create a single client.
func TestV13Client_ConcurrentFirstUse(t *testing.T) {
	bundle, err := newTestFactory(t, staticTokens("T")).CreateV13Client(nil)
	require.NoError(t, err)
	defer bundle.Close()

	clients := make([]*ServiceClient, 16)
	var wg sync.WaitGroup
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := bundle.CampaignManagement()
			assert.NoError(t, err)
			clients[i] = client
		}(i)
	}
	wg.Wait()

	for _, client := range clients {
		assert.Same(t, clients[0], client)
	}
}

// TestV13Client_AfterClose tests that a closed bundle refuses to create clients and closes only once.
func TestV13Client_AfterClose(t *testing.T) {
	bundle, err := newTestFactory(t, staticTokens("T")).CreateV13Client(nil)
	require.NoError(t, err)

	require.NoError(t, bundle.Close())
	require.NoError(t, bundle.Close())

	_, err = bundle.Bulk()
	assert.ErrorIs(t, err, soap.ErrObjectClosed)
}

// TestV13Client_RequiresV13 tests that only a V13 factory builds the bundle.
func TestV13Client_RequiresV13(t *testing.T) {
	factory, err := NewClientFactory(FactoryConfig{DeveloperToken: "dev", APIVersion: "V12"}, staticTokens("T"), nil)
	require.NoError(t, err)

	_, err = factory.CreateV13Client(nil)

	var configErr *apierrors.ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "APIVersion", configErr.Field)
}

// TestV13Client_RegisteredEnvironment tests a call through a bundle whose environment points at a local service.
func TestV13Client_RegisteredEnvironment(t *testing.T) {
	server, seen := newFakeService(t)
	env := environment.Environment("LocalV13Client")
	environment.Register(env, environment.Settings{
		HeaderNamespace: "https://bingads.microsoft.com/Customer/v13",
		Endpoints: map[environment.APIVersion]map[environment.ServiceType]string{
			environment.V13: {environment.CustomerManagement: server.URL + "/CustomerManagementService.svc"},
		},
	})

	factory, err := NewClientFactory(FactoryConfig{DeveloperToken: "dev-token", Environment: env}, staticTokens("T"), nil)
	require.NoError(t, err)
	bundle, err := factory.CreateV13Client(&soap.Binding{MaxConcurrentCalls: 1})
	require.NoError(t, err)
	defer bundle.Close()

	client, err := bundle.CustomerManagement()
	require.NoError(t, err)
	var out getUserResponse
	require.NoError(t, client.Call(context.Background(), "GetUser", &getUserRequest{}, &out))
	assert.Equal(t, "user@contoso.com", out.UserName)
	assert.Len(t, seen(), 1)

	_, err = bundle.Reporting()
	var configErr *apierrors.ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "ServiceType", configErr.Field)
}
