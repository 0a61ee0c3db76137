// apiclient/v13client.go
package apiclient

import (
	"sync"

	"github.com/deploymenttheory/go-api-soap-client/environment"
	apierrors "github.com/deploymenttheory/go-api-soap-client/errors"
	"github.com/deploymenttheory/go-api-soap-client/soap"
)

// V13Client bundles one client per V13 service. A service client is created on first use, so callers only
// pay for the services they touch; Close tears down only the clients that were created.
type V13Client struct {
	factory *ClientFactory
	binding *soap.Binding

	mu      sync.Mutex
	closed  bool
	clients map[environment.ServiceType]*ServiceClient // absent until first use
}

// CreateV13Client returns a bundle sharing the factory's token source and identity template. binding may
// be nil. A factory not targeting environment.V13 is a ConfigurationError.
func (f *ClientFactory) CreateV13Client(binding *soap.Binding) (*V13Client, error) {
	if f.apiVersion != environment.V13 {
		return nil, apierrors.NewConfigurationError("APIVersion", "factory targets %s, not %s", f.apiVersion, environment.V13)
	}
	f.Logger.Debug("V13 client bundle created")
	return &V13Client{
		factory: f,
		binding: binding,
		clients: map[environment.ServiceType]*ServiceClient{},
	}, nil
}

// AdInsight returns the AdInsight service client.
func (v *V13Client) AdInsight() (*ServiceClient, error) {
	return v.Service(environment.AdInsight)
}

// Bulk returns the Bulk service client.
func (v *V13Client) Bulk() (*ServiceClient, error) {
	return v.Service(environment.Bulk)
}

// CampaignManagement returns the CampaignManagement service client.
func (v *V13Client) CampaignManagement() (*ServiceClient, error) {
	return v.Service(environment.CampaignManagement)
}

// CustomerBilling returns the CustomerBilling service client.
func (v *V13Client) CustomerBilling() (*ServiceClient, error) {
	return v.Service(environment.CustomerBilling)
}

// CustomerManagement returns the CustomerManagement service client.
func (v *V13Client) CustomerManagement() (*ServiceClient, error) {
	return v.Service(environment.CustomerManagement)
}

// Reporting returns the Reporting service client.
func (v *V13Client) Reporting() (*ServiceClient, error) {
	return v.Service(environment.Reporting)
}

// Service returns the client of service, creating it on first use. Concurrent first calls create a single
// client. After Close it returns soap.ErrObjectClosed.
func (v *V13Client) Service(service environment.ServiceType) (*ServiceClient, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, soap.ErrObjectClosed
	}
	if client, ok := v.clients[service]; ok {
		return client, nil
	}
	var opts *ClientOptions
	if v.binding != nil {
		opts = &ClientOptions{Binding: v.binding}
	}
	client, err := v.factory.CreateClient(service, opts)
	if err != nil {
		return nil, err
	}
	v.clients[service] = client
	return client, nil
}

// Constructed lists the services whose client has been created, in declaration order.
func (v *V13Client) Constructed() []environment.ServiceType {
	v.mu.Lock()
	defer v.mu.Unlock()
	var constructed []environment.ServiceType
	for _, service := range environment.ServiceTypes {
		if _, ok := v.clients[service]; ok {
			constructed = append(constructed, service)
		}
	}
	return constructed
}

// Close disposes every created client. It is idempotent and always returns nil.
func (v *V13Client) Close() error {
	v.mu.Lock()
	clients := v.clients
	v.clients = map[environment.ServiceType]*ServiceClient{}
	v.closed = true
	v.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
	return nil
}
