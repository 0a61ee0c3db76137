// apiclient/serviceclient.go
package apiclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/deploymenttheory/go-api-soap-client/concurrency"
	"github.com/deploymenttheory/go-api-soap-client/environment"
	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/deploymenttheory/go-api-soap-client/soap"
	"go.uber.org/zap"
)

// ClientState is the lifecycle state of a ServiceClient.
type ClientState int

const (
	StateUnopened ClientState = iota
	StateOpen
	StateDisposed
)

// String implements fmt.Stringer.
func (s ClientState) String() string {
	switch s {
	case StateUnopened:
		return "Unopened"
	case StateOpen:
		return "Open"
	case StateDisposed:
		return "Disposed"
	default:
		return fmt.Sprintf("ClientState(%d)", int(s))
	}
}

// ServiceClient is a disposable handle on one remote service. It pairs the channel with the release of the
// channel and its factory. A ServiceClient is safe for concurrent use; Close ends its life.
type ServiceClient struct {
	service  environment.ServiceType
	factory  *soap.ChannelFactory
	channel  *soap.Channel
	log      logger.Logger
	mu       sync.Mutex
	state    ClientState
	released bool
}

func newServiceClient(service environment.ServiceType, factory *soap.ChannelFactory, channel *soap.Channel, log logger.Logger) *ServiceClient {
	return &ServiceClient{
		service: service,
		factory: factory,
		channel: channel,
		log:     log,
		state:   StateUnopened,
	}
}

// Service returns the service type the client talks to.
func (c *ServiceClient) Service() environment.ServiceType {
	return c.service
}

// Endpoint returns the resolved service URL.
func (c *ServiceClient) Endpoint() string {
	return c.factory.Endpoint()
}

// Client exposes the underlying channel.
func (c *ServiceClient) Client() *soap.Channel {
	return c.channel
}

// Metrics returns the call metrics of the client, or false when the binding sets no MaxConcurrentCalls.
func (c *ServiceClient) Metrics() (concurrency.Snapshot, bool) {
	return c.factory.Metrics()
}

// State returns the current lifecycle state.
func (c *ServiceClient) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Invoke sends request through the authenticated pipeline. The first call opens the channel.
// A disposed client returns soap.ErrObjectClosed.
func (c *ServiceClient) Invoke(ctx context.Context, request *soap.Message) (*soap.Message, error) {
	c.mu.Lock()
	if c.state == StateDisposed {
		c.mu.Unlock()
		return nil, soap.ErrObjectClosed
	}
	if c.state == StateUnopened {
		if err := c.channel.Open(); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.state = StateOpen
	}
	c.mu.Unlock()

	return c.channel.Invoke(ctx, request)
}

// Call sends request as the payload of action and decodes the reply payload into response, which may be
// nil for one-way operations. A rejected call returns the *response.Fault.
func (c *ServiceClient) Call(ctx context.Context, action string, request any, response any) error {
	reply, err := c.Invoke(ctx, soap.NewMessage(action, request))
	if err != nil {
		return err
	}
	if response == nil {
		return nil
	}
	return reply.Decode(response)
}

// Close releases the channel and its factory. It is idempotent and always returns nil: teardown errors,
// such as closing an already faulted or closed channel, are logged and discarded.
func (c *ServiceClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateDisposed
	if c.released {
		return nil
	}
	c.released = true

	if err := c.channel.Close(); err != nil {
		c.log.Debug("Ignoring channel close error", zap.String("Service", c.service.String()), zap.Error(err))
	}
	if err := c.factory.Close(); err != nil {
		c.log.Debug("Ignoring channel factory close error", zap.String("Service", c.service.String()), zap.Error(err))
	}
	c.log.Debug("Service client disposed", zap.String("Service", c.service.String()))
	return nil
}
