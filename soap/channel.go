// soap/channel.go
package soap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/deploymenttheory/go-api-soap-client/concurrency"
	"github.com/deploymenttheory/go-api-soap-client/cookiejar"
	"github.com/deploymenttheory/go-api-soap-client/headers"
	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/deploymenttheory/go-api-soap-client/proxy"
	"github.com/deploymenttheory/go-api-soap-client/redirecthandler"
	"github.com/deploymenttheory/go-api-soap-client/response"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrObjectClosed is returned when a closed channel or factory is used or closed again.
	ErrObjectClosed = errors.New("soap: object is closed")
	// ErrChannelFaulted is returned by a channel whose transport failed; it has to be closed and replaced.
	ErrChannelFaulted = errors.New("soap: channel is faulted")
	// ErrMessageTooLarge is returned when a reply exceeds Binding.MaxReceivedMessageSize.
	ErrMessageTooLarge = errors.New("soap: reply exceeds the maximum received message size")
)

// State is the lifecycle state of a channel or channel factory.
type State int

const (
	StateCreated State = iota
	StateOpened
	StateClosed
	StateFaulted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateOpened:
		return "Opened"
	case StateClosed:
		return "Closed"
	case StateFaulted:
		return "Faulted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ChannelFactory creates channels to one endpoint.
type ChannelFactory struct {
	endpoint          string
	binding           Binding
	ownsClient        bool
	hideSensitiveData bool
	concurrency       *concurrency.ConcurrencyHandler // nil when calls are not limited

	mu           sync.Mutex
	state        State
	interceptors []Interceptor
	channels     []*Channel

	Logger logger.Logger
}

// NewChannelFactory creates a factory for endpoint. A nil binding means DefaultBinding().
func NewChannelFactory(endpoint string, binding *Binding, log logger.Logger) (*ChannelFactory, error) {
	if endpoint == "" {
		return nil, errors.New("soap: endpoint must not be empty")
	}
	if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("soap: endpoint %q is not an absolute URL", endpoint)
	}
	log = logger.OrNop(log).Named("soap").With(zap.String("endpoint", endpoint))
	b := binding.withDefaults()
	owns := false
	if b.HTTPClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if err := proxy.ConfigureTransport(transport, b.ProxyURL, b.ProxyUsername, b.ProxyPassword, log); err != nil {
			return nil, fmt.Errorf("soap: invalid proxy: %w", err)
		}
		b.HTTPClient = &http.Client{Transport: transport}
		if err := redirecthandler.SetupRedirectHandler(b.HTTPClient, b.FollowRedirects, b.MaxRedirects, log); err != nil {
			return nil, fmt.Errorf("soap: invalid redirect policy: %w", err)
		}
		if err := cookiejar.SetupCookieJar(b.HTTPClient, b.AllowCookies, log); err != nil {
			return nil, fmt.Errorf("soap: %w", err)
		}
		owns = true
	}

	f := &ChannelFactory{
		endpoint:   endpoint,
		binding:    b,
		ownsClient: owns,
		state:      StateCreated,
		Logger:     log,
	}
	if b.MaxConcurrentCalls > 0 {
		f.concurrency = concurrency.NewConcurrencyHandler(b.MaxConcurrentCalls, log, nil)
	}
	return f, nil
}

// Metrics returns the call metrics of the factory, or false when MaxConcurrentCalls is not set.
func (f *ChannelFactory) Metrics() (concurrency.Snapshot, bool) {
	if f.concurrency == nil {
		return concurrency.Snapshot{}, false
	}
	return f.concurrency.Snapshot(), true
}

// Endpoint returns the service URL of the factory.
func (f *ChannelFactory) Endpoint() string {
	return f.endpoint
}

// SetHideSensitiveData controls redaction of credentials in debug logs.
func (f *ChannelFactory) SetHideSensitiveData(hide bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hideSensitiveData = hide
}

// AddInterceptor appends i to the pipeline of channels created afterwards.
func (f *ChannelFactory) AddInterceptor(i Interceptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateClosed {
		return ErrObjectClosed
	}
	f.interceptors = append(f.interceptors, i)
	return nil
}

// State returns the current state of the factory.
func (f *ChannelFactory) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// CreateChannel opens the factory if needed and returns a new channel in StateCreated.
func (f *ChannelFactory) CreateChannel() (*Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateClosed {
		return nil, ErrObjectClosed
	}
	f.state = StateOpened
	ch := &Channel{
		factory:      f,
		interceptors: append([]Interceptor(nil), f.interceptors...),
		hide:         f.hideSensitiveData,
		state:        StateCreated,
		log:          f.Logger,
	}
	f.channels = append(f.channels, ch)
	return ch, nil
}

// Close closes every channel created by the factory and releases its idle connections.
// Closing a closed factory returns ErrObjectClosed.
func (f *ChannelFactory) Close() error {
	f.mu.Lock()
	if f.state == StateClosed {
		f.mu.Unlock()
		return ErrObjectClosed
	}
	f.state = StateClosed
	channels := f.channels
	f.channels = nil
	f.mu.Unlock()

	for _, ch := range channels {
		ch.abort()
	}
	if f.ownsClient {
		f.binding.HTTPClient.CloseIdleConnections()
	}
	f.Logger.Debug("Channel factory closed", zap.Int("channels", len(channels)))
	return nil
}

// Channel sends calls to the factory endpoint. It is safe for concurrent use.
type Channel struct {
	factory      *ChannelFactory
	interceptors []Interceptor
	hide         bool

	mu    sync.Mutex
	state State

	log logger.Logger
}

// State returns the current state of the channel.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open moves a created channel to StateOpened. Opening an open channel is a no-op.
func (c *Channel) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateCreated, StateOpened:
		c.state = StateOpened
		return nil
	case StateFaulted:
		return ErrChannelFaulted
	default:
		return ErrObjectClosed
	}
}

// Close closes the channel. A faulted channel is closed but reports ErrChannelFaulted; closing a
// closed channel returns ErrObjectClosed.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateClosed:
		return ErrObjectClosed
	case StateFaulted:
		c.state = StateClosed
		return ErrChannelFaulted
	default:
		c.state = StateClosed
		return nil
	}
}

func (c *Channel) abort() {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
}

func (c *Channel) markFaulted() {
	c.mu.Lock()
	if c.state == StateOpened {
		c.state = StateFaulted
	}
	c.mu.Unlock()
}

// faultUnlessCancelled faults the channel for a transport failure. A call that ended because ctx was
// cancelled or timed out leaves the channel usable for other callers.
func (c *Channel) faultUnlessCancelled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	c.markFaulted()
}

// Invoke sends request and returns the reply. The channel is opened on first use.
//
// Every interceptor's BeforeSend runs in registration order before the envelope is written, and every
// AfterReceive runs in reverse order once a reply has been read, faults included.
//
// Returns:
//   - *Message: the reply, also when the service answered with a fault.
//   - error: *response.Fault when the service or an intermediary rejected the call, ErrObjectClosed or
//     ErrChannelFaulted when the channel cannot be used, or the transport error which leaves the
//     channel in StateFaulted.
func (c *Channel) Invoke(ctx context.Context, request *Message) (*Message, error) {
	if err := c.Open(); err != nil {
		return nil, err
	}
	log := c.log
	binding := c.factory.binding
	endpoint := c.factory.endpoint

	states := make([]any, len(c.interceptors))
	for i, interceptor := range c.interceptors {
		state, err := interceptor.BeforeSend(ctx, request)
		if err != nil {
			return nil, err
		}
		states[i] = state
	}

	payload, err := marshalEnvelope(request)
	if err != nil {
		return nil, err
	}

	if binding.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, binding.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", request.Action, err)
	}
	headerHandler := headers.NewHeaderHandler(req, log)
	headerHandler.SetRequestHeaders(request.Action)
	headerHandler.LogHeaders(c.hide)

	limiter := c.factory.concurrency
	if limiter != nil {
		var requestID uuid.UUID
		if _, requestID, err = limiter.AcquireConcurrencyToken(ctx); err != nil {
			return nil, fmt.Errorf("soap: %s: %w", request.Action, err)
		}
		defer limiter.ReleaseConcurrencyToken(requestID)
	}

	logger.LogCallStart(log, request.Action, endpoint, len(payload))
	start := time.Now()
	resp, err := binding.HTTPClient.Do(req)
	if err != nil {
		c.faultUnlessCancelled(ctx)
		log.Warn("SOAP transport failed", zap.String("action", request.Action), zap.Error(err))
		return nil, fmt.Errorf("soap: %s: %w", request.Action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, binding.MaxReceivedMessageSize+1))
	if err != nil {
		c.faultUnlessCancelled(ctx)
		return nil, fmt.Errorf("soap: failed to read %s reply: %w", request.Action, err)
	}
	if int64(len(body)) > binding.MaxReceivedMessageSize {
		return nil, ErrMessageTooLarge
	}
	elapsed := time.Since(start)
	logger.LogCallEnd(log, request.Action, endpoint, resp.StatusCode, elapsed)
	if limiter != nil {
		limiter.RecordResponse(resp.StatusCode, elapsed)
	}
	headers.CheckDeprecationHeader(resp, log)
	cookiejar.LogReplyCookies(resp.Header, c.hide, log)

	reply := &Message{
		Action:     request.Action,
		StatusCode: resp.StatusCode,
		HTTPHeader: resp.Header,
		Raw:        body,
	}
	if replyHeaders, err := parseReplyHeaders(body); err == nil {
		reply.Headers = replyHeaders
	}

	for i := len(c.interceptors) - 1; i >= 0; i-- {
		c.interceptors[i].AfterReceive(ctx, reply, states[i])
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || response.IsFault(body) {
		return reply, response.HandleFaultResponse(resp, body, request.Action, log)
	}
	return reply, nil
}
