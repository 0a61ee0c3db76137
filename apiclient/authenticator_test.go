package apiclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apierrors "github.com/deploymenttheory/go-api-soap-client/errors"
	"github.com/deploymenttheory/go-api-soap-client/mocklogger"
	"github.com/deploymenttheory/go-api-soap-client/soap"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeTokens is a scripted TokenSource.
type fakeTokens struct {
	timeout time.Duration
	acquire func(ctx context.Context) (string, error)
	calls   atomic.Int32
}

func (f *fakeTokens) AcquireToken(ctx context.Context) (string, error) {
	f.calls.Add(1)
	return f.acquire(ctx)
}

func (f *fakeTokens) FetchTimeout() time.Duration {
	return f.timeout
}

func staticTokens(token string) *fakeTokens {
	return &fakeTokens{timeout: time.Second, acquire: func(context.Context) (string, error) { return token, nil }}
}

var testTemplate = Identity{
	DeveloperToken:    "dev-token",
	CustomerID:        "1",
	CustomerAccountID: "2",
	HeaderNamespace:   testNamespace,
}

// TestRequestAuthenticator_BeforeSend tests that all four identity headers are stamped.
func TestRequestAuthenticator_BeforeSend(t *testing.T) {
	auth := NewRequestAuthenticator(testTemplate, staticTokens("T1"), mocklogger.NewMockLogger().AllowAll())
	request := soap.NewMessage("GetUser", nil)

	state, err := auth.BeforeSend(context.Background(), request)

	require.NoError(t, err)
	_, isUUID := state.(uuid.UUID)
	assert.True(t, isUUID)
	assert.Equal(t, soap.Headers{
		{Name: HeaderDeveloperToken, Namespace: testNamespace, Value: "dev-token"},
		{Name: HeaderAuthenticationToken, Namespace: testNamespace, Value: "T1"},
		{Name: HeaderCustomerID, Namespace: testNamespace, Value: "1"},
		{Name: HeaderCustomerAccountID, Namespace: testNamespace, Value: "2"},
	}, request.Headers)
}

// TestRequestAuthenticator_RequestsDoNotShareTokens tests that two requests stamped from the same template at
// different times carry their own token, and the template stays untouched.
func TestRequestAuthenticator_RequestsDoNotShareTokens(t *testing.T) {
	var n atomic.Int32
	tokens := &fakeTokens{timeout: time.Second, acquire: func(context.Context) (string, error) {
		if n.Add(1) == 1 {
			return "A", nil
		}
		return "B", nil
	}}
	auth := NewRequestAuthenticator(testTemplate, tokens, nil)

	first := soap.NewMessage("GetUser", nil)
	second := soap.NewMessage("GetUser", nil)
	_, err := auth.BeforeSend(context.Background(), first)
	require.NoError(t, err)
	_, err = auth.BeforeSend(context.Background(), second)
	require.NoError(t, err)

	a, _ := first.Headers.Get(HeaderAuthenticationToken)
	b, _ := second.Headers.Get(HeaderAuthenticationToken)
	assert.Equal(t, "A", a.Value)
	assert.Equal(t, "B", b.Value)
	assert.Empty(t, auth.template.AuthenticationToken)
}

// TestRequestAuthenticator_ConcurrentRequests tests that concurrent requests never observe each other's token.
func TestRequestAuthenticator_ConcurrentRequests(t *testing.T) {
	var n atomic.Int32
	tokens := &fakeTokens{timeout: time.Second, acquire: func(context.Context) (string, error) {
		return uuid.NewString() + "-" + string(rune('a'+n.Add(1)%26)), nil
	}}
	auth := NewRequestAuthenticator(testTemplate, tokens, nil)

	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			request := soap.NewMessage("GetUser", nil)
			_, err := auth.BeforeSend(context.Background(), request)
			assert.NoError(t, err)
			header, _ := request.Headers.Get(HeaderAuthenticationToken)
			mu.Lock()
			seen[header.Value] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 32)
}

// TestRequestAuthenticator_AcquisitionFailure tests that the call proceeds without an authentication token.
func TestRequestAuthenticator_AcquisitionFailure(t *testing.T) {
	log := mocklogger.NewMockLogger()
	log.On("Warn", "Sending request without authentication token", mock.Anything).Once()
	log.On("Debug", mock.Anything, mock.Anything).Maybe()

	tokens := &fakeTokens{timeout: time.Second, acquire: func(context.Context) (string, error) {
		return "", apierrors.NewAuthError("interactive", errors.New("user cancelled"))
	}}
	auth := NewRequestAuthenticator(testTemplate, tokens, log)
	request := soap.NewMessage("GetUser", nil)
	request.Headers.Replace(HeaderAuthenticationToken, testNamespace, "caller-supplied")

	state, err := auth.BeforeSend(context.Background(), request)

	require.NoError(t, err)
	assert.NotNil(t, state)
	header, ok := request.Headers.Get(HeaderAuthenticationToken)
	assert.True(t, ok)
	assert.Equal(t, "caller-supplied", header.Value)
	_, ok = request.Headers.Get(HeaderDeveloperToken)
	assert.True(t, ok)
	log.AssertExpectations(t)
}

// TestRequestAuthenticator_FetchTimeout tests that acquisition is bounded by the source's fetch timeout.
func TestRequestAuthenticator_FetchTimeout(t *testing.T) {
	tokens := &fakeTokens{timeout: 20 * time.Millisecond, acquire: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", apierrors.NewAuthError("interactive", ctx.Err())
	}}
	auth := NewRequestAuthenticator(testTemplate, tokens, nil)
	request := soap.NewMessage("GetUser", nil)

	start := time.Now()
	_, err := auth.BeforeSend(context.Background(), request)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	_, ok := request.Headers.Get(HeaderAuthenticationToken)
	assert.False(t, ok)
}

// TestRequestAuthenticator_AfterReceive tests that the reply is logged against the correlation id.
func TestRequestAuthenticator_AfterReceive(t *testing.T) {
	log := mocklogger.NewMockLogger()
	log.On("Debug", "Reply received", mock.Anything).Twice()
	auth := NewRequestAuthenticator(testTemplate, staticTokens("T"), log)

	auth.AfterReceive(context.Background(), &soap.Message{Action: "GetUser"}, uuid.New())
	auth.AfterReceive(context.Background(), &soap.Message{Action: "GetUser"}, nil)

	log.AssertNumberOfCalls(t, "Debug", 2)
}
