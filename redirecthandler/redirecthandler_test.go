package redirecthandler

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/deploymenttheory/go-api-soap-client/mocklogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, rawURL string, statusCode int) *http.Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	req := &http.Request{Method: http.MethodPost, URL: u, Header: http.Header{}}
	if statusCode != 0 {
		req.Response = &http.Response{StatusCode: statusCode}
	}
	return req
}

// TestRedirectHandler_CheckRedirect covers the method, host, loop and count rules.
func TestRedirectHandler_CheckRedirect(t *testing.T) {
	handler := NewRedirectHandler(mocklogger.NewMockLogger().AllowAll(), 2)

	tests := []struct {
		name    string
		via     []*http.Request
		target  string
		wantErr func(error) bool
	}{
		{
			name:   "TemporaryRedirectSameHost",
			via:    []*http.Request{newRequest(t, "https://api.example.com/a.svc", http.StatusTemporaryRedirect)},
			target: "https://api.example.com/b.svc",
		},
		{
			name:    "FoundIsNotFollowed",
			via:     []*http.Request{newRequest(t, "https://api.example.com/a.svc", http.StatusFound)},
			target:  "https://api.example.com/b.svc",
			wantErr: func(err error) bool { return errors.Is(err, http.ErrUseLastResponse) },
		},
		{
			name:    "SeeOtherIsNotFollowed",
			via:     []*http.Request{newRequest(t, "https://api.example.com/a.svc", http.StatusSeeOther)},
			target:  "https://api.example.com/b.svc",
			wantErr: func(err error) bool { return errors.Is(err, http.ErrUseLastResponse) },
		},
		{
			name:   "CrossHost",
			via:    []*http.Request{newRequest(t, "https://api.example.com/a.svc", http.StatusPermanentRedirect)},
			target: "https://evil.example.net/a.svc",
			wantErr: func(err error) bool {
				var target *CrossHostRedirectError
				return errors.As(err, &target)
			},
		},
		{
			name: "Loop",
			via: []*http.Request{
				newRequest(t, "https://api.example.com/a.svc", http.StatusTemporaryRedirect),
				newRequest(t, "https://api.example.com/b.svc", http.StatusTemporaryRedirect),
			},
			target: "https://api.example.com/a.svc",
			wantErr: func(err error) bool {
				var target *RedirectLoopError
				return errors.As(err, &target)
			},
		},
		{
			name: "TooMany",
			via: []*http.Request{
				newRequest(t, "https://api.example.com/a.svc", http.StatusTemporaryRedirect),
				newRequest(t, "https://api.example.com/b.svc", http.StatusTemporaryRedirect),
				newRequest(t, "https://api.example.com/c.svc", http.StatusTemporaryRedirect),
			},
			target: "https://api.example.com/d.svc",
			wantErr: func(err error) bool {
				var target *MaxRedirectsError
				return errors.As(err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, tt.target, 0)
			err := handler.checkRedirect(req, tt.via)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, tt.wantErr(err), "unexpected error %v", err)
		})
	}
}

// TestRedirectHandler_StripsSensitiveHeaders checks that credentials never follow a redirect.
func TestRedirectHandler_StripsSensitiveHeaders(t *testing.T) {
	handler := NewRedirectHandler(nil, 5)
	handler.AddSensitiveHeader("X-Custom-Secret")
	req := newRequest(t, "https://api.example.com/b.svc", 0)
	req.Header.Set("Authorization", "Bearer x")
	req.Header.Set("X-Custom-Secret", "y")
	req.Header.Set("SOAPAction", `"GetUser"`)

	err := handler.checkRedirect(req, []*http.Request{newRequest(t, "https://api.example.com/a.svc", http.StatusTemporaryRedirect)})

	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("X-Custom-Secret"))
	assert.Equal(t, `"GetUser"`, req.Header.Get("SOAPAction"))
}

// TestSetupRedirectHandler tests both policies and the maxRedirects validation.
func TestSetupRedirectHandler(t *testing.T) {
	client := &http.Client{}
	require.NoError(t, SetupRedirectHandler(client, false, 0, nil))
	require.NotNil(t, client.CheckRedirect)
	assert.ErrorIs(t, client.CheckRedirect(nil, nil), http.ErrUseLastResponse)

	client = &http.Client{}
	require.NoError(t, SetupRedirectHandler(client, true, 3, mocklogger.NewMockLogger().AllowAll()))
	assert.NotNil(t, client.CheckRedirect)

	assert.Error(t, SetupRedirectHandler(&http.Client{}, true, 0, mocklogger.NewMockLogger().AllowAll()))
}
