// soap/message_test.go
package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const ns = "https://bingads.microsoft.com/Customer/v13"

// TestHeaders_ReplaceExisting tests that an existing header is replaced in place, not duplicated.
func TestHeaders_ReplaceExisting(t *testing.T) {
	headers := Headers{
		{Name: "ApplicationToken", Namespace: ns, Value: "app"},
		{Name: "DeveloperToken", Namespace: "urn:original", Value: "old"},
		{Name: "CustomerId", Namespace: ns, Value: "1"},
	}

	replaced := headers.Replace("DeveloperToken", ns, "new")

	assert.True(t, replaced)
	assert.Len(t, headers, 3)
	assert.Equal(t, 1, headers.Find("DeveloperToken"))
	assert.Equal(t, Header{Name: "DeveloperToken", Namespace: "urn:original", Value: "new"}, headers[1])
}

// TestHeaders_ReplaceAddsOnce tests that a missing header is appended exactly once.
func TestHeaders_ReplaceAddsOnce(t *testing.T) {
	var headers Headers

	assert.False(t, headers.Replace("DeveloperToken", ns, "a"))
	assert.True(t, headers.Replace("DeveloperToken", ns, "b"))

	assert.Equal(t, Headers{{Name: "DeveloperToken", Namespace: ns, Value: "b"}}, headers)
}

// TestHeaders_ReplaceFillsMissingNamespace tests the namespace fallback.
func TestHeaders_ReplaceFillsMissingNamespace(t *testing.T) {
	headers := Headers{{Name: "CustomerId", Value: "1"}}

	headers.Replace("CustomerId", ns, "2")

	assert.Equal(t, Header{Name: "CustomerId", Namespace: ns, Value: "2"}, headers[0])
}

// TestHeaders_Get tests lookups of present and absent headers.
func TestHeaders_Get(t *testing.T) {
	headers := Headers{{Name: "TrackingId", Namespace: ns, Value: "abc"}}

	h, ok := headers.Get("TrackingId")
	assert.True(t, ok)
	assert.Equal(t, "abc", h.Value)

	_, ok = headers.Get("Missing")
	assert.False(t, ok)
	assert.Equal(t, -1, headers.Find("Missing"))

	assert.Equal(t, "abc", (&Message{Headers: headers}).TrackingID())
	assert.Empty(t, (&Message{}).TrackingID())
}
