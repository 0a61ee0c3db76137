// soap/message.go
/* Package soap is a small SOAP 1.1 client transport. A ChannelFactory holds the endpoint, binding and
interceptors; each Channel it creates sends Messages as HTTP POSTs, runs the interceptors around every
call and reports rejected calls as *response.Fault. */
package soap

import (
	"net/http"

	"github.com/deploymenttheory/go-api-soap-client/response"
)

// Header is one namespace-qualified element of the SOAP header.
type Header struct {
	Name      string
	Namespace string
	Value     string
}

// Headers is the ordered list of SOAP header elements of a message.
type Headers []Header

// Find returns the index of the first header named name, or -1.
func (h Headers) Find(name string) int {
	for i := range h {
		if h[i].Name == name {
			return i
		}
	}
	return -1
}

// Get returns the first header named name.
func (h Headers) Get(name string) (Header, bool) {
	if i := h.Find(name); i >= 0 {
		return h[i], true
	}
	return Header{}, false
}

// Replace sets the value of the header named name. An existing header keeps its position and its
// namespace, falling back to namespace when it has none. Otherwise the header is appended once.
// Replace reports whether an existing header was replaced.
func (h *Headers) Replace(name, namespace, value string) bool {
	if i := h.Find(name); i >= 0 {
		existing := &(*h)[i]
		if existing.Namespace == "" {
			existing.Namespace = namespace
		}
		existing.Value = value
		return true
	}
	*h = append(*h, Header{Name: name, Namespace: namespace, Value: value})
	return false
}

// Message is a SOAP request or reply. Requests carry a Body marshalled with encoding/xml; replies
// carry the raw envelope and the HTTP metadata they arrived with.
type Message struct {
	Action  string
	Headers Headers
	Body    any

	StatusCode int
	HTTPHeader http.Header
	Raw        []byte
}

// NewMessage creates a request for action with body as the payload of soap:Body.
func NewMessage(action string, body any) *Message {
	return &Message{Action: action, Body: body}
}

// Decode decodes the payload of a reply into out.
func (m *Message) Decode(out any) error {
	return response.DecodeBody(m.Raw, out)
}

// TrackingID returns the TrackingId header of a reply, if the service sent one.
func (m *Message) TrackingID() string {
	header, _ := m.Headers.Get("TrackingId")
	return header.Value
}
