// apiclient/identity.go
/* Package apiclient builds authenticated SOAP clients for the advertising API. A ClientFactory resolves the
endpoint of each service, attaches a RequestAuthenticator to the transport pipeline and hands out disposable
ServiceClient handles, either one at a time or bundled per API version. */
package apiclient

import "github.com/deploymenttheory/go-api-soap-client/soap"

// Names of the identity elements in the SOAP header of every request.
const (
	HeaderDeveloperToken      = "DeveloperToken"
	HeaderAuthenticationToken = "AuthenticationToken"
	HeaderCustomerID          = "CustomerId"
	HeaderCustomerAccountID   = "CustomerAccountId"
)

// Identity is the set of credentials attached to a request. The factory keeps one as a template; every
// request gets its own value carrying the token resolved for it, so requests never share a token field.
// Empty fields are treated as absent.
type Identity struct {
	DeveloperToken      string
	AuthenticationToken string
	CustomerID          string
	CustomerAccountID   string
	HeaderNamespace     string
}

// WithAuthenticationToken returns a copy of id carrying token.
func (id Identity) WithAuthenticationToken(token string) Identity {
	id.AuthenticationToken = token
	return id
}

// Stamp sets one header per non-empty identity field, replacing a header of the same name if the request
// already has one. Empty fields leave the headers untouched. It returns the number of headers written.
func (id Identity) Stamp(headers *soap.Headers) int {
	fields := []struct {
		name  string
		value string
	}{
		{HeaderDeveloperToken, id.DeveloperToken},
		{HeaderAuthenticationToken, id.AuthenticationToken},
		{HeaderCustomerID, id.CustomerID},
		{HeaderCustomerAccountID, id.CustomerAccountID},
	}

	stamped := 0
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		headers.Replace(f.name, id.HeaderNamespace, f.value)
		stamped++
	}
	return stamped
}
