// environment/environment.go
/* Package environment holds the static configuration surface of the advertising API: per environment
redirect URI, OAuth scopes, header namespace, authorization endpoints and the endpoint URL table
keyed by API version and service type. */
package environment

import (
	"sort"
	"strings"
	"sync"

	apierrors "github.com/deploymenttheory/go-api-soap-client/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// Environment identifies a deployment of the remote API.
type Environment string

// APIVersion identifies a generation of the remote service contracts.
type APIVersion string

// ServiceType names one remote service interface.
type ServiceType string

const (
	Production Environment = "Production"

	V13 APIVersion = "V13"

	AdInsight          ServiceType = "AdInsight"
	Bulk               ServiceType = "Bulk"
	CampaignManagement ServiceType = "CampaignManagement"
	CustomerBilling    ServiceType = "CustomerBilling"
	CustomerManagement ServiceType = "CustomerManagement"
	Reporting          ServiceType = "Reporting"
)

// ServiceTypes lists every service known to the V13 bundle, in declaration order.
var ServiceTypes = []ServiceType{AdInsight, Bulk, CampaignManagement, CustomerBilling, CustomerManagement, Reporting}

// Settings is everything the client needs to know about one environment.
type Settings struct {
	RedirectURI     string                               // RedirectURI used to fetch the OAuth access token.
	Scopes          []string                             // Scopes requested for the access token.
	HeaderNamespace string                               // HeaderNamespace qualifies the identity headers in every request.
	AuthEndpoint    oauth2.Endpoint                      // AuthEndpoint is the authorization server of the identity store.
	Endpoints       map[APIVersion]map[ServiceType]string // Endpoints maps API version and service type to a service URL.
}

var (
	mu       sync.RWMutex
	registry = map[Environment]Settings{
		Production: {
			RedirectURI:     "https://login.microsoftonline.com/common/oauth2/nativeclient",
			Scopes:          []string{"https://ads.microsoft.com/ads.manage", "offline_access"},
			HeaderNamespace: "https://bingads.microsoft.com/Customer/v13",
			AuthEndpoint:    microsoft.AzureADEndpoint("common"),
			Endpoints: map[APIVersion]map[ServiceType]string{
				V13: {
					AdInsight:          "https://adinsight.api.bingads.microsoft.com/Api/Advertiser/AdInsight/v13/AdInsightService.svc",
					Bulk:               "https://bulk.api.bingads.microsoft.com/Api/Advertiser/CampaignManagement/V13/BulkService.svc",
					CampaignManagement: "https://campaign.api.bingads.microsoft.com/Api/Advertiser/CampaignManagement/V13/CampaignManagementService.svc",
					CustomerBilling:    "https://clientcenter.api.bingads.microsoft.com/Api/Billing/v13/CustomerBillingService.svc",
					CustomerManagement: "https://clientcenter.api.bingads.microsoft.com/Api/CustomerManagement/v13/CustomerManagementService.svc",
					Reporting:          "https://reporting.api.bingads.microsoft.com/Api/Advertiser/Reporting/V13/ReportingService.svc",
				},
			},
		},
	}
)

// Register adds or replaces the settings of an environment.
func Register(env Environment, settings Settings) {
	mu.Lock()
	defer mu.Unlock()
	registry[env] = settings
}

// Lookup returns the settings of env, or a ConfigurationError when env is not registered.
func Lookup(env Environment) (Settings, error) {
	mu.RLock()
	defer mu.RUnlock()
	settings, ok := registry[env]
	if !ok {
		return Settings{}, apierrors.NewConfigurationError("Environment", "unknown environment %q", env)
	}
	return settings, nil
}

// Scopes returns a copy of the OAuth scopes configured for env.
func Scopes(env Environment) ([]string, error) {
	settings, err := Lookup(env)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), settings.Scopes...), nil
}

// HeaderNamespace returns the identity header namespace configured for env.
func HeaderNamespace(env Environment) (string, error) {
	settings, err := Lookup(env)
	if err != nil {
		return "", err
	}
	return settings.HeaderNamespace, nil
}

// EndpointURL resolves the URL of a service. Service names match case-insensitively; an unconfigured
// service is a ConfigurationError.
func EndpointURL(env Environment, version APIVersion, service ServiceType) (string, error) {
	settings, err := Lookup(env)
	if err != nil {
		return "", err
	}
	services, ok := settings.Endpoints[version]
	if !ok {
		return "", apierrors.NewConfigurationError("APIVersion", "no endpoints configured for %s in %s", version, env)
	}
	for name, url := range services {
		if strings.EqualFold(string(name), string(service)) {
			return url, nil
		}
	}
	return "", apierrors.NewConfigurationError("ServiceType", "no endpoint configured for service %q (%s, %s)", service, env, version)
}

// Environments lists the registered environments in sorted order.
func Environments() []Environment {
	mu.RLock()
	defer mu.RUnlock()
	envs := make([]Environment, 0, len(registry))
	for env := range registry {
		envs = append(envs, env)
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i] < envs[j] })
	return envs
}

// String implements fmt.Stringer.
func (s ServiceType) String() string {
	return string(s)
}

// ParseServiceType matches name case-insensitively against ServiceTypes. A trailing "Service"
// suffix and a leading "I" interface prefix are accepted, so "ICustomerManagementService" works.
func ParseServiceType(name string) (ServiceType, error) {
	candidate := strings.TrimSuffix(name, "Service")
	for _, s := range ServiceTypes {
		if strings.EqualFold(candidate, string(s)) || strings.EqualFold(candidate, "I"+string(s)) {
			return s, nil
		}
	}
	return "", apierrors.NewConfigurationError("ServiceType", "unknown service type %q", name)
}
