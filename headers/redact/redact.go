// headers/redact/redact.go
package redact

// sensitiveKeys lists header names whose values are credentials.
var sensitiveKeys = map[string]bool{
	"AuthenticationToken": true,
	"DeveloperToken":      true,
	"Password":            true,
	"Authorization":       true,
}

// RedactSensitiveHeaderData redacts sensitive data based on the hideSensitiveData flag.
func RedactSensitiveHeaderData(hideSensitiveData bool, key, value string) string {
	if hideSensitiveData && sensitiveKeys[key] {
		return "REDACTED"
	}
	return value
}
