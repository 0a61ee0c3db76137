// response/parse_test.go
package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContentTypeHeader(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantType   string
		wantParams map[string]string
	}{
		{"SOAP", "text/xml; charset=utf-8", "text/xml", map[string]string{"charset": "utf-8"}},
		{"Quoted", `multipart/related; type="application/xop+xml"; Boundary=abc`, "multipart/related", map[string]string{"type": "application/xop+xml", "boundary": "abc"}},
		{"NoParams", "Text/HTML", "text/html", map[string]string{}},
		{"Empty", "", "", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mimeType, params := ParseContentTypeHeader(tt.header)
			assert.Equal(t, tt.wantType, mimeType)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}
