// response/body.go
/* Decoding of successful SOAP replies. The payload element inside soap:Body is decoded with a streaming
decoder so that namespace declarations on the envelope stay in scope. */
package response

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// EnvelopeNamespace is the SOAP 1.1 envelope namespace.
const EnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"

// ErrNoBody is returned when the reply holds no soap:Body element.
var ErrNoBody = errors.New("reply has no SOAP body")

// DecodeBody decodes the first element inside soap:Body into out. An empty body leaves out untouched.
func DecodeBody(raw []byte, out any) error {
	return decodeFirstChild(raw, func(name xml.Name) bool {
		return name.Local == "Body" && name.Space == EnvelopeNamespace
	}, out)
}

// decodeFirstChild scans raw for the first element matching parent and decodes its first child element into out.
func decodeFirstChild(raw []byte, parent func(xml.Name) bool, out any) error {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	inside := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return ErrNoBody
		}
		if err != nil {
			return fmt.Errorf("failed to read reply: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if !inside {
				inside = parent(t.Name)
				continue
			}
			if err := decoder.DecodeElement(out, &t); err != nil {
				return fmt.Errorf("failed to decode %s: %w", t.Name.Local, err)
			}
			return nil
		case xml.EndElement:
			if inside {
				return nil
			}
		}
	}
}
