// soap/envelope.go
package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/deploymenttheory/go-api-soap-client/response"
)

type envelope struct {
	XMLName xml.Name        `xml:"soap:Envelope"`
	NS      string          `xml:"xmlns:soap,attr"`
	Header  *envelopeHeader `xml:"soap:Header,omitempty"`
	Body    envelopeBody    `xml:"soap:Body"`
}

type envelopeHeader struct {
	Items []headerElement
}

// headerElement takes its element name and namespace from XMLName.
type headerElement struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type envelopeBody struct {
	Content any
}

// marshalEnvelope renders m as a SOAP 1.1 envelope.
func marshalEnvelope(m *Message) ([]byte, error) {
	env := envelope{NS: response.EnvelopeNamespace, Body: envelopeBody{Content: m.Body}}
	if len(m.Headers) > 0 {
		env.Header = &envelopeHeader{}
		for _, h := range m.Headers {
			env.Header.Items = append(env.Header.Items, headerElement{
				XMLName: xml.Name{Space: h.Namespace, Local: h.Name},
				Value:   h.Value,
			})
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", m.Action, err)
	}
	return buf.Bytes(), nil
}

// parseReplyHeaders lists the SOAP header elements of a reply envelope.
func parseReplyHeaders(raw []byte) (Headers, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	var headers Headers
	for _, n := range xmlquery.Find(doc, "//*[local-name()='Envelope']/*[local-name()='Header']/*") {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		headers = append(headers, Header{
			Name:      n.Data,
			Namespace: n.NamespaceURI,
			Value:     strings.TrimSpace(n.InnerText()),
		})
	}
	return headers, nil
}
