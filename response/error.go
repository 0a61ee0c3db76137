// response/error.go
// This package turns SOAP replies into payloads or structured faults.
package response

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/deploymenttheory/go-api-soap-client/status"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Fault is a call rejected by the remote service or by an intermediary in front of it.
type Fault struct {
	StatusCode  int      `json:"status_code"`           // HTTP status code
	Action      string   `json:"action,omitempty"`      // SOAP action of the request
	URL         string   `json:"url"`                   // The URL of the service endpoint
	Code        string   `json:"code,omitempty"`        // faultcode, e.g. "s:Server"
	Message     string   `json:"message"`               // faultstring or a summary of the body
	TrackingID  string   `json:"tracking_id,omitempty"` // TrackingId reported by the service
	Errors      []Errors `json:"errors,omitempty"`      // Errors listed in the fault detail
	Detail      string   `json:"-"`                     // Detail is the XML of the fault detail payload
	RawResponse string   `json:"-"`                     // Raw response body for debugging
}

// Errors represents one error of a fault detail, such as an AdApiError or an OperationError.
type Errors struct {
	Code      string `json:"code,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Error returns a string representation of the Fault, making it compatible with the error interface.
func (f *Fault) Error() string {
	data, err := json.Marshal(f)
	if err == nil {
		return "SOAP fault: " + string(data)
	}
	return fmt.Sprintf("SOAP fault: StatusCode=%d, Message=%s", f.StatusCode, f.Message)
}

// Transient reports whether the status code suggests the same call may succeed later, as with throttling
// or a gateway timeout. The client never retries on its own.
func (f *Fault) Transient() bool {
	return status.IsRetryableStatusCode(f.StatusCode)
}

// DetailAs decodes the fault detail payload into out.
func (f *Fault) DetailAs(out any) error {
	if f.Detail == "" {
		return errors.New("fault carries no detail")
	}
	return decodeFirstChild([]byte(f.RawResponse), func(name xml.Name) bool {
		return name.Local == "detail" || name.Local == "Detail"
	}, out)
}

// GetFaultDetail returns the detail payload of the Fault wrapped in err, if any.
func GetFaultDetail(err error) (string, bool) {
	var fault *Fault
	if !errors.As(err, &fault) || fault.Detail == "" {
		return "", false
	}
	return fault.Detail, true
}

// IsFault reports whether body is a SOAP envelope carrying a Fault.
func IsFault(body []byte) bool {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return findFault(doc) != nil
}

// HandleFaultResponse builds a Fault from a failed reply and logs it.
func HandleFaultResponse(resp *http.Response, body []byte, action string, log logger.Logger) *Fault {
	fault := &Fault{
		StatusCode:  resp.StatusCode,
		Action:      action,
		RawResponse: string(body),
		Message:     "SOAP call failed",
	}
	if resp.Request != nil && resp.Request.URL != nil {
		fault.URL = resp.Request.URL.String()
	}

	mimeType, _ := parseHeader(resp.Header.Get("Content-Type"))
	switch mimeType {
	case "text/xml", "application/xml", "application/soap+xml":
		parseXMLResponse(body, fault)
	case "text/html":
		parseHTMLResponse(body, fault)
	case "application/json":
		parseJSONResponse(body, fault)
	case "text/plain":
		parseTextResponse(body, fault)
	default:
		fault.Message = "Unknown content type error"
	}
	if status.IsRedirectStatusCode(resp.StatusCode) {
		fault.Message = fmt.Sprintf("Redirect to %q not followed", resp.Header.Get("Location"))
	}
	if fault.Message == "" {
		fault.Message = http.StatusText(resp.StatusCode)
	}

	logger.LogFault(logger.OrNop(log), action, fault.URL, fault.StatusCode, fault.Code, fault.Message)
	if fault.TrackingID != "" {
		logger.OrNop(log).Debug("Fault tracking id", zap.String("TrackingId", fault.TrackingID))
	}
	return fault
}

func findFault(doc *xmlquery.Node) *xmlquery.Node {
	return xmlquery.FindOne(doc, "//*[local-name()='Envelope']/*[local-name()='Body']/*[local-name()='Fault']")
}

// parseXMLResponse extracts faultcode, faultstring and detail from a SOAP fault. Other XML bodies
// accumulate their text content into the message.
func parseXMLResponse(body []byte, fault *Fault) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		fault.Message = "Failed to parse XML response"
		return
	}

	node := findFault(doc)
	if node == nil {
		var messages []string
		var traverse func(*xmlquery.Node)
		traverse = func(n *xmlquery.Node) {
			if n.Type == xmlquery.TextNode && strings.TrimSpace(n.Data) != "" {
				messages = append(messages, strings.TrimSpace(n.Data))
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				traverse(c)
			}
		}
		traverse(doc)
		fault.Message = strings.Join(messages, "; ")
		return
	}

	fault.Code = childText(node, "faultcode")
	fault.Message = childText(node, "faultstring")
	if tracking := xmlquery.FindOne(doc, "//*[local-name()='TrackingId']"); tracking != nil {
		fault.TrackingID = strings.TrimSpace(tracking.InnerText())
	}

	detail := xmlquery.FindOne(node, "./*[local-name()='detail']")
	if detail == nil {
		return
	}
	if payload := firstElement(detail); payload != nil {
		fault.Detail = payload.OutputXML(true)
	} else {
		fault.Detail = strings.TrimSpace(detail.InnerText())
	}

	for _, e := range xmlquery.Find(detail, ".//*[local-name()='Errors' or local-name()='OperationErrors' or local-name()='BatchErrors']/*") {
		if e.Type != xmlquery.ElementNode {
			continue
		}
		fault.Errors = append(fault.Errors, Errors{
			Code:      childText(e, "Code"),
			ErrorCode: childText(e, "ErrorCode"),
			Message:   childText(e, "Message"),
			Detail:    childText(e, "Detail"),
		})
	}
}

func childText(n *xmlquery.Node, local string) string {
	child := xmlquery.FindOne(n, "./*[local-name()='"+local+"']")
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.InnerText())
}

func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// parseJSONResponse picks the message out of a JSON error body.
func parseJSONResponse(body []byte, fault *Fault) {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return
	}
	if payload.Message != "" {
		fault.Message = payload.Message
	} else if payload.Error != "" {
		fault.Message = payload.Error
	}
}

// parseTextResponse uses a plain text body as the message.
func parseTextResponse(body []byte, fault *Fault) {
	fault.Message = strings.TrimSpace(string(body))
}

// parseHTMLResponse extracts meaningful information from an HTML error page, typically served by a
// gateway, concatenating all text within <p> tags and links found within them.
func parseHTMLResponse(body []byte, fault *Fault) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return
	}

	var messages []string
	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "title") {
			var content strings.Builder
			var traverseChildren func(*html.Node)
			traverseChildren = func(c *html.Node) {
				if c.Type == html.TextNode {
					content.WriteString(strings.TrimSpace(c.Data) + " ")
				} else if c.Type == html.ElementNode && c.Data == "a" {
					for _, attr := range c.Attr {
						if attr.Key == "href" {
							content.WriteString("[Link: " + attr.Val + "] ")
							break
						}
					}
				}
				for child := c.FirstChild; child != nil; child = child.NextSibling {
					traverseChildren(child)
				}
			}
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				traverseChildren(child)
			}
			if text := strings.TrimSpace(content.String()); text != "" {
				messages = append(messages, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}
	parse(doc)

	if len(messages) > 0 {
		fault.Message = strings.Join(messages, "; ")
	} else {
		fault.Message = "HTML Error: See 'Raw' field for details."
	}
}
