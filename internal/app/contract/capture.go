package contract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// CaptureKind tells which producer a capture came from.
type CaptureKind int

const (
	// InterceptedExchange is an exchange intercepted inside the browser; its status is spelled statusCode.
	InterceptedExchange CaptureKind = iota
	// DirectExchange is a request issued directly by the test or observed by the recording proxy;
	// its status is spelled status.
	DirectExchange
)

func (k CaptureKind) String() string {
	switch k {
	case InterceptedExchange:
		return "intercepted"
	case DirectExchange:
		return "direct"
	}
	return "unknown"
}

type CapturedRequest struct {
	Method  string
	URL     string
	Headers Headers
	Body    json.RawMessage
}

type CapturedResponse struct {
	// Status is the JSON encoded status code, a number or a string.
	Status     json.RawMessage
	StatusText string
	Headers    Headers
	Body       json.RawMessage
}

// Capture is a normalized request/response pair. Response is nil when the producer observed
// no response.
type Capture struct {
	Kind     CaptureKind
	Request  CapturedRequest
	Response *CapturedResponse
}

type rawCapture struct {
	Request  *rawCapturedRequest  `json:"request"`
	Response *rawCapturedResponse `json:"response"`
}

type rawCapturedRequest struct {
	Method  string          `json:"method"`
	URL     string          `json:"url"`
	Headers Headers         `json:"headers,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

type rawCapturedResponse struct {
	StatusCode json.RawMessage `json:"statusCode,omitempty"`
	Status     json.RawMessage `json:"status,omitempty"`
	StatusText string          `json:"statusText,omitempty"`
	Headers    Headers         `json:"headers,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// ParseCapture decodes a capture in either accepted shape. Anything that fits neither
// is rejected with an InvalidCaptureError.
func ParseCapture(data []byte) (Capture, error) {
	var raw rawCapture
	if err := json.Unmarshal(data, &raw); err != nil {
		return Capture{}, invalidCapture(err, "unable to decode capture")
	}
	return raw.normalize()
}

func (c *Capture) UnmarshalJSON(data []byte) error {
	capture, err := ParseCapture(data)
	if err != nil {
		return err
	}
	*c = capture
	return nil
}

func (r rawCapture) normalize() (Capture, error) {
	if r.Request == nil {
		return Capture{}, invalidCapture(nil, "capture has no request")
	}
	if strings.TrimSpace(r.Request.Method) == "" {
		return Capture{}, invalidCapture(nil, "captured request has no method")
	}
	if strings.TrimSpace(r.Request.URL) == "" {
		return Capture{}, invalidCapture(nil, "captured request has no url")
	}

	capture := Capture{
		Kind: InterceptedExchange,
		Request: CapturedRequest{
			Method:  strings.ToUpper(r.Request.Method),
			URL:     r.Request.URL,
			Headers: r.Request.Headers,
			Body:    presentBody(r.Request.Body),
		},
	}
	if r.Response == nil {
		return capture, nil
	}

	statusCode := presentStatus(r.Response.StatusCode)
	status := presentStatus(r.Response.Status)
	switch {
	case statusCode != nil && status != nil && !sameStatus(statusCode, status):
		return Capture{}, invalidCapture(nil, "captured response has conflicting statusCode %s and status %s", statusCode, status)
	case statusCode != nil:
		capture.Kind = InterceptedExchange
	case status != nil:
		capture.Kind = DirectExchange
		statusCode = status
	default:
		return Capture{}, invalidCapture(nil, "captured response has neither statusCode nor status")
	}
	if !validStatus(statusCode) {
		return Capture{}, invalidCapture(nil, "captured response status must be a number or a string, got %s", statusCode)
	}

	capture.Response = &CapturedResponse{
		Status:     statusCode,
		StatusText: r.Response.StatusText,
		Headers:    r.Response.Headers,
		Body:       presentBody(r.Response.Body),
	}
	return capture, nil
}

// presentBody maps an absent JSON value to nil. An explicit null is kept.
func presentBody(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return raw
}

func presentStatus(raw json.RawMessage) json.RawMessage {
	raw = presentBody(raw)
	if raw != nil && gjson.ParseBytes(raw).Type == gjson.Null {
		return nil
	}
	return raw
}

func validStatus(raw json.RawMessage) bool {
	result := gjson.ParseBytes(raw)
	return result.Type == gjson.Number || result.Type == gjson.String
}

func sameStatus(a, b json.RawMessage) bool {
	return gjson.ParseBytes(a).String() == gjson.ParseBytes(b).String()
}

func (c Capture) MarshalJSON() ([]byte, error) {
	raw := rawCapture{
		Request: &rawCapturedRequest{
			Method:  c.Request.Method,
			URL:     c.Request.URL,
			Headers: c.Request.Headers,
			Body:    c.Request.Body,
		},
	}
	if c.Response != nil {
		raw.Response = &rawCapturedResponse{
			StatusText: c.Response.StatusText,
			Headers:    c.Response.Headers,
			Body:       c.Response.Body,
		}
		if c.Kind == DirectExchange {
			raw.Response.Status = c.Response.Status
		} else {
			raw.Response.StatusCode = c.Response.Status
		}
	}
	return json.Marshal(raw)
}
