package pactrecorder

import (
	"encoding/json"
	"time"
)

type Identity struct {
	ConsumerName string `json:"consumerName"`
	ProviderName string `json:"providerName"`
}

// Interaction is a summary of an interaction recorded in the current session.
type Interaction struct {
	Description  string    `json:"description"`
	Alias        string    `json:"alias,omitempty"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	Pact         string    `json:"pact"`
	RecordCount  int       `json:"record_count"`
	LastRecorded time.Time `json:"last_recorded"`
}

// Capture is an exchange observed by the test, e.g. by intercepting browser traffic.
// Headers values are strings or lists of strings.
type Capture struct {
	Request  CapturedRequest   `json:"request"`
	Response *CapturedResponse `json:"response,omitempty"`
}

type CapturedRequest struct {
	Method  string                 `json:"method"`
	URL     string                 `json:"url"`
	Headers map[string]interface{} `json:"headers,omitempty"`
	Body    json.RawMessage        `json:"body,omitempty"`
}

type CapturedResponse struct {
	StatusCode int                    `json:"statusCode,omitempty"`
	StatusText string                 `json:"statusText,omitempty"`
	Headers    map[string]interface{} `json:"headers,omitempty"`
	Body       json.RawMessage        `json:"body,omitempty"`
}

// Recording names a capture and tunes how it is written to the pact.
type Recording struct {
	Title            string                     `json:"title"`
	Alias            string                     `json:"alias,omitempty"`
	Capture          Capture                    `json:"capture"`
	MatchingRules    map[string]json.RawMessage `json:"matchingRules,omitempty"`
	HeadersBlocklist []string                   `json:"headersBlocklist,omitempty"`
}

type RecordedInteraction struct {
	Pact        string          `json:"pact"`
	Interaction json.RawMessage `json:"interaction"`
}
