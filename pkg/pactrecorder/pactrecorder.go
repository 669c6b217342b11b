package pactrecorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/form3tech-oss/pact-recorder/internal/app/contract"
	"github.com/form3tech-oss/pact-recorder/internal/app/pactrecorder"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	DescriptionHeader = contract.DescriptionHeader
	AliasHeader       = contract.AliasHeader
)

var ErrTimeout = errors.New("timeout waiting for interactions to be recorded")

// PactRecorder drives one recorder from a test.
type PactRecorder struct {
	client http.Client
	url    string
}

func New(url string) *PactRecorder {
	return &PactRecorder{
		client: http.Client{
			Timeout: 30 * time.Second,
		},
		url: url,
	}
}

// WithDescription names the interaction req records when sent through the recorder.
func WithDescription(req *http.Request, title, alias string) *http.Request {
	req.Header.Set(DescriptionHeader, title)
	if alias != "" {
		req.Header.Set(AliasHeader, alias)
	}
	return req
}

func (p *PactRecorder) IsReady() error {
	return p.send(http.MethodGet, "/ready", nil, nil)
}

// SetupPact selects the pact that following recordings are written to.
func (p *PactRecorder) SetupPact(consumer, provider string) error {
	return p.send(http.MethodPost, "/setup", Identity{ConsumerName: consumer, ProviderName: provider}, nil)
}

// SetupHeaderBlocklist adds headers that are left out of the following recordings.
func (p *PactRecorder) SetupHeaderBlocklist(headers ...string) ([]string, error) {
	var result struct {
		Headers []string `json:"headers"`
	}
	err := p.send(http.MethodPost, "/headers/blocklist", map[string][]string{"headers": headers}, &result)
	return result.Headers, err
}

// ResetSession restores the configured identity and blocklist and forgets recorded interactions.
func (p *PactRecorder) ResetSession() error {
	return p.send(http.MethodDelete, "/session", nil, nil)
}

func (p *PactRecorder) Record(recording Recording) (*RecordedInteraction, error) {
	var result RecordedInteraction
	if err := p.send(http.MethodPost, "/interactions", recording, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *PactRecorder) Interactions(alias string) ([]Interaction, error) {
	path := "/interactions"
	if alias != "" {
		path += "?" + url.Values{"alias": []string{alias}}.Encode()
	}

	var result struct {
		Interactions []Interaction `json:"interactions"`
	}
	if err := p.send(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Interactions, nil
}

func (p *PactRecorder) ClearInteractions() error {
	return p.send(http.MethodDelete, "/interactions", nil, nil)
}

// Pact returns the pact document of the current session.
func (p *PactRecorder) Pact() ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, p.endpoint("/document"), nil)
	if err != nil {
		return nil, err
	}
	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if err := errorFromResponse(res); err != nil {
		return nil, err
	}
	return io.ReadAll(res.Body)
}

// WaitForInteraction blocks until interaction, a description or alias, was recorded count times.
func (p *PactRecorder) WaitForInteraction(interaction string, count int) error {
	q := url.Values{}
	q.Add("interaction", interaction)
	q.Add("count", strconv.Itoa(count))
	return p.wait(q)
}

// WaitForAll blocks until count distinct interactions were recorded.
func (p *PactRecorder) WaitForAll(count int) error {
	q := url.Values{}
	q.Add("count", strconv.Itoa(count))
	return p.wait(q)
}

func (p *PactRecorder) wait(q url.Values) error {
	err := p.send(http.MethodGet, "/interactions/wait?"+q.Encode(), nil, nil)
	var status *StatusError
	if errors.As(err, &status) && status.StatusCode == http.StatusRequestTimeout {
		return ErrTimeout
	}
	return err
}

func (p *PactRecorder) endpoint(path string) string {
	return strings.TrimSuffix(p.url, "/") + pactrecorder.ControlPrefix + path
}

func (p *PactRecorder) send(method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		content, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(content)
	}

	req, err := http.NewRequest(method, p.endpoint(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if err := errorFromResponse(res); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(result), "failed to decode response")
}

// StatusError is returned when the recorder answers with a non 2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pact-recorder responded %d: %s", e.StatusCode, e.Message)
}

func errorFromResponse(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(res.Body)
	message := gjson.GetBytes(body, "error_message").String()
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	return &StatusError{StatusCode: res.StatusCode, Message: message}
}
