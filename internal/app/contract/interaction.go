package contract

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Combinator markers: a response body carrying one of these keys describes the shapes the body
// may take instead of a literal body.
const (
	CombinatorOneOf = "oneOf"
	CombinatorAnyOf = "anyOf"
	CombinatorAllOf = "allOf"
	CombinatorNot   = "not"
)

var combinators = []string{CombinatorOneOf, CombinatorAnyOf, CombinatorAllOf, CombinatorNot}

// MatchingRules maps a pact v2 path (e.g. "$.body[*].id") to its matcher definition.
type MatchingRules map[string]json.RawMessage

type Interaction struct {
	Description   string   `json:"description"`
	ProviderState string   `json:"providerState"`
	Request       Request  `json:"request"`
	Response      Response `json:"response"`
}

type Request struct {
	Method  string          `json:"method"`
	Path    string          `json:"path"`
	Headers Headers         `json:"headers"`
	Body    json.RawMessage `json:"body,omitempty"`
	Query   string          `json:"query"`
}

type Response struct {
	Status        json.RawMessage `json:"status,omitempty"`
	Headers       Headers         `json:"headers"`
	Body          json.RawMessage `json:"body,omitempty"`
	OneOf         json.RawMessage `json:"oneOf,omitempty"`
	AnyOf         json.RawMessage `json:"anyOf,omitempty"`
	AllOf         json.RawMessage `json:"allOf,omitempty"`
	Not           json.RawMessage `json:"not,omitempty"`
	MatchingRules MatchingRules   `json:"matchingRules,omitempty"`
}

// Describe builds an interaction description from a test title and an optional capture alias,
// e.g. "shows todo-@getTodos".
func Describe(title, alias string) string {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return title
	}
	if !strings.HasPrefix(alias, "@") {
		alias = "@" + alias
	}
	return title + "-" + alias
}

// BuildInteraction normalizes a capture into an interaction recorded under description.
func BuildInteraction(capture Capture, description string, blocklist *Blocklist, rules MatchingRules) (*Interaction, error) {
	if strings.TrimSpace(description) == "" {
		return nil, invalidCapture(nil, "interaction description is empty")
	}

	path, query, err := splitURL(capture.Request.URL)
	if err != nil {
		return nil, err
	}

	interaction := &Interaction{
		Description: description,
		Request: Request{
			Method:  capture.Request.Method,
			Path:    path,
			Headers: FilterHeaders(capture.Request.Headers, blocklist),
			Body:    capture.Request.Body,
			Query:   query,
		},
		Response: Response{
			Headers: Headers{},
		},
	}

	if capture.Response != nil {
		interaction.Response.Status = capture.Response.Status
		interaction.Response.Headers = FilterHeaders(capture.Response.Headers, blocklist)
		interaction.Response.Body = capture.Response.Body
		interaction.Response.applyCombinators(description)
	}

	if len(rules) > 0 {
		interaction.Response.MatchingRules = make(MatchingRules, len(rules))
		for path, rule := range rules {
			interaction.Response.MatchingRules[path] = rule
		}
		interaction.Response.checkMatchingRules(description)
	}

	return interaction, nil
}

func splitURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", invalidCapture(err, "unable to parse url %q", raw)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", "", invalidCapture(nil, "url %q is not absolute", raw)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return path, canonicalQuery(u.RawQuery), nil
}

// canonicalQuery re-encodes a raw query with sorted keys. Only & separates pairs, and parts
// that do not unescape are kept as written, so any query of a parsed URL is accepted.
func canonicalQuery(raw string) string {
	values := url.Values{}
	for raw != "" {
		var part string
		part, raw, _ = strings.Cut(raw, "&")
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		values.Add(unescapeQuery(key), unescapeQuery(value))
	}
	return values.Encode()
}

func unescapeQuery(s string) string {
	unescaped, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return unescaped
}

// applyCombinators moves combinator markers out of the body into sibling fields. A response
// cannot carry a literal body and a combinator at the same time, so the body is dropped.
func (r *Response) applyCombinators(description string) {
	body := gjson.ParseBytes(r.Body)
	if !body.IsObject() {
		return
	}

	found := false
	for _, marker := range combinators {
		value := body.Get(marker)
		if !value.Exists() {
			continue
		}
		found = true
		raw := json.RawMessage(value.Raw)
		switch marker {
		case CombinatorOneOf:
			r.OneOf = raw
		case CombinatorAnyOf:
			r.AnyOf = raw
		case CombinatorAllOf:
			r.AllOf = raw
		case CombinatorNot:
			r.Not = raw
		}
	}
	if !found {
		return
	}

	body.ForEach(func(key, _ gjson.Result) bool {
		if !isCombinator(key.String()) {
			log.Warnf("dropping response body key '%s' of interaction '%s', body carries a combinator", key.String(), description)
		}
		return true
	})
	r.Body = nil
}

func isCombinator(key string) bool {
	for _, marker := range combinators {
		if key == marker {
			return true
		}
	}
	return false
}

// checkMatchingRules warns about v2 rule paths that select nothing in the response.
func (r *Response) checkMatchingRules(description string) {
	data, err := json.Marshal(r)
	if err != nil {
		log.Warn(errors.Wrap(err, "unable to encode response for matching rules"))
		return
	}
	var document interface{}
	if err := json.Unmarshal(data, &document); err != nil {
		log.Warn(errors.Wrap(err, "unable to decode response for matching rules"))
		return
	}
	if response, ok := document.(map[string]interface{}); ok {
		delete(response, "matchingRules")
	}

	for path := range r.MatchingRules {
		if !strings.HasPrefix(path, "$.") {
			continue
		}
		if _, err := jsonpath.Get(path, document); err != nil {
			log.WithFields(log.Fields{
				"interaction": description,
				"path":        path,
			}).Warnf("matching rule does not select anything in the response: %s", err)
		}
	}
}
