package contract

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	DescriptionHeader = "X-Pact-Description"
	AliasHeader       = "X-Pact-Alias"
)

// DefaultHeaderBlocklist holds headers that never end up in a pact: transport and browser
// generated headers that change between runs, and credentials.
var DefaultHeaderBlocklist = []string{
	"access-control-allow-credentials",
	"access-control-expose-headers",
	"accept-encoding",
	"accept-language",
	"authorization",
	"cache-control",
	"connection",
	"content-length",
	"cookie",
	"date",
	"etag",
	"host",
	"if-none-match",
	"keep-alive",
	"origin",
	"pragma",
	"proxy-authorization",
	"proxy-connection",
	"referer",
	"sec-ch-ua",
	"sec-ch-ua-mobile",
	"sec-ch-ua-platform",
	"sec-fetch-dest",
	"sec-fetch-mode",
	"sec-fetch-site",
	"sec-fetch-user",
	"set-cookie",
	"transfer-encoding",
	"upgrade-insecure-requests",
	"user-agent",
	"x-forwarded-for",
	"x-forwarded-host",
	"x-forwarded-proto",
	strings.ToLower(DescriptionHeader),
	strings.ToLower(AliasHeader),
}

// HeaderValue is a captured header value, serialized as a string or as a list of strings
// depending on how it was captured.
type HeaderValue struct {
	values []string
	list   bool
}

func SingleValue(value string) HeaderValue {
	return HeaderValue{values: []string{value}}
}

func ListValue(values ...string) HeaderValue {
	return HeaderValue{values: append([]string(nil), values...), list: true}
}

func (v HeaderValue) Values() []string {
	return append([]string(nil), v.values...)
}

func (v HeaderValue) String() string {
	return strings.Join(v.values, ", ")
}

func (v HeaderValue) MarshalJSON() ([]byte, error) {
	if v.list {
		if v.values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.values)
	}
	if len(v.values) == 0 {
		return []byte(`""`), nil
	}
	return json.Marshal(v.values[0])
}

func (v *HeaderValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = SingleValue(single)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.Errorf("header value must be a string or a list of strings, got %s", string(data))
	}
	*v = ListValue(list...)
	return nil
}

type Headers map[string]HeaderValue

// HeadersFromHTTP converts an http.Header, keeping single values as strings.
func HeadersFromHTTP(header http.Header) Headers {
	result := make(Headers, len(header))
	for name, values := range header {
		if len(values) == 1 {
			result[strings.ToLower(name)] = SingleValue(values[0])
			continue
		}
		result[strings.ToLower(name)] = ListValue(values...)
	}
	return result
}

// Blocklist is an immutable set of header names. Matching ignores case.
type Blocklist struct {
	names map[string]struct{}
	order []string
}

// NewBlocklist combines the global list with DefaultHeaderBlocklist unless ignoreDefault is set.
func NewBlocklist(ignoreDefault bool, global ...string) *Blocklist {
	b := &Blocklist{names: map[string]struct{}{}}
	b.add(global...)
	if !ignoreDefault {
		b.add(DefaultHeaderBlocklist...)
	}
	return b
}

// With returns a new blocklist holding the receiver's names plus the given ones.
func (b *Blocklist) With(names ...string) *Blocklist {
	next := &Blocklist{names: map[string]struct{}{}}
	next.add(names...)
	if b != nil {
		next.add(b.order...)
	}
	return next
}

func (b *Blocklist) add(names ...string) {
	for _, name := range names {
		key := normalizeHeaderName(name)
		if key == "" {
			continue
		}
		if _, exists := b.names[key]; exists {
			continue
		}
		b.names[key] = struct{}{}
		b.order = append(b.order, key)
	}
}

func (b *Blocklist) Contains(name string) bool {
	if b == nil {
		return false
	}
	_, ok := b.names[normalizeHeaderName(name)]
	return ok
}

func (b *Blocklist) Names() []string {
	if b == nil {
		return nil
	}
	names := append([]string(nil), b.order...)
	sort.Strings(names)
	return names
}

func normalizeHeaderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FilterHeaders returns a copy of headers without the blocklisted names.
// A nil map yields an empty one.
func FilterHeaders(headers Headers, blocklist *Blocklist) Headers {
	filtered := make(Headers, len(headers))
	for name, value := range headers {
		if blocklist.Contains(name) {
			continue
		}
		filtered[name] = HeaderValue{values: value.Values(), list: value.list}
	}
	return filtered
}
