package contract

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func mustParseCapture(t *testing.T, data string) Capture {
	t.Helper()
	capture, err := ParseCapture([]byte(data))
	require.NoError(t, err)
	return capture
}

func TestBuildInteractionTodoScenario(t *testing.T) {
	capture := mustParseCapture(t, `{
		"request": {"method": "GET", "url": "https://host/api/todo?x=1", "headers": {"accept": "application/json"}},
		"response": {
			"statusCode": 200,
			"headers": {"content-type": "application/json", "ignore-me": "x"},
			"body": [{"content": "clean desk"}]
		}
	}`)

	interaction, err := BuildInteraction(capture, "shows todo", NewBlocklist(true, "ignore-me"), nil)
	require.NoError(t, err)

	assert.Equal(t, "shows todo", interaction.Description)
	assert.Equal(t, "", interaction.ProviderState)
	assert.Equal(t, "GET", interaction.Request.Method)
	assert.Equal(t, "/api/todo", interaction.Request.Path)
	assert.Equal(t, "x=1", interaction.Request.Query)
	assert.Equal(t, Headers{"accept": SingleValue("application/json")}, interaction.Request.Headers)
	assert.Equal(t, "200", string(interaction.Response.Status))
	assert.Equal(t, Headers{"content-type": SingleValue("application/json")}, interaction.Response.Headers)
	assert.JSONEq(t, `[{"content": "clean desk"}]`, string(interaction.Response.Body))
}

func TestBuildInteractionURL(t *testing.T) {
	for _, tt := range []struct {
		name      string
		url       string
		wantPath  string
		wantQuery string
	}{
		{name: "no path", url: "https://host", wantPath: "/", wantQuery: ""},
		{name: "query parameters are sorted", url: "https://host/p?b=2&a=1", wantPath: "/p", wantQuery: "a=1&b=2"},
		{name: "repeated parameters keep their order", url: "https://host/p?a=2&a=1", wantPath: "/p", wantQuery: "a=2&a=1"},
		{name: "query encoding is normalized", url: "https://host/p?q=hello%20world&e=", wantPath: "/p", wantQuery: "e=&q=hello+world"},
		{name: "escaped path is kept", url: "http://localhost:3000/api/todo%20list/1", wantPath: "/api/todo%20list/1", wantQuery: ""},
		{name: "fragment is ignored", url: "https://host/p?x=1#top", wantPath: "/p", wantQuery: "x=1"},
		{name: "semicolons stay in the value", url: "https://host/api/todo?filter=a;b", wantPath: "/api/todo", wantQuery: "filter=a%3Bb"},
		{name: "stray percent is kept literally", url: "https://host/api/todo?q=100%", wantPath: "/api/todo", wantQuery: "q=100%25"},
		{name: "invalid escape is kept next to valid pairs", url: "https://host/api/todo?y=%zz&x=1", wantPath: "/api/todo", wantQuery: "x=1&y=%25zz"},
		{name: "empty pairs are skipped", url: "https://host/p?&a=1&&b", wantPath: "/p", wantQuery: "a=1&b="},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			capture := Capture{Request: CapturedRequest{Method: "GET", URL: tt.url}}

			interaction, err := BuildInteraction(capture, tt.name, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, interaction.Request.Path)
			assert.Equal(t, tt.wantQuery, interaction.Request.Query)
		})
	}
}

func TestBuildInteractionRejectsInvalidCaptures(t *testing.T) {
	for _, tt := range []struct {
		name        string
		url         string
		description string
	}{
		{name: "relative url", url: "/api/todo", description: "d"},
		{name: "url without host", url: "file:///tmp/todo", description: "d"},
		{name: "malformed url", url: "http://[::1", description: "d"},
		{name: "missing scheme", url: "://host/api", description: "d"},
		{name: "empty description", url: "https://host/p", description: " "},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			capture := Capture{Request: CapturedRequest{Method: "GET", URL: tt.url}}

			_, err := BuildInteraction(capture, tt.description, nil, nil)
			require.Error(t, err)

			var invalid *InvalidCaptureError
			assert.True(t, errors.As(err, &invalid), "error %v", err)
		})
	}
}

func TestBuildInteractionCombinators(t *testing.T) {
	for _, marker := range []string{CombinatorOneOf, CombinatorAnyOf, CombinatorAllOf, CombinatorNot} {
		marker := marker
		t.Run(marker, func(t *testing.T) {
			capture := mustParseCapture(t, `{
				"request": {"method": "GET", "url": "https://google.com"},
				"response": {"statusCode": 200, "body": {"`+marker+`": [{"content": "clean desk"}]}}
			}`)

			interaction, err := BuildInteraction(capture, "endpoint "+marker, nil, nil)
			require.NoError(t, err)

			encoded, err := json.Marshal(interaction)
			require.NoError(t, err)

			response := gjson.GetBytes(encoded, "response")
			assert.False(t, response.Get("body").Exists())
			assert.JSONEq(t, `[{"content": "clean desk"}]`, response.Get(marker).Raw)
		})
	}
}

func TestBuildInteractionWithoutCombinatorKeepsBody(t *testing.T) {
	for _, body := range []string{
		`[{"oneOf": "is data inside an array"}]`,
		`{"content": "clean desk"}`,
		`"oneOf"`,
	} {
		capture := Capture{
			Request:  CapturedRequest{Method: "GET", URL: "https://host/"},
			Response: &CapturedResponse{Status: json.RawMessage(`200`), Body: json.RawMessage(body)},
		}

		interaction, err := BuildInteraction(capture, "regular", nil, nil)
		require.NoError(t, err)
		assert.JSONEq(t, body, string(interaction.Response.Body))
		assert.Nil(t, interaction.Response.OneOf)
	}
}

func TestBuildInteractionCombinatorDropsOtherKeys(t *testing.T) {
	capture := Capture{
		Request: CapturedRequest{Method: "GET", URL: "https://host/"},
		Response: &CapturedResponse{
			Status: json.RawMessage(`200`),
			Body:   json.RawMessage(`{"oneOf": [1, 2], "not": [3], "extra": true}`),
		},
	}

	interaction, err := BuildInteraction(capture, "mixed", nil, nil)
	require.NoError(t, err)

	assert.Nil(t, interaction.Response.Body)
	assert.JSONEq(t, `[1, 2]`, string(interaction.Response.OneOf))
	assert.JSONEq(t, `[3]`, string(interaction.Response.Not))
	assert.Nil(t, interaction.Response.AnyOf)
	assert.Nil(t, interaction.Response.AllOf)
}

func TestBuildInteractionMatchingRules(t *testing.T) {
	capture := mustParseCapture(t, `{
		"request": {"method": "GET", "url": "https://host/api/todo"},
		"response": {"statusCode": 200, "body": [{"content": "clean desk"}]}
	}`)
	rules := MatchingRules{
		"$.body[0].content": json.RawMessage(`{"match": "type"}`),
		"$.body.missing":    json.RawMessage(`{"match": "type"}`),
	}

	interaction, err := BuildInteraction(capture, "shows todo", nil, rules)
	require.NoError(t, err)

	assert.Equal(t, rules, interaction.Response.MatchingRules)

	rules["$.body.added"] = json.RawMessage(`{}`)
	assert.Len(t, interaction.Response.MatchingRules, 2)

	encoded, err := json.Marshal(interaction)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(encoded, "response.matchingRules").IsObject())
}

func TestBuildInteractionWithoutResponse(t *testing.T) {
	capture := Capture{
		Request: CapturedRequest{
			Method:  "POST",
			URL:     "https://localhost:3000/create",
			Headers: Headers{"content-type": SingleValue("text/plain")},
			Body:    json.RawMessage(`"hello"`),
		},
	}

	interaction, err := BuildInteraction(capture, "create todo", NewBlocklist(false), nil)
	require.NoError(t, err)

	encoded, err := json.Marshal(interaction)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"description": "create todo",
		"providerState": "",
		"request": {
			"method": "POST",
			"path": "/create",
			"headers": {"content-type": "text/plain"},
			"body": "hello",
			"query": ""
		},
		"response": {"headers": {}}
	}`, string(encoded))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "shows todo", Describe("shows todo", ""))
	assert.Equal(t, "shows todo-@getTodos", Describe("shows todo", "getTodos"))
	assert.Equal(t, "shows todo-@getTodos", Describe("shows todo", "@getTodos"))
}
