package pactrecorder

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/form3tech-oss/pact-recorder/internal/app/contract"
	log "github.com/sirupsen/logrus"
)

const (
	mediaTypeJSON = "application/json"
	mediaTypeText = "text/plain"
)

// bodyEncoders turn raw HTTP bodies into the JSON recorded in a pact. JSON bodies are kept
// as they are, anything else becomes a JSON string.
var bodyEncoders = map[string]func([]byte) (json.RawMessage, error){
	mediaTypeJSON: encodeJSONBody,
	mediaTypeText: encodeTextBody,
}

func encodeBody(data []byte, header http.Header) (json.RawMessage, error) {
	if len(data) == 0 {
		return nil, nil
	}

	encode, ok := bodyEncoders[parseMediaTypeHeader(header)]
	if !ok {
		encode = encodeTextBody
	}
	return encode(data)
}

func encodeJSONBody(data []byte) (json.RawMessage, error) {
	if !json.Valid(data) {
		log.Warn("body declared as JSON is not valid JSON, recording it as text")
		return encodeTextBody(data)
	}
	body := make([]byte, len(data))
	copy(body, data)
	return body, nil
}

func encodeTextBody(data []byte) (json.RawMessage, error) {
	return json.Marshal(string(data))
}

func parseMediaTypeHeader(header http.Header) string {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return mediaTypeText
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		log.WithError(err).Debugf("unable to parse Content-Type '%s', defaulting to %s", contentType, mediaTypeText)
		return mediaTypeText
	}
	if strings.HasSuffix(mediaType, "+json") {
		return mediaTypeJSON
	}
	return mediaType
}

// captureRequest describes req as it was sent to target.
func captureRequest(target *url.URL, req *http.Request, body []byte) (contract.CapturedRequest, error) {
	encoded, err := encodeBody(body, req.Header)
	if err != nil {
		return contract.CapturedRequest{}, err
	}

	return contract.CapturedRequest{
		Method:  req.Method,
		URL:     targetURL(target, req.URL),
		Headers: contract.HeadersFromHTTP(req.Header),
		Body:    encoded,
	}, nil
}

func targetURL(target, requested *url.URL) string {
	u := *target
	u.Path = singleJoiningSlash(target.Path, requested.Path)
	u.RawPath = ""
	u.RawQuery = requested.RawQuery
	u.Fragment = ""
	return u.String()
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
