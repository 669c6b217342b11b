package pactrecorder

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/form3tech-oss/pact-recorder/internal/app/pactrecorder"
	"github.com/pkg/errors"
)

// RecorderConfiguration talks to the admin API of a pact-recorder.
type RecorderConfiguration struct {
	client http.Client
	url    string
}

type Config pactrecorder.Config

func Configuration(url string) *RecorderConfiguration {
	return &RecorderConfiguration{
		client: http.Client{
			Timeout: 30 * time.Second,
		},
		url: url,
	}
}

func (conf *RecorderConfiguration) SetupRecorder(serverAddress, targetAddress string) (*PactRecorder, error) {
	serverURL, err := url.Parse(serverAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse server address")
	}
	targetURL, err := url.Parse(targetAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse target address")
	}

	config := &Config{
		ServerAddress: *serverURL,
		Target:        *targetURL,
	}
	return conf.SetupRecorderWithConfig(config)
}

func (conf *RecorderConfiguration) SetupRecorderWithConfig(config *Config) (*PactRecorder, error) {
	content, err := json.Marshal(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}

	req, err := http.NewRequest(http.MethodPost, conf.endpoint("/recorders"), bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := conf.do(req); err != nil {
		return nil, errors.Wrap(err, "failed to set up recorder")
	}
	return New(config.ServerAddress.String()), nil
}

// Reset closes every recorder.
func (conf *RecorderConfiguration) Reset() error {
	req, err := http.NewRequest(http.MethodDelete, conf.endpoint("/recorders"), nil)
	if err != nil {
		return err
	}
	return errors.Wrap(conf.do(req), "error resetting recorders")
}

// CleanPacts removes the pacts of previous runs, from dir or, when empty, from every
// directory a recorder writes to.
func (conf *RecorderConfiguration) CleanPacts(dir string) error {
	endpoint := conf.endpoint("/pacts")
	if dir != "" {
		endpoint += "?" + url.Values{"dir": []string{dir}}.Encode()
	}

	req, err := http.NewRequest(http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	return errors.Wrap(conf.do(req), "error cleaning pacts")
}

func (conf *RecorderConfiguration) endpoint(path string) string {
	return strings.TrimSuffix(conf.url, "/") + path
}

func (conf *RecorderConfiguration) do(req *http.Request) error {
	res, err := conf.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return errorFromResponse(res)
}
