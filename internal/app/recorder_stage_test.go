package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/form3tech-oss/pact-recorder/pkg/pactrecorder"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

const todoProviderName = "todo-api"

type RecorderStage struct {
	t              *testing.T
	assert         *assert.Assertions
	recorder       *pactrecorder.PactRecorder
	consumer       string
	responses      []*http.Response
	responseBodies [][]byte
	recordErr      error
}

func NewRecorderStage(t *testing.T) (*RecorderStage, *RecorderStage, *RecorderStage) {
	recorder, err := setupAndWaitForRecorder()
	if err != nil {
		t.Fatalf("Error setting up recorder: %v", err)
	}

	s := &RecorderStage{
		t:        t,
		assert:   assert.New(t),
		recorder: recorder,
		consumer: "todo-ui-" + strconv.FormatInt(time.Now().UnixNano(), 10),
	}

	s.t.Cleanup(func() {
		_ = pactrecorder.Configuration(adminURL.String()).Reset()
	})

	return s, s, s
}

func setupAndWaitForRecorder() (*pactrecorder.PactRecorder, error) {
	retryOpts := []retry.Option{
		retry.Attempts(10),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(100 * time.Millisecond),
	}

	var recorder *pactrecorder.PactRecorder
	err := retry.Do(func() error {
		var err error
		recorder, err = pactrecorder.
			Configuration(adminURL.String()).
			SetupRecorderWithConfig(&pactrecorder.Config{
				ServerAddress:    *recorderURL,
				Target:           *providerURL,
				PactDir:          pactDir,
				HeadersBlocklist: []string{"x-request-id"},
				WaitDelay:        20 * time.Millisecond,
				WaitDuration:     2 * time.Second,
			})
		return err
	}, retryOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "recorder setup failed")
	}

	err = retry.Do(recorder.IsReady, retryOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "recorder readiness wait failed")
	}

	return recorder, nil
}

func (s *RecorderStage) and() *RecorderStage {
	return s
}

func (s *RecorderStage) pactPath() string {
	return filepath.Join(pactDir, todoProviderName+"-"+s.consumer+".json")
}

func (s *RecorderStage) pact() []byte {
	data, err := os.ReadFile(s.pactPath())
	if err != nil {
		s.t.Fatalf("unable to read pact: %v", err)
	}
	return data
}

func (s *RecorderStage) a_pact_for_the_todo_ui() *RecorderStage {
	s.assert.NoError(s.recorder.SetupPact(s.consumer, todoProviderName))
	return s
}

func (s *RecorderStage) a_header_blocklist_of(headers ...string) *RecorderStage {
	_, err := s.recorder.SetupHeaderBlocklist(headers...)
	s.assert.NoError(err)
	return s
}

func (s *RecorderStage) the_todos_are_listed_as(title, alias string) *RecorderStage {
	return s.a_request_is_sent(http.MethodGet, "/api/todo", "", title, alias)
}

func (s *RecorderStage) a_todo_is_created_as(title, content string) *RecorderStage {
	body, err := json.Marshal(todo{Content: content})
	s.assert.NoError(err)
	return s.a_request_is_sent(http.MethodPost, "/api/todo", string(body), title, "")
}

func (s *RecorderStage) a_request_is_sent(method, path, body, title, alias string) *RecorderStage {
	req, err := http.NewRequest(method, recorderURL.String()+path, bytes.NewBufferString(body))
	if err != nil {
		s.t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Trace", "trace-1")
	if title != "" {
		pactrecorder.WithDescription(req, title, alias)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatal(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	s.assert.NoError(err)
	s.responses = append(s.responses, res)
	s.responseBodies = append(s.responseBodies, data)
	return s
}

func (s *RecorderStage) a_capture_is_posted(title, alias, capture string) *RecorderStage {
	_, s.recordErr = s.recorder.Record(pactrecorder.Recording{
		Title: title,
		Alias: alias,
		Capture: func() pactrecorder.Capture {
			var c pactrecorder.Capture
			s.assert.NoError(json.Unmarshal([]byte(capture), &c))
			return c
		}(),
	})
	return s
}

func (s *RecorderStage) the_session_is_reset() *RecorderStage {
	s.assert.NoError(s.recorder.ResetSession())
	return s
}

func (s *RecorderStage) n_todos_are_created_concurrently(n int, title func(i int) string) *RecorderStage {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _ := json.Marshal(todo{Content: "todo " + strconv.Itoa(i)})
			req, err := http.NewRequest(http.MethodPost, recorderURL.String()+"/api/todo", bytes.NewReader(body))
			if err != nil {
				s.assert.NoError(err)
				return
			}
			req.Header.Set("Content-Type", "application/json")
			res, err := http.DefaultClient.Do(pactrecorder.WithDescription(req, title(i), ""))
			if err != nil {
				s.assert.NoError(err)
				return
			}
			res.Body.Close()
		}()
	}
	wg.Wait()
	return s
}

func (s *RecorderStage) the_recorder_has_recorded(count int) *RecorderStage {
	s.assert.NoError(s.recorder.WaitForAll(count))
	return s
}

func (s *RecorderStage) the_response_is_(statusCode int) *RecorderStage {
	if s.assert.NotEmpty(s.responses) {
		s.assert.Equal(statusCode, s.responses[len(s.responses)-1].StatusCode)
	}
	return s
}

func (s *RecorderStage) the_pact_has_interactions(descriptions ...string) *RecorderStage {
	var actual []string
	for _, d := range gjson.GetBytes(s.pact(), "interactions.#.description").Array() {
		actual = append(actual, d.String())
	}
	s.assert.Equal(descriptions, actual)
	return s
}

func (s *RecorderStage) the_pact_has_n_interactions(n int) *RecorderStage {
	s.assert.Len(gjson.GetBytes(s.pact(), "interactions").Array(), n)
	return s
}

func (s *RecorderStage) the_pact_is_between_the_todo_ui_and_api() *RecorderStage {
	pact := s.pact()
	s.assert.Equal(s.consumer, gjson.GetBytes(pact, "consumer.name").String())
	s.assert.Equal(todoProviderName, gjson.GetBytes(pact, "provider.name").String())
	s.assert.Equal("2.0.0", gjson.GetBytes(pact, "metadata.pactSpecification.version").String())
	return s
}

func (s *RecorderStage) the_nth_interaction_has_(n int, path, value string) *RecorderStage {
	s.assert.Equal(value, gjson.GetBytes(s.pact(), "interactions."+strconv.Itoa(n)+"."+path).String())
	return s
}

func (s *RecorderStage) the_nth_interaction_body_is_(n int, body string) *RecorderStage {
	s.assert.JSONEq(body, gjson.GetBytes(s.pact(), "interactions."+strconv.Itoa(n)+".response.body").Raw)
	return s
}

func (s *RecorderStage) the_nth_interaction_lists_todo_(n int, content string) *RecorderStage {
	query := "interactions." + strconv.Itoa(n) + `.response.body.#(content=="` + content + `")`
	s.assert.True(gjson.GetBytes(s.pact(), query).Exists(), "no todo %q in interaction %d", content, n)
	return s
}

func (s *RecorderStage) no_interaction_has_header_(header string) *RecorderStage {
	for _, interaction := range gjson.GetBytes(s.pact(), "interactions").Array() {
		s.assert.False(interaction.Get("request.headers."+header).Exists(), "request header %s", header)
		s.assert.False(interaction.Get("response.headers."+header).Exists(), "response header %s", header)
	}
	return s
}

func (s *RecorderStage) the_nth_interaction_has_header_(n int, header string) *RecorderStage {
	s.assert.True(gjson.GetBytes(s.pact(), "interactions."+strconv.Itoa(n)+".request.headers."+header).Exists())
	return s
}

func (s *RecorderStage) no_pact_was_written() *RecorderStage {
	_, err := os.Stat(s.pactPath())
	s.assert.True(os.IsNotExist(err), "pact %s exists", s.pactPath())
	return s
}

func (s *RecorderStage) the_capture_is_rejected() *RecorderStage {
	var status *pactrecorder.StatusError
	if s.assert.ErrorAs(s.recordErr, &status) {
		s.assert.Equal(http.StatusBadRequest, status.StatusCode)
	}
	return s
}
