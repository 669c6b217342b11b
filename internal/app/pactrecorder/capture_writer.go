package pactrecorder

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/form3tech-oss/pact-recorder/internal/app/contract"
)

// CaptureWriter passes a proxied response through to the client while keeping a copy of it.
type CaptureWriter struct {
	res         http.ResponseWriter
	statusCode  int
	header      http.Header
	body        bytes.Buffer
	wroteHeader bool
	failed      bool
}

func NewCaptureWriter(res http.ResponseWriter) *CaptureWriter {
	return &CaptureWriter{res: res}
}

func (w *CaptureWriter) Header() http.Header {
	return w.res.Header()
}

func (w *CaptureWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.statusCode = statusCode
	w.header = w.res.Header().Clone()
	w.res.WriteHeader(statusCode)
}

func (w *CaptureWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	w.body.Write(b)
	return w.res.Write(b)
}

func (w *CaptureWriter) Flush() {
	if flusher, ok := w.res.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Fail marks the exchange as not worth recording, e.g. when the target was unreachable.
func (w *CaptureWriter) Fail() {
	w.failed = true
}

func (w *CaptureWriter) Failed() bool {
	return w.failed
}

func (w *CaptureWriter) Response() (*contract.CapturedResponse, error) {
	statusCode := w.statusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	header := w.header
	if header == nil {
		header = w.res.Header()
	}

	body, err := encodeBody(w.body.Bytes(), header)
	if err != nil {
		return nil, err
	}

	return &contract.CapturedResponse{
		Status:     json.RawMessage(strconv.Itoa(statusCode)),
		StatusText: http.StatusText(statusCode),
		Headers:    contract.HeadersFromHTTP(header),
		Body:       body,
	}, nil
}

func (w *CaptureWriter) Unwrap() http.ResponseWriter {
	return w.res
}
