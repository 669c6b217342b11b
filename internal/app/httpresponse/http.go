package httpresponse

import (
	"fmt"
	"net/http"

	"github.com/form3tech-oss/pact-recorder/internal/app/contract"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type APIError struct {
	ErrorMessage string `json:"error_message"`
}

func (e *APIError) Error() string {
	return e.ErrorMessage
}

func Error(message string) *APIError {
	log.Error(message)
	return &APIError{ErrorMessage: message}
}

func Errorf(format string, a ...interface{}) *APIError {
	return Error(fmt.Sprintf(format, a...))
}

// FromRecordError maps a failure to build or merge an interaction to a status code:
// bad captures are the caller's fault, corrupt pacts conflict with what is on disk and
// anything else is a storage failure.
func FromRecordError(err error) (int, *APIError) {
	var invalid *contract.InvalidCaptureError
	var corrupt *contract.CorruptDocumentError

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, Errorf("unable to record interaction. %s", err.Error())
	case errors.As(err, &corrupt):
		return http.StatusConflict, Errorf("unable to merge into existing pact. %s", err.Error())
	default:
		return http.StatusInternalServerError, Errorf("unable to store pact. %s", err.Error())
	}
}
