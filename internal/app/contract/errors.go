package contract

import (
	"fmt"
)

// InvalidCaptureError is returned when a capture cannot be turned into an interaction,
// e.g. the request URL is not absolute.
type InvalidCaptureError struct {
	Reason string
	cause  error
}

func (e *InvalidCaptureError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid capture: %s: %s", e.Reason, e.cause)
	}
	return "invalid capture: " + e.Reason
}

func (e *InvalidCaptureError) Cause() error  { return e.cause }
func (e *InvalidCaptureError) Unwrap() error { return e.cause }

func invalidCapture(cause error, format string, args ...interface{}) error {
	return &InvalidCaptureError{Reason: fmt.Sprintf(format, args...), cause: cause}
}

// CorruptDocumentError is returned when previously stored pact bytes are not a valid document.
type CorruptDocumentError struct {
	Reason string
	cause  error
}

func (e *CorruptDocumentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("corrupt pact document: %s: %s", e.Reason, e.cause)
	}
	return "corrupt pact document: " + e.Reason
}

func (e *CorruptDocumentError) Cause() error  { return e.cause }
func (e *CorruptDocumentError) Unwrap() error { return e.cause }

func corruptDocument(cause error, format string, args ...interface{}) error {
	return &CorruptDocumentError{Reason: fmt.Sprintf(format, args...), cause: cause}
}
