package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rmitchellscott/pdfgateway/internal/staging"
)

// ErrorReport is the caller-facing outcome of a failed request.
type ErrorReport struct {
	Status  int
	Message string
}

var timeoutMarkers = []string{"timeout", "ETIMEDOUT", "UND_ERR_HEADERS_TIMEOUT"}

// Classify maps err to a status and message. The first matching rule wins.
// Internal error text is only inspected, never returned.
func Classify(spec OperationSpec, err error) ErrorReport {
	var ve *staging.ValidationError
	if errors.As(err, &ve) {
		return ErrorReport{Status: http.StatusBadRequest, Message: ve.Message}
	}
	if errors.Is(err, staging.ErrFileTooLarge) {
		return ErrorReport{Status: http.StatusRequestEntityTooLarge, Message: msgTooLarge}
	}

	var (
		status  int
		message string
		detail  string
		timeout bool
	)

	var upErr *UpstreamError
	var trErr *TransportError
	var fmtErr *UpstreamFormatError
	switch {
	case errors.As(err, &upErr):
		status = upErr.Status
		message = upErr.Message
		detail = message
	case errors.As(err, &trErr):
		timeout = trErr.Timeout
		detail = trErr.Err.Error()
	case errors.As(err, &fmtErr):
		return ErrorReport{Status: http.StatusBadGateway, Message: msgBadResponse}
	case err != nil:
		detail = err.Error()
	}

	fallback := func(s int) int {
		if status != 0 {
			return status
		}
		return s
	}

	if spec.FaultMarker != "" && strings.Contains(detail, spec.FaultMarker) {
		return ErrorReport{Status: fallback(http.StatusInternalServerError), Message: spec.FaultMessage}
	}

	if timeout || status == http.StatusGatewayTimeout || containsAny(detail, timeoutMarkers) {
		return ErrorReport{Status: fallback(http.StatusGatewayTimeout), Message: spec.TimeoutMessage}
	}

	if status == http.StatusServiceUnavailable {
		return ErrorReport{Status: status, Message: msgUnavailable}
	}

	if status == http.StatusBadRequest && message == "" && spec.InvalidMessage != "" {
		return ErrorReport{Status: status, Message: spec.InvalidMessage}
	}

	if message == "" {
		message = msgGeneric
	}
	return ErrorReport{Status: fallback(http.StatusInternalServerError), Message: message}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// LabeledError is the failure body for OCR and Split.
type LabeledError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FlagError is the failure body for the file-producing operations.
type FlagError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ErrorBody renders r in the operation's failure style.
func ErrorBody(spec OperationSpec, r ErrorReport) any {
	if spec.ErrorStyle == StyleLabeled {
		return LabeledError{Error: spec.Label + " failed", Message: r.Message}
	}
	return FlagError{Success: false, Error: r.Message}
}
