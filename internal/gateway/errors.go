package gateway

import (
	"fmt"

	"github.com/rmitchellscott/pdfgateway/internal/staging"
)

// ValidationError is raised before any network call.
type ValidationError = staging.ValidationError

// TransportError means no HTTP response was received from RobotPDF.
type TransportError struct {
	Err     error
	Timeout bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("robotpdf request timeout: %v", e.Err)
	}
	return fmt.Sprintf("robotpdf request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx reply. Message is what RobotPDF said, if anything.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("robotpdf returned status %d", e.Status)
	}
	return fmt.Sprintf("robotpdf returned status %d: %s", e.Status, e.Message)
}

// UpstreamFormatError is a 2xx reply the gateway could not interpret.
type UpstreamFormatError struct {
	Reason string
	Err    error
}

func (e *UpstreamFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable robotpdf response: %s: %v", e.Reason, e.Err)
	}
	return "unreadable robotpdf response: " + e.Reason
}

func (e *UpstreamFormatError) Unwrap() error { return e.Err }
