package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound marks a missing recording, highlight, task or match.
	ErrNotFound = errors.New("not found")
	// ErrDecodeFailed marks a decoder run that produced no usable output.
	ErrDecodeFailed = errors.New("decode failed")
	// ErrParserUnavailable marks an absent decoder; callers switch to degraded ingestion.
	ErrParserUnavailable = errors.New("parser unavailable")
	// ErrSubprocess marks a non-zero exit with no recoverable output.
	ErrSubprocess = errors.New("subprocess failure")
	// ErrTimeout marks a bounded wait that was exceeded.
	ErrTimeout = errors.New("timeout")
	// ErrCaptureInteractive marks a capture that needs a running game session.
	ErrCaptureInteractive = errors.New("capture requires interactive session")
	// ErrMissingAsset marks a strategy precondition that vanished at execution time.
	ErrMissingAsset = errors.New("missing asset")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrSubprocess
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fallthrough reports whether a render failure should move on to the next
// strategy in the chain.
func Fallthrough(err error) bool {
	if err == nil || errors.Is(err, ErrCaptureInteractive) {
		return false
	}
	return errors.Is(err, ErrMissingAsset) || errors.Is(err, ErrSubprocess) || errors.Is(err, ErrTimeout)
}

// HTTPStatus maps an error to the status code the local API responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrCaptureInteractive):
		return http.StatusConflict
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrDecodeFailed), errors.Is(err, ErrSubprocess):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
