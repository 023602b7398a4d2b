package client

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies transport failures.
type ErrorKind string

// Transport failure kinds.
const (
	ErrKindUnauthorized      ErrorKind = "unauthorized"
	ErrKindRateLimited       ErrorKind = "rate_limited"
	ErrKindOverloaded        ErrorKind = "overloaded"
	ErrKindTimeout           ErrorKind = "timeout"
	ErrKindNetworkFailure    ErrorKind = "network_failure"
	ErrKindMalformedResponse ErrorKind = "malformed_response"
	ErrKindUnknown           ErrorKind = "unknown"
)

// Configuration and usage errors.
var (
	ErrMissingAPIKey         = errors.New("client: api key or token source required")
	ErrMissingModel          = errors.New("client: model required")
	ErrInvalidBaseURL        = errors.New("client: invalid base url")
	ErrUnknownProvider       = errors.New("client: unknown provider")
	ErrInvalidRequest        = errors.New("client: invalid request")
	ErrEmbeddingsUnsupported = errors.New("client: provider does not support embeddings")
	ErrEmptyResponse         = errors.New("client: response contains no text")
)

// TransportError is a typed failure from sending a request upstream.
// Status is the HTTP status when one was received, RetryAfter the
// provider's backoff hint when it sent one, and Body the raw error
// payload for logging.
type TransportError struct {
	Kind       ErrorKind
	Status     int
	Message    string
	Body       []byte
	RetryAfter time.Duration
	Cause      error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("client: %s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("client: %s: %s", e.Kind, msg)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Retryable reports whether the failure class is worth retrying.
func (e *TransportError) Retryable() bool {
	switch e.Kind {
	case ErrKindRateLimited, ErrKindOverloaded, ErrKindTimeout, ErrKindNetworkFailure:
		return true
	}
	return false
}

// AsTransportError unwraps err to a transport error if there is one.
func AsTransportError(err error) (*TransportError, bool) {
	var e *TransportError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// classifyStatus maps an HTTP error status onto a failure kind. The
// table is total; statuses nobody planned for land on unknown instead
// of failing classification.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrKindUnauthorized
	case status == 408:
		return ErrKindTimeout
	case status == 429:
		return ErrKindRateLimited
	case status == 529:
		return ErrKindOverloaded
	case status >= 500:
		return ErrKindOverloaded
	default:
		return ErrKindUnknown
	}
}
