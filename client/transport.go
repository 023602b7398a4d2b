package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Credential schemes.
const (
	SchemeAPIKey = "api-key"
	SchemeBearer = "bearer"
)

const anthropicVersion = "2023-06-01"

// maxResponseBytes bounds how much of an upstream response is read.
const maxResponseBytes = 64 << 20

// Credentials carries upstream authentication. The api-key scheme sends
// the provider key header, bearer sends an Authorization header from
// TokenSource when set, otherwise from the static key.
type Credentials struct {
	Scheme      string
	APIKey      string
	TokenSource oauth2.TokenSource
}

// Transport sends one serialized request to an endpoint and returns the
// raw response body. Implementations return *TransportError for every
// failure.
type Transport interface {
	Send(ctx context.Context, endpoint string, payload []byte, creds Credentials) ([]byte, error)
}

// HTTPTransport is the default Transport on net/http.
type HTTPTransport struct {
	client    *http.Client
	logger    *slog.Logger
	userAgent string
}

// NewHTTPTransport builds a transport with the given per-request timeout.
func NewHTTPTransport(timeout time.Duration, logger *slog.Logger) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPTransport{
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		userAgent: "llm-relay",
	}
}

// Send posts payload to endpoint and returns the response body. Error
// statuses map onto the transport taxonomy; the provider's own error
// message is surfaced when the body carries one.
func (t *HTTPTransport) Send(ctx context.Context, endpoint string, payload []byte, creds Credentials) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Kind: ErrKindNetworkFailure, Message: "building request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	if err := applyCredentials(req, creds); err != nil {
		return nil, err
	}

	start := time.Now()
	t.logger.Debug("sending upstream request",
		"url", endpoint,
		"bytes", len(payload),
		"request_id", requestID,
	)

	resp, err := t.client.Do(req)
	if err != nil {
		kind := ErrKindNetworkFailure
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = ErrKindTimeout
		}
		t.logger.Warn("upstream request failed",
			"url", endpoint,
			"kind", string(kind),
			"request_id", requestID,
			"error", err,
		)
		return nil, &TransportError{Kind: kind, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		kind := ErrKindNetworkFailure
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = ErrKindTimeout
		}
		return nil, &TransportError{Kind: kind, Status: resp.StatusCode, Message: "reading response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := classifyStatus(resp.StatusCode)
		te := &TransportError{
			Kind:    kind,
			Status:  resp.StatusCode,
			Message: errorMessageFromBody(body, resp.StatusCode),
			Body:    body,
		}
		if kind == ErrKindRateLimited {
			te.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		t.logger.Warn("upstream error response",
			"url", endpoint,
			"status", resp.StatusCode,
			"kind", string(kind),
			"request_id", requestID,
			"duration", time.Since(start),
		)
		return nil, te
	}

	t.logger.Debug("upstream response",
		"url", endpoint,
		"status", resp.StatusCode,
		"bytes", len(body),
		"request_id", requestID,
		"duration", time.Since(start),
	)
	return body, nil
}

func applyCredentials(req *http.Request, creds Credentials) error {
	switch creds.Scheme {
	case SchemeAPIKey:
		if creds.APIKey == "" {
			return &TransportError{Kind: ErrKindUnauthorized, Message: "no api key configured"}
		}
		req.Header.Set("x-api-key", creds.APIKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	case SchemeBearer:
		token := creds.APIKey
		if creds.TokenSource != nil {
			tok, err := creds.TokenSource.Token()
			if err != nil {
				return &TransportError{Kind: ErrKindUnauthorized, Message: "fetching bearer token", Cause: err}
			}
			token = tok.AccessToken
		}
		if token == "" {
			return &TransportError{Kind: ErrKindUnauthorized, Message: "no bearer token configured"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	default:
		return &TransportError{Kind: ErrKindUnauthorized, Message: "unknown credential scheme " + strconv.Quote(creds.Scheme)}
	}
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// errorMessageFromBody pulls the provider's message out of an error
// payload. Both upstream schemas nest it under error.message.
func errorMessageFromBody(body []byte, status int) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return http.StatusText(status)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
