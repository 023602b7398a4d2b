package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/okhsunrog/llm-relay/client"
	"github.com/okhsunrog/llm-relay/convert"
	"github.com/okhsunrog/llm-relay/transform"
	"github.com/okhsunrog/llm-relay/types"
)

// Error type labels shared by both envelope dialects.
const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeAuthentication = "authentication_error"
	errTypeRateLimit      = "rate_limit_error"
	errTypeOverloaded     = "overloaded_error"
	errTypeAPI            = "api_error"
	errTypeServer         = "server_error"
)

// requestError is the typed error handlers return; the central error
// handler renders it in the envelope dialect of the route it came from.
type requestError struct {
	Status     int
	Type       string
	Message    string
	RetryAfter time.Duration
}

func (e requestError) Error() string {
	return e.Message
}

func badRequest(message string) requestError {
	return requestError{Status: http.StatusBadRequest, Type: errTypeInvalidRequest, Message: message}
}

func badGateway(message string) requestError {
	return requestError{Status: http.StatusBadGateway, Type: errTypeAPI, Message: message}
}

// toRequestError maps library errors onto HTTP statuses. Conversion
// failures are the caller's fault; transport failures are the
// upstream's.
func toRequestError(err error) requestError {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	if convErr, ok := convert.AsError(err); ok {
		status := http.StatusBadRequest
		if convErr.Kind == convert.ErrKindUnsupportedConstruct {
			status = http.StatusUnprocessableEntity
		}
		return requestError{Status: status, Type: errTypeInvalidRequest, Message: convErr.Error()}
	}

	switch {
	case errors.Is(err, client.ErrInvalidRequest),
		errors.Is(err, client.ErrEmbeddingsUnsupported),
		errors.Is(err, transform.ErrBreakpointLimit),
		errors.Is(err, transform.ErrEncodedNameTooLong):
		return badRequest(err.Error())
	case errors.Is(err, transform.ErrUnknownEncodedName):
		return badGateway(err.Error())
	}

	if te, ok := client.AsTransportError(err); ok {
		return transportRequestError(te)
	}

	slog.Error("unmapped relay error", "error", err)
	return requestError{Status: http.StatusInternalServerError, Type: errTypeServer, Message: "internal server error"}
}

func transportRequestError(te *client.TransportError) requestError {
	message := te.Message
	if message == "" {
		message = "upstream request failed"
	}
	switch te.Kind {
	case client.ErrKindUnauthorized:
		return requestError{Status: http.StatusUnauthorized, Type: errTypeAuthentication, Message: message}
	case client.ErrKindRateLimited:
		return requestError{
			Status:     http.StatusTooManyRequests,
			Type:       errTypeRateLimit,
			Message:    message,
			RetryAfter: te.RetryAfter,
		}
	case client.ErrKindOverloaded:
		return requestError{Status: http.StatusServiceUnavailable, Type: errTypeOverloaded, Message: message}
	case client.ErrKindTimeout:
		return requestError{Status: http.StatusGatewayTimeout, Type: errTypeAPI, Message: message}
	default:
		return badGateway(message)
	}
}

// errorHandler renders every handler error in the dialect of its
// route: the canonical envelope on /v1/messages, the chat-completions
// envelope everywhere else.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		reqErr = requestError{
			Status:  httpErr.Code,
			Type:    errTypeInvalidRequest,
			Message: fmt.Sprint(httpErr.Message),
		}
		if httpErr.Code == http.StatusUnauthorized {
			reqErr.Type = errTypeAuthentication
		} else if httpErr.Code >= http.StatusInternalServerError {
			reqErr.Type = errTypeServer
		}
	default:
		reqErr = toRequestError(err)
	}

	if reqErr.RetryAfter > 0 {
		seconds := int(reqErr.RetryAfter.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	var writeErr error
	if strings.HasPrefix(c.Path(), "/v1/messages") {
		writeErr = c.JSON(reqErr.Status, types.ErrorEnvelope{
			Type:  "error",
			Error: types.ErrorBody{Type: reqErr.Type, Message: reqErr.Message},
		})
	} else {
		writeErr = c.JSON(reqErr.Status, types.ErrorResponse{
			Error: types.ErrorDetail{Type: reqErr.Type, Message: reqErr.Message},
		})
	}
	if writeErr != nil {
		slog.Error("write error response", "error", writeErr)
	}
}
