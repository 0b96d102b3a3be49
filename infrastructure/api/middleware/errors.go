package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/stylo/wardrobe/domain/apperr"
)

// APIError is a client-facing error carrying an explicit HTTP status code.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates an APIError.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

func (e *APIError) Code() int       { return e.code }
func (e *APIError) Message() string { return e.message }
func (e *APIError) Unwrap() error   { return e.cause }
func (e *APIError) Error() string {
	if e.cause != nil {
		return "api error " + strconv.Itoa(e.code) + ": " + e.message + ": " + e.cause.Error()
	}
	return "api error " + strconv.Itoa(e.code) + ": " + e.message
}

// ErrAuthentication is the sentinel every AuthenticationError matches via
// errors.Is, so callers can test for "was this an auth failure" without
// caring about the specific message.
var ErrAuthentication = errors.New("authentication failed")

// AuthenticationError wraps ErrAuthentication with a reason.
type AuthenticationError struct {
	reason string
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(reason string) *AuthenticationError {
	return &AuthenticationError{reason: reason}
}

func (e *AuthenticationError) Error() string { return "authentication failed: " + e.reason }
func (e *AuthenticationError) Unwrap() error { return ErrAuthentication }

// ErrServer is the sentinel every ServerError matches via errors.Is.
var ErrServer = errors.New("server error")

// ServerError wraps ErrServer with an HTTP status and message.
type ServerError struct {
	statusCode int
	message    string
}

// NewServerError creates a ServerError.
func NewServerError(statusCode int, message string) *ServerError {
	return &ServerError{statusCode: statusCode, message: message}
}

func (e *ServerError) StatusCode() int { return e.statusCode }
func (e *ServerError) Message() string { return e.message }
func (e *ServerError) Error() string {
	return "server error " + strconv.Itoa(e.statusCode) + ": " + e.message
}
func (e *ServerError) Unwrap() error { return ErrServer }

// jsonError is the wire shape for every error response this service emits.
type jsonError struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	ID     string `json:"id,omitempty"`
}

type jsonErrorResponse struct {
	Errors []jsonError `json:"errors"`
}

// WriteError maps err to an HTTP status and writes a JSON error body.
// APIError/AuthenticationError/ServerError, the transport layer's own
// errors (decode failures, rate limiting, auth), are checked first;
// apperr's eight sentinels (SPEC_FULL.md §7), where the domain/application
// layers surface their failures, are checked after them.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status, title := classify(err)
	requestID := r.Header.Get("X-Request-Id")

	if logger != nil {
		logger.Error("request error",
			slog.String("request_id", requestID),
			slog.Int("status", status),
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
	}

	resp := jsonErrorResponse{
		Errors: []jsonError{{
			Status: http.StatusText(status),
			Title:  title,
			Detail: err.Error(),
			ID:     requestID,
		}},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func classify(err error) (int, string) {
	var apiErr *APIError
	var authErr *AuthenticationError
	var serverErr *ServerError

	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code(), "API Error"
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, "Authentication Failed"
	case errors.As(err, &serverErr):
		return serverErr.StatusCode(), "Server Error"
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid Input"
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthenticated"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests, "Rate Limited"
	case errors.Is(err, apperr.ErrExternalService):
		return http.StatusBadGateway, "External Service Failure"
	case errors.Is(err, apperr.ErrStorage):
		return http.StatusServiceUnavailable, "Storage Failure"
	case errors.Is(err, apperr.ErrEmbedding):
		return http.StatusServiceUnavailable, "Embedding Failure"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// WriteJSON writes a successful JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
