// Package apperr defines the eight error kinds the system distinguishes
// (SPEC_FULL.md §7), as sentinels that domain/application code wraps with
// fmt.Errorf("...: %w", ...) and the HTTP edge unwraps with errors.Is.
package apperr

import "errors"

var (
	// ErrInvalidInput covers malformed requests: empty query text, limit
	// out of range. Surfaces as 400; no downstream work is attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated covers a missing or expired bearer token.
	// Surfaces as 401; no downstream work is attempted.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound covers a referenced item or outfit ID that does not
	// exist (or does not belong to the caller).
	ErrNotFound = errors.New("not found")

	// ErrRateLimited covers the transport rate limiter rejecting a
	// request, or an upstream model returning 429 after exhausting
	// retries.
	ErrRateLimited = errors.New("rate limited")

	// ErrExternalService covers a failure in an external collaborator:
	// the LLM, blob storage. Suggestion requests degrade to the rule
	// engine; CRUD surfaces 502.
	ErrExternalService = errors.New("external service failure")

	// ErrStorage covers the database being unreachable. Suggestion
	// requests degrade to an empty response with best-effort intent.
	ErrStorage = errors.New("storage failure")

	// ErrEmbedding covers the Embedder failing. Affected items score 0
	// and processing continues rather than aborting the request.
	ErrEmbedding = errors.New("embedding failure")

	// ErrInternal covers anything uncaught. Surfaces as 500 with a
	// generic message; the full error is logged server-side.
	ErrInternal = errors.New("internal error")
)
