package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/murphyslaws/murphys-laws/internal/errors"
)

// RateLimitMessage is the error text of every 429 response.
const RateLimitMessage = "Rate limit exceeded. Please try again later."

// now is swapped in tests that assert Retry-After.
var now = time.Now

// errorResponder writes every error response of this package. The server
// swaps in its own handler so ops and API errors share one code path.
var errorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder replaces the error writer; nil restores the default.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	errorResponder = responder
}

// ResetHTTPErrorResponder restores the default error writer.
func ResetHTTPErrorResponder() {
	SetHTTPErrorResponder(nil)
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponder(w, r, err)
}

// SendJSON writes v as a JSON body with the given status.
func SendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", apperrors.JSONContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NotFound answers 404 {"error":"Not Found"}.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, apperrors.NewNotFoundError("Not Found"))
}

// BadRequest answers 400 with msg, or "Bad Request" when msg is empty.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	if msg == "" {
		msg = "Bad Request"
	}
	respondWithError(w, r, apperrors.NewInvalidInputError(msg))
}

// RateLimitExceeded answers 429 and tells the caller when the window resets.
func RateLimitExceeded(w http.ResponseWriter, r *http.Request, resetTime time.Time) {
	retryAfter := int64(math.Ceil(resetTime.Sub(now()).Seconds()))
	if retryAfter < 0 {
		retryAfter = 0
	}

	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.Header().Set("X-RateLimit-Reset", resetTime.UTC().Format("2006-01-02T15:04:05.000Z"))

	envelope := apperrors.NewTooManyRequestsError(RateLimitMessage).
		WithDetails(map[string]interface{}{"retryAfter": retryAfter})
	respondWithError(w, r, envelope)
}
