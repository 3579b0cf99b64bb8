package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/murphyslaws/murphys-laws/internal/metrics"
	"github.com/murphyslaws/murphys-laws/internal/observability"
)

// Recovery recovers panics that escape the ops handlers. API routes have
// their own containment in the router; this is the last line for everything
// mounted on chi.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			panicErr := errors.NewErrorEnvelope("INTERNAL_ERROR", fmt.Sprintf("panic: %v", rec)).
				WithCorrelationID(GetRequestID(r.Context()))
			panicErr, _ = panicErr.WithContext(map[string]interface{}{
				"stack_trace": string(debug.Stack()),
			})
			panicErr, _ = panicErr.WithSeverity(errors.SeverityCritical)

			metrics.RecordPanic()

			if observability.ServerLogger != nil {
				observability.ServerLogger.Error(panicErr.Message,
					zap.String("request_id", panicErr.CorrelationID),
					zap.String("path", r.URL.Path),
					zap.Any("stack_trace", panicErr.Context["stack_trace"]))
			}

			writeErrorResponse(w, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

// ErrorResponse is the API error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeErrorResponse writes the opaque error body directly (internal/errors
// imports this package).
func writeErrorResponse(w http.ResponseWriter, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: http.StatusText(statusCode)})
}
