package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/murphyslaws/murphys-laws/internal/observability"
)

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

type routeSlot struct{ pattern string }

type routeSlotKey struct{}

// SetRoutePattern lets a nested router report the template it matched, so
// request metrics carry "/api/v1/laws/:id" rather than "/api/*". It is a
// no-op outside RequestMetrics.
func SetRoutePattern(ctx context.Context, pattern string) {
	if slot, ok := ctx.Value(routeSlotKey{}).(*routeSlot); ok {
		slot.pattern = pattern
	}
}

// RoutePattern returns the template recorded by SetRoutePattern, or "".
func RoutePattern(ctx context.Context) string {
	if slot, ok := ctx.Value(routeSlotKey{}).(*routeSlot); ok {
		return slot.pattern
	}
	return ""
}

// endpointLabel picks a low-cardinality label for r.
func endpointLabel(r *http.Request, slot *routeSlot) string {
	if slot.pattern != "" {
		return slot.pattern
	}

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && pattern != "/api/*" {
			return pattern
		}
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/health"):
		return "/health/*"
	case path == "/version", path == "/metrics", path == "/":
		return path
	case path == "/api" || strings.HasPrefix(path, "/api/"):
		// Unmatched API path or preflight.
		return "/api/*"
	}
	return "/unknown"
}

func contentLength(r *http.Request) int64 {
	if r.ContentLength > 0 {
		return r.ContentLength
	}
	if raw := r.Header.Get("Content-Length"); raw != "" {
		if size, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return size
		}
	}
	return 0
}

// RequestMetrics emits per-request counters, latency and sizes, then logs the
// request with its ID.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry := observability.TelemetrySystem
		if telemetry == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		slot := &routeSlot{}
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), routeSlotKey{}, slot)))

		duration := time.Since(start)
		endpoint := endpointLabel(r, slot)
		status := strconv.Itoa(rec.statusCode)
		requestSize := contentLength(r)

		labels := map[string]string{"method": r.Method, "endpoint": endpoint, "status": status}
		sizeLabels := map[string]string{"method": r.Method, "endpoint": endpoint}

		_ = telemetry.Counter("http_requests_total", 1, labels)
		_ = telemetry.Histogram("http_request_duration_ms", duration, labels)
		_ = telemetry.Gauge("http_request_size_bytes", float64(requestSize), sizeLabels)
		_ = telemetry.Gauge("http_response_size_bytes", float64(rec.bytesWritten), sizeLabels)

		if rec.statusCode >= 400 {
			errorType := "client_error"
			if rec.statusCode >= 500 {
				errorType = "server_error"
			}
			_ = telemetry.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     status,
				"error_type": errorType,
			})
		}
		if rec.statusCode == http.StatusTooManyRequests {
			_ = telemetry.Counter("http_rate_limited_total", 1, sizeLabels)
		}

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", rec.statusCode),
				zap.Duration("duration", duration),
				zap.Int64("request_size", requestSize),
				zap.Int64("response_size", rec.bytesWritten),
				zap.String("requestID", GetRequestID(r.Context())),
			)
		}
	})
}
