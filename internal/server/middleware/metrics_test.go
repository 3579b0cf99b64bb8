package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murphyslaws/murphys-laws/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	return collector
}

func serveWithStatus(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestRequestMetrics_ByStatus(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		errors      int
		rateLimited int
	}{
		{"ok", http.StatusOK, 0, 0},
		{"created", http.StatusCreated, 0, 0},
		{"bad request", http.StatusBadRequest, 1, 0},
		{"not found", http.StatusNotFound, 1, 0},
		{"rate limited", http.StatusTooManyRequests, 1, 1},
		{"server error", http.StatusInternalServerError, 1, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			collector := setupTelemetry(t)

			rec := httptest.NewRecorder()
			RequestMetrics(serveWithStatus(tc.status, "{}")).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/laws", nil))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, 1, collector.CountMetricsByName("http_requests_total"))
			assert.Positive(t, collector.CountMetricsByName("http_request_duration_ms"))
			assert.Positive(t, collector.CountMetricsByName("http_request_size_bytes"))
			assert.Positive(t, collector.CountMetricsByName("http_response_size_bytes"))
			assert.Equal(t, tc.errors, collector.CountMetricsByName("http_errors_total"))
			assert.Equal(t, tc.rateLimited, collector.CountMetricsByName("http_rate_limited_total"))
		})
	}
}

func TestRequestMetrics_PassThroughWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	var sawSlot bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawSlot = r.Context().Value(routeSlotKey{}).(*routeSlot)
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	RequestMetrics(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, sawSlot)
}

func TestSetRoutePatternOutsideMiddleware(t *testing.T) {
	assert.NotPanics(t, func() { SetRoutePattern(context.Background(), "/api/v1/laws/:id") })
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    string
	}{
		{"/api/v1/laws/123", "/api/v1/laws/:id", "/api/v1/laws/:id"},
		{"/api/v1/og/law/9.png", "/api/v1/og/law/:id.png", "/api/v1/og/law/:id.png"},
		{"/api/v1/laws/123", "", "/api/*"},
		{"/api", "", "/api/*"},
		{"/health", "", "/health/*"},
		{"/health/ready", "", "/health/*"},
		{"/version", "", "/version"},
		{"/metrics", "", "/metrics"},
		{"/", "", "/"},
		{"/apiary", "", "/unknown"},
		{"/wp-login.php", "", "/unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.path+tt.pattern, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, endpointLabel(req, &routeSlot{pattern: tt.pattern}))
		})
	}
}

func TestRequestMetrics_NestedRouterReportsPattern(t *testing.T) {
	setupTelemetry(t)

	var seen *routeSlot
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetRoutePattern(r.Context(), "/api/v1/laws/:id/vote")
		seen, _ = r.Context().Value(routeSlotKey{}).(*routeSlot)
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	RequestMetrics(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/laws/7/vote", nil))

	require.NotNil(t, seen)
	assert.Equal(t, "/api/v1/laws/:id/vote", seen.pattern)
}

func TestRequestMetrics_WithRequestID(t *testing.T) {
	collector := setupTelemetry(t)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set(RequestIDHeader, "test-request-id")
	rec := httptest.NewRecorder()

	RequestID(RequestMetrics(serveWithStatus(http.StatusOK, ""))).ServeHTTP(rec, req)

	assert.Equal(t, "test-request-id", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, 1, collector.CountMetricsByName("http_requests_total"))
}

func TestContentLength(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/laws", strings.NewReader(`{"text":"hello"}`))
	assert.Equal(t, int64(16), contentLength(req))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/laws", nil)
	req.Header.Set("Content-Length", "42")
	assert.Equal(t, int64(42), contentLength(req))

	req.Header.Set("Content-Length", "many")
	assert.Equal(t, int64(0), contentLength(req))
}

func TestStatusRecorderCountsBytes(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	_, _ = rec.Write([]byte("abc"))
	_, _ = rec.Write([]byte("de"))
	assert.Equal(t, int64(5), rec.bytesWritten)
	assert.Equal(t, http.StatusOK, rec.statusCode)
}
