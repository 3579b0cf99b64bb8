package metrics

import (
	"strconv"
	"time"

	"github.com/murphyslaws/murphys-laws/internal/observability"
)

// Application-level metric names following Prometheus conventions
const (
	RateLimitDecisionsTotal = "rate_limit_decisions_total"
	RouterDispatchTotal     = "router_dispatch_total"
	OGImageCacheTotal       = "og_image_cache_total"
	DBQueryDuration         = "db_health_query_duration_ms"

	ServerStartTime = "app_server_start_time_seconds"
)

// Router dispatch outcomes
const (
	DispatchOK        = "ok"
	DispatchFailed    = "handler_error"
	DispatchNotFound  = "not_found"
	DispatchPreflight = "preflight"
)

// RecordRateLimitDecision counts one limiter decision for a category.
func RecordRateLimitDecision(category string, allowed bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		RateLimitDecisionsTotal,
		1,
		map[string]string{
			"category": category,
			"allowed":  strconv.FormatBool(allowed),
		},
	)
}

// RecordRouteDispatch counts a router dispatch by registered path template.
func RecordRouteDispatch(route string, outcome string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		RouterDispatchTotal,
		1,
		map[string]string{
			"route":   route,
			"outcome": outcome,
		},
	)
}

// RecordOGImageCache counts OG image cache lookups (hit, miss, eviction).
func RecordOGImageCache(result string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		OGImageCacheTotal,
		1,
		map[string]string{"result": result},
	)
}

// RecordDBQueryDuration records the latency of the health check query.
func RecordDBQueryDuration(d time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Histogram(DBQueryDuration, d, nil)
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
}
