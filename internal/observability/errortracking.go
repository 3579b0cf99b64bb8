package observability

import (
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// ErrorTrackingOptions configures the Sentry client.
type ErrorTrackingOptions struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
}

// SentryReporter forwards handler failures to Sentry. The zero value, or a
// reporter built without a DSN, drops everything.
type SentryReporter struct {
	enabled bool
}

// InitErrorTracking initializes Sentry when a DSN is configured. Without a
// DSN it returns a disabled reporter and no error.
func InitErrorTracking(opts ErrorTrackingOptions) (*SentryReporter, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		return &SentryReporter{}, nil
	}

	environment := opts.Environment
	if environment == "" {
		environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          opts.Release,
		TracesSampleRate: opts.TracesSampleRate,
	})
	if err != nil {
		return &SentryReporter{}, err
	}

	if ServerLogger != nil {
		ServerLogger.Info("Error tracking enabled", zap.String("environment", environment))
	}
	return &SentryReporter{enabled: true}, nil
}

// Enabled reports whether events are sent.
func (r *SentryReporter) Enabled() bool {
	return r != nil && r.enabled
}

// CaptureException sends err to Sentry without waiting for delivery.
func (r *SentryReporter) CaptureException(err error) {
	if !r.Enabled() || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// Flush waits up to timeout for buffered events to be delivered.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	return sentry.Flush(timeout)
}
