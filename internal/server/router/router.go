// Package router is the API dispatch table: an ordered list of
// (method, compiled path pattern, handler) entries matched first-wins, with
// central CORS preflight handling and handler failure containment.
package router

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"runtime/debug"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	apperrors "github.com/murphyslaws/murphys-laws/internal/errors"
	"github.com/murphyslaws/murphys-laws/internal/metrics"
	"github.com/murphyslaws/murphys-laws/internal/observability"
	"github.com/murphyslaws/murphys-laws/internal/server/middleware"
)

// Method is an HTTP verb a route can be registered for.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodDelete Method = http.MethodDelete
)

// Params carries the positional path captures of the matched route and the
// parsed request URL (query string included).
type Params struct {
	Values []string
	URL    *url.URL
}

// Get returns the i-th captured segment, or "" when there is none.
func (p Params) Get(i int) string {
	if i < 0 || i >= len(p.Values) {
		return ""
	}
	return p.Values[i]
}

// HandlerFunc handles a matched request. A returned error is contained by the
// router and turned into a generic 500.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, p Params) error

// ErrorReporter receives handler failures. Calls are fire-and-forget.
type ErrorReporter interface {
	CaptureException(err error)
}

// Route is one registered entry of the dispatch table.
type Route struct {
	Method       Method
	Pattern      *regexp.Regexp
	Handler      HandlerFunc
	OriginalPath string
}

// Router dispatches requests to the first matching route. Routes must all be
// registered before the router starts serving.
type Router struct {
	routes         []Route
	allowedOrigins []string
	notFound       http.HandlerFunc
	reporter       ErrorReporter
}

// Option configures a Router.
type Option func(*Router)

// WithAllowedOrigins sets the CORS allow-list.
func WithAllowedOrigins(origins []string) Option {
	return func(rt *Router) {
		rt.allowedOrigins = append([]string(nil), origins...)
	}
}

// WithNotFound sets the handler used when no route matches.
func WithNotFound(h http.HandlerFunc) Option {
	return func(rt *Router) {
		if h != nil {
			rt.notFound = h
		}
	}
}

// WithErrorReporter sets the sink for handler failures.
func WithErrorReporter(reporter ErrorReporter) Option {
	return func(rt *Router) {
		rt.reporter = reporter
	}
}

// New returns an empty router. Without options it allows any origin and
// answers unmatched requests with 404 {"error":"Not Found"}.
func New(opts ...Option) *Router {
	rt := &Router{notFound: defaultNotFound}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

var paramSegment = regexp.MustCompile(`:[a-zA-Z0-9_]+`)

// compilePath turns a template such as /api/v1/laws/:id into an anchored
// expression with one capture group per named segment.
func compilePath(path string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(path)
	// QuoteMeta leaves ':' and word characters alone, so placeholders survive.
	return regexp.MustCompile("^" + paramSegment.ReplaceAllString(escaped, `([^/]+)`) + "$")
}

// Add registers handler for method on a path template.
func (rt *Router) Add(method Method, path string, handler HandlerFunc) {
	rt.routes = append(rt.routes, Route{
		Method:       method,
		Pattern:      compilePath(path),
		Handler:      handler,
		OriginalPath: path,
	})
}

// AddPattern registers handler with a prebuilt expression, stored unchanged.
func (rt *Router) AddPattern(method Method, pattern *regexp.Regexp, handler HandlerFunc) {
	rt.routes = append(rt.routes, Route{
		Method:       method,
		Pattern:      pattern,
		Handler:      handler,
		OriginalPath: pattern.String(),
	})
}

func (rt *Router) Get(path string, handler HandlerFunc) {
	rt.Add(MethodGet, path, handler)
}

func (rt *Router) Post(path string, handler HandlerFunc) {
	rt.Add(MethodPost, path, handler)
}

func (rt *Router) Delete(path string, handler HandlerFunc) {
	rt.Add(MethodDelete, path, handler)
}

// Routes returns a copy of the dispatch table in registration order.
func (rt *Router) Routes() []Route {
	return append([]Route(nil), rt.routes...)
}

// AllowedOrigins returns the configured CORS allow-list.
func (rt *Router) AllowedOrigins() []string {
	return append([]string(nil), rt.allowedOrigins...)
}

// ServeHTTP is the dispatch entry point.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		rt.handlePreflight(w, r)
		return
	}

	SetCORSHeaders(w.Header(), rt.allowedOrigins, r.Header.Get("Origin"))

	path := r.URL.EscapedPath()
	for _, route := range rt.routes {
		if string(route.Method) != r.Method {
			continue
		}
		match := route.Pattern.FindStringSubmatch(path)
		if match == nil {
			continue
		}
		rt.dispatch(w, r, route, Params{Values: match[1:], URL: r.URL})
		return
	}

	metrics.RecordRouteDispatch("unmatched", metrics.DispatchNotFound)
	rt.notFound(w, r)
}

func (rt *Router) handlePreflight(w http.ResponseWriter, r *http.Request) {
	SetCORSHeaders(w.Header(), rt.allowedOrigins, r.Header.Get("Origin"))
	metrics.RecordRouteDispatch("preflight", metrics.DispatchPreflight)
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) dispatch(w http.ResponseWriter, r *http.Request, route Route, params Params) {
	middleware.SetRoutePattern(r.Context(), route.OriginalPath)
	tw := &trackingWriter{ResponseWriter: w}
	err := invoke(tw, r, route.Handler, params)
	if err == nil {
		metrics.RecordRouteDispatch(route.OriginalPath, metrics.DispatchOK)
		return
	}

	metrics.RecordRouteDispatch(route.OriginalPath, metrics.DispatchFailed)
	if rt.reporter != nil {
		rt.reporter.CaptureException(err)
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Error("Unhandled error in route handler",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route.OriginalPath),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Bool("response_started", tw.wroteHeader))
	}

	if tw.wroteHeader {
		return
	}
	envelope := apperrors.WrapInternal(r.Context(), err, apperrors.InternalServerErrorMessage)
	envelope, _ = envelope.WithSeverity(gferrors.SeverityHigh)
	apperrors.RespondWithEnvelope(w, r, envelope)
}

// invoke runs the handler and converts a panic into an error.
func invoke(w http.ResponseWriter, r *http.Request, h HandlerFunc, params Params) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		metrics.RecordPanic()
		err = &PanicError{Value: rec, Stack: debug.Stack()}
	}()
	return h(w, r, params)
}

// PanicError is the error reported for a handler that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// trackingWriter records whether a handler already started its response, in
// which case a 500 can no longer be written.
type trackingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (tw *trackingWriter) WriteHeader(code int) {
	tw.wroteHeader = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	tw.wroteHeader = true
	return tw.ResponseWriter.Write(b)
}

func (tw *trackingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

func defaultNotFound(w http.ResponseWriter, r *http.Request) {
	apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Not Found"))
}
