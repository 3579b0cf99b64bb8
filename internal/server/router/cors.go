package router

import (
	"net/http"
	"slices"
)

// Wildcard allows every origin.
const Wildcard = "*"

const (
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type"
)

// ResolveOrigin picks the Access-Control-Allow-Origin value for a request.
// A wildcard entry always wins; a listed request origin is echoed; anything
// else falls back to the first listed origin, or the wildcard for an empty
// list.
func ResolveOrigin(allowed []string, requestOrigin string) string {
	if slices.Contains(allowed, Wildcard) {
		return Wildcard
	}
	if requestOrigin != "" && slices.Contains(allowed, requestOrigin) {
		return requestOrigin
	}
	if len(allowed) > 0 {
		return allowed[0]
	}
	return Wildcard
}

// SetCORSHeaders writes the CORS response headers for requestOrigin.
func SetCORSHeaders(h http.Header, allowed []string, requestOrigin string) {
	origin := ResolveOrigin(allowed, requestOrigin)
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	if origin != Wildcard {
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
	}
}
