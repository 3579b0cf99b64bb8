package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// MaxBodyBytes caps request bodies read by ReadJSONBody.
const MaxBodyBytes = 64 << 10

// VoterIdentifier names the caller for voting and rate limiting: the first
// X-Forwarded-For entry, then X-Real-IP, then the peer address.
func VoterIdentifier(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}

	return "unknown"
}

// ReadJSONBody decodes the request body into v. An empty body leaves v
// untouched.
func ReadJSONBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return fmt.Errorf("body exceeds %d bytes", MaxBodyBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// parseID accepts a positive base-10 integer.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// looseString is a JSON field that keeps strings and ignores other types.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if str, ok := v.(string); ok {
		*s = looseString(str)
	}
	return nil
}

// looseInt is a JSON field that accepts a number or a numeric string.
// Set reports whether a non-empty value was supplied; Valid whether it
// parsed as an integer.
type looseInt struct {
	Value int64
	Set   bool
	Valid bool
}

func (n *looseInt) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch t := v.(type) {
	case nil:
	case bool:
		n.Set = t
	case float64:
		if t == 0 {
			return nil
		}
		n.Set = true
		n.Value = int64(t)
		n.Valid = true
	case string:
		if t == "" {
			return nil
		}
		n.Set = true
		digits := leadingInteger(strings.TrimSpace(t))
		if parsed, err := strconv.ParseInt(digits, 10, 64); err == nil {
			n.Value = parsed
			n.Valid = true
		}
	default:
		n.Set = true
	}
	return nil
}

// leadingInteger returns the optional sign and digits at the start of s,
// so "12abc" reads as 12.
func leadingInteger(s string) string {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
