package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	SendJSON(rec, http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":7}`, rec.Body.String())
}

func TestBadRequestDefaultsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, httptest.NewRequest(http.MethodGet, "/", nil), "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Bad Request"}`, rec.Body.String())
}

func TestRateLimitExceeded(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	rec := httptest.NewRecorder()
	RateLimitExceeded(rec, httptest.NewRequest(http.MethodPost, "/api/v1/laws", nil), fixed.Add(41500*time.Millisecond))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"), "rounded up to whole seconds")
	assert.Equal(t, "2024-05-01T12:00:41.500Z", rec.Header().Get("X-RateLimit-Reset"))
	assert.JSONEq(t, `{"error":"Rate limit exceeded. Please try again later.","retryAfter":42}`, rec.Body.String())
}

func TestRateLimitExceeded_PastResetClampsToZero(t *testing.T) {
	rec := httptest.NewRecorder()
	RateLimitExceeded(rec, httptest.NewRequest(http.MethodPost, "/", nil), time.Now().Add(-time.Minute))

	assert.Equal(t, "0", rec.Header().Get("Retry-After"))
}

func TestHTTPErrorResponderOverride(t *testing.T) {
	var got error
	SetHTTPErrorResponder(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	})
	t.Cleanup(ResetHTTPErrorResponder)

	rec := httptest.NewRecorder()
	NotFound(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.Error(t, got)
}

func TestVoterIdentifier(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": " 203.0.113.1 , 10.0.0.1"}, "192.0.2.1:1000", "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.9"}, "192.0.2.1:1000", "198.51.100.9"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.1", "X-Real-IP": "198.51.100.9"}, "", "203.0.113.1"},
		{"remote host", nil, "192.0.2.1:1000", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
		{"ipv6 remote", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"unknown", nil, "", "unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, VoterIdentifier(req))
		})
	}
}

func TestReadJSONBody(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"murphy"}`))
	require.NoError(t, ReadJSONBody(req, &v))
	assert.Equal(t, "murphy", v.Name)

	v.Name = ""
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("  \n"))
	require.NoError(t, ReadJSONBody(req, &v))
	assert.Empty(t, v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	require.Error(t, ReadJSONBody(req, &v))

	huge := `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	require.Error(t, ReadJSONBody(req, &v))
}

func TestReadJSONBody_ReadError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", errReader{})
	var v map[string]any
	require.Error(t, ReadJSONBody(req, &v))
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLooseInt(t *testing.T) {
	cases := []struct {
		raw   string
		set   bool
		valid bool
		value int64
	}{
		{`null`, false, false, 0},
		{`0`, false, false, 0},
		{`""`, false, false, 0},
		{`false`, false, false, 0},
		{`3`, true, true, 3},
		{`2.9`, true, true, 2},
		{`"12"`, true, true, 12},
		{`"12abc"`, true, true, 12},
		{`"abc"`, true, false, 0},
		{`true`, true, false, 0},
		{`[1]`, true, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			var n looseInt
			require.NoError(t, n.UnmarshalJSON([]byte(tc.raw)))
			assert.Equal(t, tc.set, n.Set)
			assert.Equal(t, tc.valid, n.Valid)
			assert.Equal(t, tc.value, n.Value)
		})
	}
}
