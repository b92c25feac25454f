package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newSanitizeEcho(logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	e.Use(Sanitize(logger))
	e.GET("/*", okHandler)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func withQuery(key, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/sort", nil)
	q := req.URL.Query()
	q.Set(key, value)
	req.URL.RawQuery = q.Encode()
	return req
}

func assertRejected(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"detail"`) || !strings.Contains(rec.Body.String(), want) {
		t.Errorf("expected detail containing %q, got %s", want, rec.Body.String())
	}
}

func TestSanitize_PathTraversal(t *testing.T) {
	e := newSanitizeEcho(zerolog.Nop())
	for _, p := range []string{"/view/../etc/passwd", "/view/%2e%2e/etc", "/view/%252e%252e/etc"} {
		assertRejected(t, serve(e, httptest.NewRequest(http.MethodGet, p, nil)), "Path traversal")
	}
}

func TestSanitize_NullByte(t *testing.T) {
	e := newSanitizeEcho(zerolog.Nop())

	assertRejected(t, serve(e, httptest.NewRequest(http.MethodGet, "/view/P001%00", nil)), "Null byte")
	assertRejected(t, serve(e, withQuery("sort_by", "height\x00")), "Null byte")
}

func TestSanitize_HeaderInjection(t *testing.T) {
	e := newSanitizeEcho(zerolog.Nop())
	for _, v := range []string{"a\r\nb", "a\nb", "a\rb"} {
		req := httptest.NewRequest(http.MethodGet, "/view", nil)
		req.Header["X-Custom"] = []string{v}
		assertRejected(t, serve(e, req), "Header injection")
	}
}

func TestSanitize_OversizedHeader(t *testing.T) {
	e := newSanitizeEcho(zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/view", nil)
	req.Header.Set("X-Large", strings.Repeat("a", maxHeaderValueSize+1))
	assertRejected(t, serve(e, req), "exceeds maximum size")
}

func TestSanitize_ScriptInjectionBlocked(t *testing.T) {
	e := newSanitizeEcho(zerolog.Nop())
	for _, v := range []string{"<script>alert(1)</script>", "javascript:alert(1)", "onload=alert(1)"} {
		assertRejected(t, serve(e, withQuery("sort_by", v)), "Script injection")
	}
}

func TestSanitize_SQLPatternLoggedNotBlocked(t *testing.T) {
	var buf bytes.Buffer
	e := newSanitizeEcho(zerolog.New(&buf))

	for _, v := range []string{"'; DROP TABLE patients;--", "1 UNION SELECT * FROM users", "1=1"} {
		buf.Reset()
		rec := serve(e, withQuery("sort_by", v))
		if rec.Code != http.StatusOK {
			t.Errorf("%q: expected 200, got %d", v, rec.Code)
		}
		if !strings.Contains(buf.String(), "suspicious query parameter") {
			t.Errorf("%q: expected warning in logs", v)
		}
	}
}

func TestSanitize_NormalRequestsPass(t *testing.T) {
	e := newSanitizeEcho(zerolog.Nop())
	for _, target := range []string{"/", "/view", "/view/P001", "/sort?sort_by=bmi&order=desc"} {
		if rec := serve(e, httptest.NewRequest(http.MethodGet, target, nil)); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", target, rec.Code)
		}
	}
}
