package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func hit(e *echo.Echo, h echo.HandlerFunc, ip string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodGet, "/view", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})(okHandler)

	for i := 0; i < 5; i++ {
		rec, err := hit(e, handler, "10.0.0.1")
		if err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit '10', got %q", i+1, got)
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	clock := newFakeClock()
	e := echo.New()
	handler := rateLimit(newClientLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2}, clock.now))(okHandler)

	for i := 0; i < 2; i++ {
		if _, err := hit(e, handler, "10.0.0.1"); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
	}

	rec, err := hit(e, handler, "10.0.0.1")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", httpErr.Code)
	}
	retry, perr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if perr != nil || retry < 1 {
		t.Errorf("expected Retry-After >= 1, got %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected X-RateLimit-Remaining '0', got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_RefillsOverTime(t *testing.T) {
	clock := newFakeClock()
	e := echo.New()
	handler := rateLimit(newClientLimiter(RateLimitConfig{RequestsPerSecond: 2, BurstSize: 1}, clock.now))(okHandler)

	if _, err := hit(e, handler, "10.0.0.1"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := hit(e, handler, "10.0.0.1"); err == nil {
		t.Fatal("expected second request to be limited")
	}
	clock.advance(500 * time.Millisecond)
	if _, err := hit(e, handler, "10.0.0.1"); err != nil {
		t.Fatalf("expected refill after 500ms, got %v", err)
	}
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	clock := newFakeClock()
	e := echo.New()
	handler := rateLimit(newClientLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}, clock.now))(okHandler)

	if _, err := hit(e, handler, "10.0.0.1"); err != nil {
		t.Fatalf("client a first request: %v", err)
	}
	if _, err := hit(e, handler, "10.0.0.1"); err == nil {
		t.Fatal("client a second request: expected rate limit error")
	}
	if _, err := hit(e, handler, "10.0.0.2"); err != nil {
		t.Fatalf("client b first request: expected no error, got %v", err)
	}
}

func TestRateLimit_EvictsIdleClients(t *testing.T) {
	clock := newFakeClock()
	l := newClientLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute}, clock.now)

	l.bucket("a", clock.now())
	l.bucket("b", clock.now())
	if l.size() != 2 {
		t.Fatalf("expected 2 buckets, got %d", l.size())
	}

	clock.advance(2 * time.Minute)
	l.bucket("c", clock.now())
	if l.size() != 1 {
		t.Errorf("expected idle buckets evicted, got %d", l.size())
	}
}

func TestRateLimit_SameClientSameBucket(t *testing.T) {
	clock := newFakeClock()
	l := newClientLimiter(DefaultRateLimitConfig(), clock.now)

	if l.bucket("k1", clock.now()) != l.bucket("k1", clock.now()) {
		t.Error("expected same bucket instance for same key")
	}
	if l.bucket("k1", clock.now()) == l.bucket("k2", clock.now()) {
		t.Error("expected different bucket for different key")
	}
}

func TestRateLimit_DefaultConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 {
		t.Errorf("expected RequestsPerSecond 100, got %f", cfg.RequestsPerSecond)
	}
	if cfg.BurstSize != 200 {
		t.Errorf("expected BurstSize 200, got %d", cfg.BurstSize)
	}
}

func TestTokenBucket_RetryAfterWithZeroRate(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(0, 1, now)
	b.take(now)
	if ok, ra := b.take(now); ok || ra != 1 {
		t.Errorf("expected denial with retryAfter 1 for zero rate, got ok=%v ra=%d", ok, ra)
	}
}
