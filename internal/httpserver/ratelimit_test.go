package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fdg312/mealweek/internal/config"
	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveFrom(h http.Handler, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body.Error.Code
}

func TestRateLimit_SecondRequestReturns429(t *testing.T) {
	handler := RateLimitMiddleware(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1}, okHandler())

	if rr := serveFrom(handler, http.MethodGet, "/v1/meal/plan", "1.2.3.4:12345"); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}

	rr := serveFrom(handler, http.MethodGet, "/v1/meal/plan", "1.2.3.4:12345")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "1" {
		t.Errorf("expected Retry-After=1, got %q", got)
	}
	if code := errorCode(t, rr); code != "rate_limited" {
		t.Errorf("expected code=rate_limited, got %q", code)
	}
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	handler := RateLimitMiddleware(&config.Config{}, okHandler())

	for i := 0; i < 10; i++ {
		if rr := serveFrom(handler, http.MethodPost, generateLimiterPath, "1.2.3.4:12345"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
}

func TestRateLimit_DifferentIPsIndependent(t *testing.T) {
	handler := RateLimitMiddleware(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1}, okHandler())

	if rr := serveFrom(handler, http.MethodGet, "/", "1.2.3.4:1"); rr.Code != http.StatusOK {
		t.Fatalf("IP1 first request: expected 200, got %d", rr.Code)
	}
	if rr := serveFrom(handler, http.MethodGet, "/", "5.6.7.8:1"); rr.Code != http.StatusOK {
		t.Fatalf("IP2 first request: expected 200, got %d", rr.Code)
	}
}

func TestRateLimit_GenerateBudget(t *testing.T) {
	handler := RateLimitMiddleware(&config.Config{GenerateRatePerMinute: 6}, okHandler())

	if rr := serveFrom(handler, http.MethodPost, generateLimiterPath, "1.2.3.4:1"); rr.Code != http.StatusOK {
		t.Fatalf("first generate: expected 200, got %d", rr.Code)
	}

	rr := serveFrom(handler, http.MethodPost, generateLimiterPath, "1.2.3.4:1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second generate: expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "10" {
		t.Errorf("expected Retry-After=10, got %q", got)
	}
	if code := errorCode(t, rr); code != "generate_rate_limited" {
		t.Errorf("expected code=generate_rate_limited, got %q", code)
	}

	// Reads are not charged against the generation budget.
	for i := 0; i < 5; i++ {
		if rr := serveFrom(handler, http.MethodGet, "/v1/meal/plan", "1.2.3.4:1"); rr.Code != http.StatusOK {
			t.Fatalf("read %d: expected 200, got %d", i, rr.Code)
		}
	}
}

func TestLimiterPool_SweepDropsIdleClients(t *testing.T) {
	pool := newLimiterPool(rate.Limit(1), 1)
	now := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	pool.now = func() time.Time { return now }

	pool.reserve("idle")
	now = now.Add(limiterIdleTTL + time.Minute)
	pool.reserve("active")
	pool.sweep(now)

	if _, ok := pool.clients["idle"]; ok {
		t.Error("idle client should be evicted")
	}
	if _, ok := pool.clients["active"]; !ok {
		t.Error("active client should be kept")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{name: "remote addr", remoteAddr: "10.0.0.1:5000", want: "10.0.0.1"},
		{name: "single forwarded", xff: "203.0.113.7", remoteAddr: "10.0.0.1:5000", want: "203.0.113.7"},
		{name: "forwarded chain", xff: " 203.0.113.7 , 10.0.0.2", remoteAddr: "10.0.0.1:5000", want: "203.0.113.7"},
		{name: "no port", remoteAddr: "10.0.0.1", want: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
