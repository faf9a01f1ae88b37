package limiter

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"wschat/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard, zerolog.Disabled)
	os.Exit(m.Run())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"203.0.113.7:5555", "203.0.113.7"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"203.0.113.7", "203.0.113.7"},
		{"", "unknown_ip"},
	}

	for _, tt := range tests {
		if got := ClientIP(tt.in); got != tt.want {
			t.Errorf("ClientIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIPRateLimiter_Allow(t *testing.T) {
	l := NewIPRateLimiter(rate.Every(time.Hour), 2)
	defer l.Stop()

	if !l.Allow("198.51.100.1:1000") || !l.Allow("198.51.100.1:2000") {
		t.Fatal("burst of 2 was not allowed")
	}
	if l.Allow("198.51.100.1:3000") {
		t.Error("third request from the same IP was allowed")
	}
	if !l.Allow("198.51.100.2:1000") {
		t.Error("a different IP shares the exhausted bucket")
	}
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	l := NewIPRateLimiter(rate.Every(time.Second), 1)
	defer l.Stop()

	l.Allow("198.51.100.1:1")
	l.GetLimiter("198.51.100.2")

	// only the idle bucket is full right now
	if n := l.sweep(time.Now()); n != 1 {
		t.Errorf("sweep removed %d, want 1", n)
	}

	// after a while every bucket has refilled
	if n := l.sweep(time.Now().Add(time.Minute)); n != 1 {
		t.Errorf("second sweep removed %d, want 1", n)
	}
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(rate.Every(time.Hour), 1)
	defer l.Stop()

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.9:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != want {
			t.Errorf("request %d status = %d, want %d", i, rec.Code, want)
		}
	}
}

func TestIPRateLimiter_StopTwice(t *testing.T) {
	l := NewIPRateLimiter(rate.Inf, 1)
	l.Stop()
	l.Stop()
}
