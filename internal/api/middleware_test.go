package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/weaverai/weaver/internal/log"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xRealIP    string
		xff        string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "10.0.0.1:54321",
			want:       "10.0.0.1",
		},
		{
			name:       "proxy headers ignored without trust",
			remoteAddr: "10.0.0.1:54321",
			xRealIP:    "1.2.3.4",
			want:       "10.0.0.1",
		},
		{
			name:       "x-real-ip trusted",
			remoteAddr: "10.0.0.1:54321",
			xRealIP:    "1.2.3.4",
			trustProxy: true,
			want:       "1.2.3.4",
		},
		{
			name:       "x-forwarded-for first hop",
			remoteAddr: "10.0.0.1:54321",
			xff:        "1.2.3.4, 5.6.7.8",
			trustProxy: true,
			want:       "1.2.3.4",
		},
		{
			name:       "invalid header falls back",
			remoteAddr: "10.0.0.1:54321",
			xRealIP:    "not-an-ip",
			trustProxy: true,
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xRealIP != "" {
				r.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiter_Burst(t *testing.T) {
	rl := newIPLimiter(0.0001, 3)

	for i := 0; i < 3; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Error("request beyond burst should be denied")
	}
	// Separate IPs get their own buckets.
	if !rl.allow("5.6.7.8") {
		t.Error("fresh IP should be allowed")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(log.NewNop())(panicking)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware([]string{"https://app.example.com"})(next)

	r := httptest.NewRequest(http.MethodOptions, "/", nil)
	r.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin = %q", got)
	}

	// Unknown origins get no CORS headers.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin for unknown origin = %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := bearerToken(r); got != "" {
		t.Errorf("missing header: %q", got)
	}

	r.Header.Set("Authorization", "Bearer abc123")
	if got := bearerToken(r); got != "abc123" {
		t.Errorf("token = %q", got)
	}

	r.Header.Set("Authorization", "Basic abc123")
	if got := bearerToken(r); got != "" {
		t.Errorf("basic auth should not yield a token: %q", got)
	}
}
