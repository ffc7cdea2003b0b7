package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestForceHTTPSRedirects(t *testing.T) {
	h := ForceHTTPS(true)(ok)

	req := httptest.NewRequest(http.MethodGet, "http://reg.example.com/softwareregistry/v1/verify?x=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusPermanentRedirect {
		t.Fatalf("want 308, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://reg.example.com/softwareregistry/v1/verify?x=1" {
		t.Fatalf("unexpected Location %q", loc)
	}
}

func TestForceHTTPSPassesThrough(t *testing.T) {
	cases := map[string]*http.Request{
		"localhost": httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil),
		"loopback":  httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8080/", nil),
	}
	proxied := httptest.NewRequest(http.MethodGet, "http://reg.example.com/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	cases["proxied"] = proxied

	for name, req := range cases {
		rec := httptest.NewRecorder()
		ForceHTTPS(true)(ok).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: want 200, got %d", name, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	ForceHTTPS(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://reg.example.com/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("disabled: want 200, got %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"Strict-Transport-Security", "Content-Security-Policy", "X-Content-Type-Options", "Cache-Control"} {
		if rec.Header().Get(h) == "" {
			t.Fatalf("missing %s", h)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://app.example.com/"})(ok)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow-origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unlisted origin must not be allowed")
	}
}

func TestRateLimiter(t *testing.T) {
	if NewRateLimiter(0, 0) != nil {
		t.Fatal("rps 0 must disable the limiter")
	}

	h := NewRateLimiter(1, 2).Handler(ok)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other clients have their own bucket, got %d", rec.Code)
	}
}
