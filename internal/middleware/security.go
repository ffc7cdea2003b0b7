// internal/middleware/security.go
//
// Security-header middleware, API profile.
//
// Injects headers suited to a JSON API on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years)
//   • Content-Security-Policy   –  nothing may load, nothing may frame us
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  never leak our URLs onward
//   • Cache-Control             –  registration state must not be cached by
//                                  intermediaries
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; a handler that needs a
//   different value simply overwrites it.
// • registryHtml is an HTML fragment inside JSON, so the strict CSP does not
//   affect clients that render it.

package middleware

import "net/http"

// Security sets API security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts  = "max-age=63072000; includeSubDomains"
		csp   = "default-src 'none'; frame-ancestors 'none'"
		nosn  = "nosniff"
		refer = "no-referrer"
		cache = "no-store"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", hsts)
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Content-Type-Options", nosn)
		h.Set("Referrer-Policy", refer)
		h.Set("Cache-Control", cache)
		next.ServeHTTP(w, r)
	})
}
