// internal/middleware/cors.go
//
// Cross-origin support for browser-side registration clients.
//
// Context
// -------
// Licensed software sometimes calls the registrar straight from an admin
// page in the browser.  Two paths grant an origin:
//
//   • CORS(allowed) – statically configured origins (`http.allowed_origins`,
//     "*" for any), applied to every response and to preflight requests.
//   • AllowOrigin   – the API key gate echoes the caller's Origin once the
//     key checks out, so keyed clients work without static configuration.
//
// Notes
// -----
// • Preflight (OPTIONS with Access-Control-Request-Method) is answered
//   here with 204 and never reaches the router.

package middleware

import (
	"net/http"
	"strings"
)

const (
	corsMethods = "GET, HEAD, POST, PUT, DELETE, OPTIONS"
	corsHeaders = "Authorization, Content-Type"
)

// CORS returns the static-origin middleware.
func CORS(allowed []string) func(http.Handler) http.Handler {
	wildcard := false
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			wildcard = true
		}
		set[strings.ToLower(o)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			permitted := origin != "" && (wildcard || set[strings.ToLower(origin)])
			if permitted {
				AllowOrigin(w, r)
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if permitted {
					w.Header().Set("Access-Control-Allow-Methods", corsMethods)
					w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
					w.Header().Set("Access-Control-Max-Age", "600")
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AllowOrigin echoes the request Origin, if any.
func AllowOrigin(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.Header().Add("Vary", "Origin")
}
