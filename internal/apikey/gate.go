// internal/apikey/gate.go
//
// API key gate.
//
// Context
// -------
// Require(action) wraps an endpoint handler.  The caller's key is taken
// from, in order:
//
//  1. Authorization: Basic <base64(key)> or Bearer <base64(key)>.  Any
//     other scheme yields no key; the query string is not consulted.
//  2. The `apikey` request parameter (query or form), used verbatim.
//
// The key is compared in constant time against the class key from the
// Keyring.  On success the caller's Origin is echoed for CORS; on failure
// the request ends with 401 and the standard error envelope.
//
// Notes
// -----
// • A keyring error (Vault down) is logged and treated as a refusal.
package apikey

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/yanizio/swregistry/internal/metrics"
	"github.com/yanizio/swregistry/internal/middleware"
	"github.com/yanizio/swregistry/internal/registry"
)

// Gate checks API keys.
type Gate struct {
	keys Keyring
}

// NewGate returns a gate backed by keys.
func NewGate(keys Keyring) *Gate { return &Gate{keys: keys} }

// Require returns middleware admitting only holders of the key for action.
func (g *Gate) Require(action registry.Action) func(http.Handler) http.Handler {
	class := ClassFor(action)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.allowed(r, class) {
				metrics.AuthFailures.WithLabelValues(string(action)).Inc()
				zap.S().Warnw("api key rejected",
					"action", action,
					"remote", r.RemoteAddr,
				)
				Unauthorized(w, r)
				return
			}
			middleware.AllowOrigin(w, r)
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) allowed(r *http.Request, class Class) bool {
	got, ok := Extract(r)
	if !ok || got == "" {
		return false
	}
	want, err := g.keys.Key(r.Context(), class)
	if err != nil {
		zap.S().Errorw("api key lookup failed", "class", class, "err", err)
		return false
	}
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// Extract pulls the presented key from r.
func Extract(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, cred, found := strings.Cut(strings.TrimSpace(h), " ")
		if !found {
			return "", false
		}
		switch strings.ToLower(scheme) {
		case "basic", "bearer":
		default:
			return "", false
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cred))
		if err != nil {
			return "", false
		}
		return string(raw), true
	}
	if k := r.FormValue("apikey"); k != "" {
		return k, true
	}
	return "", false
}

// Unauthorized writes the 401 envelope.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	e := registry.ErrUnauthorized
	render.Status(r, e.Code)
	render.JSON(w, r, map[string]registry.StatusBlock{
		"status": {Code: "401", Message: http.StatusText(e.Code)},
		"error":  {Code: "401", Message: "unauthorized -> invalid or missing api key"},
	})
}
