// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits right after chi's RealIP and before the API key gate.
For every request it:

  1. Parses the User-Agent header.
  2. Extracts the left-most client IP from X-Forwarded-For or X-Real-IP,
     falling back to `r.RemoteAddr`.
  3. Performs a GeoLite2 country lookup.
  4. Stores a `*RequestInfo` in the request context, so handlers build a
     registry.RequestContext without reparsing.

Instrumentation
---------------
At debug level each invocation logs client IP, country, browser, bot
flag, and referer.
*/
package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/swregistry/internal/registry"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *RequestInfo, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &RequestInfo{
			UA:        parseUA(r.UserAgent()),
			Geo:       lookupGeo(clientIP(r)),
			Referer:   r.Referer(),
			Host:      r.Host,
			Timestamp: time.Now().UTC(),
		}

		zap.S().Debugw("request info",
			"ip", info.Geo.IP,
			"country", info.Geo.CountryISO,
			"browser", info.UA.Browser,
			"bot", info.UA.IsBot,
			"referer", info.Referer,
		)

		ctx := context.WithValue(r.Context(), ctxKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

/*──────────────────────────── registry context ─────────────────────────────*/

// Context builds the engine's view of the caller.  It works with or
// without Enrich having run.
func Context(r *http.Request, source string) registry.RequestContext {
	info := FromContext(r.Context())
	if info == nil {
		info = &RequestInfo{
			UA:      parseUA(r.UserAgent()),
			Geo:     lookupGeo(clientIP(r)),
			Referer: r.Referer(),
			Host:    r.Host,
		}
	}

	rc := registry.RequestContext{
		Method:     r.Method,
		RefererURL: info.Referer,
		Source:     source,
		UserAgent:  info.UA.Raw,
		Browser:    info.UA.Label(),
		Country:    info.Geo.CountryISO,
		Host:       info.Host,
	}
	if info.Geo.IP != nil {
		rc.ClientIP = info.Geo.IP.String()
	}
	return rc
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP extracts the left-most address from X-Forwarded-For or
// X-Real-IP, falling back to r.RemoteAddr ("ip:port").
func clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
