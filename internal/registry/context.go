// internal/registry/context.go
//
// Per-request caller facts, passed explicitly into every engine call.
package registry

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/yanizio/swregistry/internal/fields"
)

// Sources.
const (
	SourceAPI   = "API"
	SourceAdmin = "admin"
)

// RequestContext describes who is calling and from where.
type RequestContext struct {
	Method     string // HTTP method
	RefererURL string // full Referer header, "" when absent
	Source     string // SourceAPI or SourceAdmin
	ClientIP   string
	UserAgent  string
	Browser    string // "Chrome 124 (Windows)"; empty when unknown
	Country    string // ISO code from GeoIP; empty when unknown
	Host       string // Host the request was addressed to
}

// IsAPI reports whether the call came through the public API.
func (rc RequestContext) IsAPI() bool { return rc.Source == SourceAPI || rc.Source == "" }

// IsPost reports an HTTP POST.
func (rc RequestContext) IsPost() bool { return strings.EqualFold(rc.Method, http.MethodPost) }

// RefererHost is the Referer's host name, lowercased, without port.
func (rc RequestContext) RefererHost() string {
	if rc.RefererURL == "" {
		return ""
	}
	u, err := url.Parse(rc.RefererURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// RefererDomain is RefererHost with one leading "www." label removed.
func (rc RequestContext) RefererDomain() string {
	return fields.StripWWW(rc.RefererHost())
}

// refererSansScheme is the Referer with its scheme name removed, the way
// site entries are compared ("://host/path").
func (rc RequestContext) refererSansScheme() string {
	return stripScheme(rc.RefererURL)
}

func stripScheme(s string) string {
	if u, err := url.Parse(s); err == nil && u.Scheme != "" {
		return strings.TrimPrefix(s, u.Scheme)
	}
	return s
}
