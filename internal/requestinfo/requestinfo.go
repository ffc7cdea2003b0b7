//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, client IP + country, referer, and timestamp).
//  These structs are inert.  They contain no pointers to database handles
//  or large buffers, so they are safe to log or JSON-encode.
//
//  Dependencies
//  • github.com/avct/uasurfer            (UA parsing)
//  • github.com/oschwald/geoip2-golang   (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties.
type UA struct {
	Raw       string // Entire User-Agent header
	Browser   string // "Chrome", "Firefox", "Safari", etc.
	Version   string // "124.0.6367"
	OS        string // "MacOSX", "Windows", "Android", "iOS", etc.
	OSVersion string // "14.5", "11", "10.0"
	Device    string // "Desktop", "Mobile", "Tablet", "Other"
	IsBot     bool
}

// Label is the short form used in audit notes ("Chrome 124").
func (u UA) Label() string {
	if u.Browser == "" || u.Browser == "Unknown" {
		return ""
	}
	major, _, _ := strings.Cut(u.Version, ".")
	if major == "" {
		return u.Browser
	}
	return u.Browser + " " + major
}

// Geo holds IP-based geolocation hints.  Best-effort; empty when the DB has
// no match or is not loaded.
type Geo struct {
	IP         net.IP
	CountryISO string // "US", "CA", "FR", ...
}

// RequestInfo is everything the registrar records about a caller.
type RequestInfo struct {
	UA        UA
	Geo       Geo
	Referer   string
	Host      string
	Timestamp time.Time
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is the MaxMind handle.  Reads are concurrency-safe; the pointer
// is swapped atomically so tests and reloads never race a lookup.
var geoReader atomic.Pointer[geoip2.Reader]

// InitGeo opens a GeoLite2/GeoIP2 Country or City database.  An empty path
// leaves country lookups disabled.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open geoip db: %w", err)
	}
	if old := geoReader.Swap(r); old != nil {
		_ = old.Close()
	}
	return nil
}

// CloseGeo releases the database, if one is open.
func CloseGeo() {
	if r := geoReader.Swap(nil); r != nil {
		_ = r.Close()
	}
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich, or nil.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// parseUA converts a raw header into our UA struct using uasurfer.
func parseUA(raw string) UA {
	u := uasurfer.Parse(raw)

	out := UA{
		Raw:       raw,
		Browser:   strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:   versionToString(u.Browser.Version),
		OS:        strings.TrimPrefix(u.OS.Name.String(), "OS"),
		OSVersion: versionToString(u.OS.Version),
		IsBot:     u.IsBot(),
	}

	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		out.Device = "Desktop"
	case uasurfer.DeviceTablet:
		out.Device = "Tablet"
	case uasurfer.DevicePhone, uasurfer.DeviceWearable:
		out.Device = "Mobile"
	default:
		out.Device = "Other"
	}
	return out
}

// versionToString renders a version in dotted form while trimming trailing
// zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v uasurfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	if v.Minor != 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(v.Major)
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	r := geoReader.Load()
	if r == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := r.Country(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{IP: ip, CountryISO: rec.Country.IsoCode}
}
