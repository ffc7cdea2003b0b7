// internal/registry/notices.go
//
// Client notices and message templates.
//
// Context
// -------
// Every response carries four notice slots (info, warning, error,
// success).  The engine fills them from the record's state:
//
//   - not published          → error   "… is currently <status>."
//   - due in under a day      → error   "… expected to <act> at <time>."
//   - due in under 8 days     → warning "… at <time> on <date>."
//   - due in under 15 days    → info    (same wording)
//
// "Due" is the next payment date when one is set ("renew"), otherwise the
// expiry ("update" with autoupdate, "expire" without).  Times are shown in
// the client's timezone.
//
// Templates
// ---------
// mergeMessage substitutes [registry_<field>], [registrar_<field>],
// [update_context], and [default_message] in operator templates.
package registry

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yanizio/swregistry/internal/dates"
)

// Notices are the four client notice slots.
type Notices struct {
	Info    string `json:"info"`
	Warning string `json:"warning"`
	Error   string `json:"error"`
	Success string `json:"success"`
}

// notices computes the state-driven notices.  display is the status the
// client will see; published is whether the record is usable right now.
func notices(s *Settings, r *Registration, display Status, published bool) Notices {
	var n Notices
	product := "<em>" + html.EscapeString(html.UnescapeString(r.Title)) + "</em>"

	if !published {
		n.Error = fmt.Sprintf("Your %s registration is currently %s.", product, strings.ToLower(string(display)))
		return n
	}

	loc := s.ClientLocation(r)
	today := dates.DayOf(s.Now.In(loc))

	var (
		due    dates.Day
		action string
	)
	switch {
	case !r.Nextpay.IsZero():
		due, action = r.Nextpay, "renew"
	case r.Autoupdate:
		due, action = r.Expires, "update"
	default:
		due, action = r.Expires, "expire"
	}
	if due.IsZero() || due.Before(today) {
		return n
	}

	at := due.EndOfDay(loc)
	clock := at.Format(dates.ClockLayout)
	day := at.Format(dates.DayLayout)

	switch days := daysBetween(today, due); {
	case days < 1:
		n.Error = fmt.Sprintf("Your %s registration is expected to %s at %s.", product, action, clock)
	case days < 8:
		n.Warning = fmt.Sprintf("Your %s registration is expected to %s at %s on %s.", product, action, clock, day)
	case days < 15:
		n.Info = fmt.Sprintf("Your %s registration is expected to %s at %s on %s.", product, action, clock, day)
	}
	return n
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b dates.Day) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ta := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	tb := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(tb.Sub(ta).Hours() / 24)
}

// registrarValues are the [registrar_x] merge fields.
func registrarValues(s *Settings) map[string]string {
	return map[string]string{
		"registrar_name":    s.Name,
		"registrar_email":   s.Admin,
		"registrar_contact": s.Contact.Email,
		"registrar_phone":   s.Contact.Phone,
		"registrar_web":     s.Contact.Web,
	}
}

// MergeMessage fills a message template for r.  Registration values are
// HTML-escaped; registrar values and def are inserted as given.  Lists are
// not merged.
func MergeMessage(tmpl string, r *Registration, s *Settings, action, def string) string {
	if tmpl == "" {
		return ""
	}
	pairs := make([]string, 0, 80)
	for name, v := range r.Values(s.Schema) {
		if v.IsList {
			continue
		}
		pairs = append(pairs, "[registry_"+name+"]", html.EscapeString(html.UnescapeString(v.Text)))
	}
	for k, v := range registrarValues(s) {
		pairs = append(pairs, "["+k+"]", v)
	}
	pairs = append(pairs,
		"[update_context]", PastTense(action),
		"[default_message]", def,
	)
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
