// internal/registry/audit.go
//
// Audit note text.  One note is stored per committed transition:
//
//	Registration created via API at 3:04pm (UTC) on 02-Jan-2006.
//	Requested from https://example.com/ (203.0.113.9 US, Chrome 124).
//	Email sent to client.
package registry

import (
	"fmt"
	"strings"

	"github.com/yanizio/swregistry/internal/dates"
)

func auditNote(t *Transition) string {
	rc := t.Request
	source := rc.Source
	if source == "" {
		source = SourceAPI
	}
	at := t.At
	if t.Settings != nil {
		at = at.In(t.Settings.Loc)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Registration %s via %s at %s on %s.",
		t.Context, source, at.Format(dates.ClockLayout), at.Format(dates.DayLayout))

	from := rc.RefererURL
	if from == "" {
		from = rc.Host
	}
	var who []string
	if ip := strings.TrimSpace(rc.ClientIP + " " + rc.Country); ip != "" {
		who = append(who, ip)
	}
	if rc.Browser != "" {
		who = append(who, rc.Browser)
	}
	switch {
	case from != "" && len(who) > 0:
		fmt.Fprintf(&b, "\nRequested from %s (%s).", from, strings.Join(who, ", "))
	case from != "":
		fmt.Fprintf(&b, "\nRequested from %s.", from)
	case len(who) > 0:
		fmt.Fprintf(&b, "\nRequested from %s.", strings.Join(who, ", "))
	}

	if t.EmailToClient && t.Registration.Email != "" {
		b.WriteString("\nEmail sent to client.")
	}
	return b.String()
}
