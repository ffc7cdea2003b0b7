// internal/dates/resolver.go
//
// Effective / expiration resolution and expiry tests.
//
// Context
// -------
// The validator asks three questions of every registration: when does it
// start, when does it end, and where does “now” sit relative to both.  A
// Resolver answers them for one request, pinned to a single timezone and a
// single clock reading so every comparison in a transition agrees.
//
// Precedence (first success wins, failures are silent)
// ----------------------------------------------------
//
//	Effective:  requested (if allowed) → default expression → today.
//	Expires:    requested (if allowed) → default → fallback term → effective.
//
// Each Expires candidate is tried as an absolute date first, then as a term
// measured from `effective`.
package dates

import (
	"time"

	"github.com/yanizio/swregistry/internal/cache"
)

// GraceDays is how long an expired registration lingers before it is
// considered terminated.
const GraceDays = 30

// Resolver evaluates date rules for one request.
type Resolver struct {
	Loc *time.Location
	Now time.Time
}

// NewResolver pins loc and now.  A nil loc means UTC.
func NewResolver(loc *time.Location, now time.Time) Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return Resolver{Loc: loc, Now: now.In(loc)}
}

// Today is the current calendar date in the resolver's timezone.
func (r Resolver) Today() Day { return DayOf(r.Now) }

// Parse resolves a free-form expression against the pinned clock.
func (r Resolver) Parse(expr string) (time.Time, error) {
	return Parse(expr, r.Loc, r.Now)
}

// Effective resolves the start date.
func (r Resolver) Effective(requested string, allowOverride bool, def string) Day {
	if requested != "" && allowOverride {
		if t, err := r.Parse(requested); err == nil {
			return DayOf(t)
		}
	}
	if def != "" {
		if t, err := r.Parse(def); err == nil {
			return DayOf(t)
		}
	}
	return r.Today()
}

// Expires resolves the end date.  fallbackTerm is the tier/status dependent
// default term ("30 days", "1 year").
func (r Resolver) Expires(requested string, allowOverride bool, def, fallbackTerm string, effective Day) Day {
	if requested != "" && allowOverride {
		if d, ok := r.expiryCandidate(requested, effective); ok {
			return d
		}
	}
	if def != "" {
		if d, ok := r.expiryCandidate(def, effective); ok {
			return d
		}
	}
	if fallbackTerm != "" {
		if d, ok := r.expiryCandidate(fallbackTerm, effective); ok {
			return d
		}
	}
	return effective
}

func (r Resolver) expiryCandidate(v string, effective Day) (Day, bool) {
	if d, err := ParseDay(v); err == nil {
		return d, true
	}
	term, err := ParseTerm(v)
	if err != nil {
		return Day{}, false
	}
	return DayOf(term.AddTo(effective.StartOfDay(r.Loc))), true
}

// Renew advances an expiry by term, measured from the old expiry instant
// (23:59:59 of that day).
func (r Resolver) Renew(expires Day, term string) (Day, error) {
	t, err := ParseTerm(term)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t.AddTo(expires.EndOfDay(r.Loc))), nil
}

// EndOfDayDate parses a payment-style date expression and reports the
// calendar day its 23:59:59 falls on.
func (r Resolver) EndOfDayDate(expr string) (Day, error) {
	if d, err := ParseDay(expr); err == nil {
		return d, nil
	}
	t, err := r.Parse(expr)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

/*──────────────────────────── clock tests ─────────────────────────────────*/

// Expired reports whether d (evaluated at 23:59:59) has passed.
func (r Resolver) Expired(d Day) bool {
	return d.EndOfDay(r.Loc).Before(r.Now)
}

// PastGrace reports whether d (at 23:59:59) is more than GraceDays old.
func (r Resolver) PastGrace(d Day) bool {
	return d.EndOfDay(r.Loc).Before(r.Now.AddDate(0, 0, -GraceDays))
}

// InFuture reports whether d (at 00:00:00) is after the start of today.
func (r Resolver) InFuture(d Day) bool {
	return d.StartOfDay(r.Loc).After(r.Today().StartOfDay(r.Loc))
}

/*──────────────────────────── locations ───────────────────────────────────*/

var locations = cache.New[string, *time.Location](128)

// LoadLocation is time.LoadLocation with an LRU in front of it.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return locations.GetOrAdd(name, func() (*time.Location, error) {
		return time.LoadLocation(name)
	})
}
