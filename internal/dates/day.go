// internal/dates/day.go
//
// Civil calendar dates for registration records.
//
// Context
// -------
// Registrations store `effective`, `expires`, `paydate`, and `nextpay` at
// day granularity.  A Day carries no timezone of its own; the registry
// timezone is applied only when a Day is compared against the clock:
//
//   • effective → StartOfDay (00:00:00) for “is this in the future”.
//   • expires   → EndOfDay   (23:59:59) for “has this lapsed”.
//
// Wire and storage formats
// ------------------------
//   • JSON / display : 02-Jan-2006 (empty string for the zero Day).
//   • SQL            : DATE column (NULL for the zero Day).
package dates

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Layouts used across the registry.
const (
	DayLayout   = "02-Jan-2006"
	ISOLayout   = "2006-01-02"
	StampLayout = "02-Jan-2006 15:04:05 MST"
	ClockLayout = "3:04pm (MST)"
)

// Day is a calendar date.  The zero value means “not set”.
type Day struct {
	y int
	m time.Month
	d int
}

// NewDay builds a Day, normalizing overflow the same way time.Date does.
func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// DayOf returns the calendar date of t in t's own location.
func DayOf(t time.Time) Day {
	if t.IsZero() {
		return Day{}
	}
	y, m, d := t.Date()
	return Day{y: y, m: m, d: d}
}

// IsZero reports whether the Day is unset.
func (d Day) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// Date returns the year, month, and day components.
func (d Day) Date() (int, time.Month, int) { return d.y, d.m, d.d }

// StartOfDay is 00:00:00 of the date in loc.
func (d Day) StartOfDay(loc *time.Location) time.Time {
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, loc)
}

// EndOfDay is 23:59:59 of the date in loc.
func (d Day) EndOfDay(loc *time.Location) time.Time {
	return time.Date(d.y, d.m, d.d, 23, 59, 59, 0, loc)
}

// AddDays returns the date n days later (earlier when n < 0).
func (d Day) AddDays(n int) Day {
	return NewDay(d.y, d.m, d.d+n)
}

// Before reports whether d is strictly earlier than o.
func (d Day) Before(o Day) bool {
	return d.StartOfDay(time.UTC).Before(o.StartOfDay(time.UTC))
}

// After reports whether d is strictly later than o.
func (d Day) After(o Day) bool { return o.Before(d) }

// String formats as 02-Jan-2006, or "" for the zero Day.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.StartOfDay(time.UTC).Format(DayLayout)
}

// ISO formats as 2006-01-02, or "" for the zero Day.
func (d Day) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.StartOfDay(time.UTC).Format(ISOLayout)
}

/*──────────────────────────── parsing ─────────────────────────────────────*/

// absolute layouts accepted for a bare date, tried in order.
var dayLayouts = []string{
	DayLayout,
	"2-Jan-2006",
	"02-January-2006",
	ISOLayout,
	"2006/01/02",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// ParseDay parses an absolute date in one of the accepted layouts.  It does
// not understand relative expressions; use Parse for those.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return Day{}, ErrInvalidDate
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DayOf(t), nil
		}
	}
	return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

/*──────────────────────────── encoding ────────────────────────────────────*/

// MarshalJSON writes the display layout.
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "" (zero Day) or any ParseDay layout.
func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = Day{}
		return nil
	}
	v, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Value stores the Day in a DATE column.
func (d Day) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.ISO(), nil
}

// Scan reads a DATE column (time.Time with parseTime=true, raw bytes
// otherwise).
func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Day{}
		return nil
	case time.Time:
		*d = DayOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("dates: cannot scan %T into Day", src)
	}
}

func (d *Day) scanString(s string) error {
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		*d = Day{}
		return nil
	}
	if len(s) > len(ISOLayout) {
		s = s[:len(ISOLayout)]
	}
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return fmt.Errorf("dates: scan %q: %w", s, err)
	}
	*d = DayOf(t)
	return nil
}
