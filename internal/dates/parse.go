// internal/dates/parse.go
//
// Date and term expressions.
//
// Context
// -------
// Settings and API callers express dates the way a human would: “30 days”,
// “1 year”, “+6 months”, “tomorrow”, “15-Mar-2026”, or
// “2026-03-15 23:59:59”.  Parse turns such an expression into an instant
// in the registry timezone; ParseTerm turns a duration expression into a
// calendar Term.
//
// Grammar (case-insensitive, whitespace separated)
// ------------------------------------------------
//
//	expr   := [date] { keyword | clock | offset }
//	date   := any ParseDay layout, or RFC 3339
//	keyword:= now | today | midnight | noon | tomorrow | yesterday
//	clock  := HH:MM[:SS]
//	offset := [+|-]N unit      (unit: second, minute, hour, day, week,
//	                             fortnight, month, year, plural or not)
//
// Notes
// -----
// • Month arithmetic follows time.AddDate normalization, so 31-Jan + 1
//   month lands on 02/03-Mar.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned for any expression that cannot be resolved.
var ErrInvalidDate = errors.New("invalid date")

/*──────────────────────────── terms ───────────────────────────────────────*/

// Term is a calendar duration.  Years, months, and days are applied with
// AddDate; Clock is added afterwards as an exact duration.
type Term struct {
	Years, Months, Days int
	Clock               time.Duration
}

// IsZero reports whether the term adds nothing.
func (t Term) IsZero() bool {
	return t.Years == 0 && t.Months == 0 && t.Days == 0 && t.Clock == 0
}

// AddTo returns base advanced by the term.
func (t Term) AddTo(base time.Time) time.Time {
	return base.AddDate(t.Years, t.Months, t.Days).Add(t.Clock)
}

var (
	offsetGlued = regexp.MustCompile(`^([+-]?\d+)([a-z]+)$`)
	numberOnly  = regexp.MustCompile(`^[+-]?\d+$`)
	clockRe     = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
)

// ParseTerm parses a duration such as "30 days", "+1 year 6 months", or
// "2 weeks".  At least one offset is required.
func ParseTerm(s string) (Term, error) {
	toks := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(toks) == 0 {
		return Term{}, fmt.Errorf("%w: empty term", ErrInvalidDate)
	}
	var term Term
	n, err := consumeOffsets(toks, &term)
	if err != nil {
		return Term{}, err
	}
	if n != len(toks) {
		return Term{}, fmt.Errorf("%w: term %q", ErrInvalidDate, s)
	}
	return term, nil
}

// consumeOffsets reads as many leading offset tokens as it can, adding them
// to term.  It returns the number of tokens consumed.
func consumeOffsets(toks []string, term *Term) (int, error) {
	i := 0
	for i < len(toks) {
		tok := toks[i]
		switch {
		case numberOnly.MatchString(tok):
			if i+1 >= len(toks) {
				return i, fmt.Errorf("%w: dangling number %q", ErrInvalidDate, tok)
			}
			n, err := strconv.Atoi(tok)
			if err != nil {
				return i, fmt.Errorf("%w: count %q out of range", ErrInvalidDate, tok)
			}
			if err := addUnit(term, n, toks[i+1]); err != nil {
				return i, err
			}
			i += 2
		case offsetGlued.MatchString(tok):
			m := offsetGlued.FindStringSubmatch(tok)
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return i, fmt.Errorf("%w: count %q out of range", ErrInvalidDate, m[1])
			}
			if err := addUnit(term, n, m[2]); err != nil {
				return i, err
			}
			i++
		default:
			return i, nil
		}
	}
	return i, nil
}

func addUnit(term *Term, n int, unit string) error {
	switch strings.TrimSuffix(unit, "s") {
	case "sec", "second":
		term.Clock += time.Duration(n) * time.Second
	case "min", "minute":
		term.Clock += time.Duration(n) * time.Minute
	case "hour":
		term.Clock += time.Duration(n) * time.Hour
	case "day":
		term.Days += n
	case "week":
		term.Days += 7 * n
	case "fortnight":
		term.Days += 14 * n
	case "month":
		term.Months += n
	case "year":
		term.Years += n
	default:
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidDate, unit)
	}
	return nil
}

/*──────────────────────────── expressions ─────────────────────────────────*/

// Parse resolves expr relative to now in loc.
func Parse(expr string, loc *time.Location, now time.Time) (time.Time, error) {
	raw := strings.Fields(strings.TrimSpace(strings.ReplaceAll(expr, ",", " ")))
	if len(raw) == 0 {
		return time.Time{}, fmt.Errorf("%w: empty expression", ErrInvalidDate)
	}

	base := now.In(loc)
	i := 0

	// Leading absolute date, up to three tokens wide ("Jan 2 2006").
	for width := 3; width >= 1; width-- {
		if width > len(raw) {
			continue
		}
		if t, ok := leadingDate(strings.Join(raw[:width], " "), loc); ok {
			base, i = t, width
			break
		}
	}

	toks := make([]string, len(raw))
	for j, t := range raw {
		toks[j] = strings.ToLower(t)
	}

	var term Term
	for i < len(toks) {
		tok := toks[i]
		switch tok {
		case "now":
			i++
			continue
		case "today", "midnight":
			base = startOfDay(base)
			i++
			continue
		case "noon":
			base = startOfDay(base).Add(12 * time.Hour)
			i++
			continue
		case "tomorrow":
			base = startOfDay(base).AddDate(0, 0, 1)
			i++
			continue
		case "yesterday":
			base = startOfDay(base).AddDate(0, 0, -1)
			i++
			continue
		}
		if m := clockRe.FindStringSubmatch(tok); m != nil {
			h, _ := strconv.Atoi(m[1])
			mi, _ := strconv.Atoi(m[2])
			s := 0
			if m[3] != "" {
				s, _ = strconv.Atoi(m[3])
			}
			if h > 23 || mi > 59 || s > 59 {
				return time.Time{}, fmt.Errorf("%w: clock %q", ErrInvalidDate, tok)
			}
			y, mo, d := base.Date()
			base = time.Date(y, mo, d, h, mi, s, 0, loc)
			i++
			continue
		}
		n, err := consumeOffsets(toks[i:], &term)
		if err != nil {
			return time.Time{}, err
		}
		if n == 0 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, expr)
		}
		i += n
	}
	return term.AddTo(base), nil
}

func leadingDate(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), true
	}
	if d, err := ParseDay(s); err == nil {
		return d.StartOfDay(loc), true
	}
	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
