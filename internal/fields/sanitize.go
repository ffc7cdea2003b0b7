// internal/fields/sanitize.go
//
// Server-side sanitation of registration input.
//
// Context
//   Sanitize is phase one of the request pipeline.  It walks the schema,
//   trims and strips every present value according to its kind, and, on
//   create, enforces required fields and back-fills defaults.  Phase two
//   (business rules, dates, limits) lives in the registry package.
//
// Workflow
//   •  Present field → sanitize by kind (lists are split on commas first).
//   •  Absent field, requireOnMissing:
//        required → MissingFieldError, optional → left absent,
//        otherwise → default value (or the kind's zero value).
//   •  Absent field, !requireOnMissing → left absent.
//   •  Non-schema entries (custom fields, directives) are text-sanitized and
//      carried through unchanged in name.
//
//------------------------------------------------------------------------------

package fields

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// MissingFieldError reports a required field absent on create.
type MissingFieldError struct{ Field string }

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s%s is required for registration", Prefix, e.Field)
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Sanitize returns a cleaned copy of in.  defaults supplies back-fill values
// when requireOnMissing is set.
func Sanitize(s *Schema, in, defaults Values, requireOnMissing bool) (Values, error) {
	out := make(Values, len(in))

	for _, def := range s.Fields {
		raw, present := in[def.Name]
		if present {
			out[def.Name] = sanitizeValue(def, raw)
			continue
		}
		if !requireOnMissing || def.Optional {
			continue
		}
		if def.Required {
			if dv, ok := defaults[def.Name]; ok && strings.TrimSpace(dv.String()) != "" {
				out[def.Name] = sanitizeValue(def, dv)
				continue
			}
			return nil, &MissingFieldError{Field: def.Name}
		}
		if dv, ok := defaults[def.Name]; ok {
			out[def.Name] = sanitizeValue(def, dv)
		} else if def.Kind.IsList() {
			out[def.Name] = ListOf()
		} else {
			out[def.Name] = Scalar("")
		}
	}

	for name, raw := range in {
		if s.Has(name) {
			continue
		}
		if raw.IsList {
			items := make([]string, 0, len(raw.List))
			for _, it := range raw.List {
				items = append(items, Text(it))
			}
			out[name] = ListOf(items...)
			continue
		}
		out[name] = Scalar(Text(raw.Text))
	}
	return out, nil
}

func sanitizeValue(def Def, raw Value) Value {
	if def.Kind.IsList() {
		items := raw.Items()
		clean := make([]string, 0, len(items))
		for _, it := range items {
			if c := Text(it); c != "" {
				clean = append(clean, c)
			}
		}
		return ListOf(clean...)
	}

	v := Text(raw.String())
	switch def.Kind {
	case KindTitle:
		v = Line(v)
	case KindProduct:
		v = Product(v)
	case KindEmail:
		v = Email(v)
	}
	return Scalar(v)
}

// -----------------------------------------------------------------------------
// Field-level helpers
// -----------------------------------------------------------------------------

var (
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	wwwRe    = regexp.MustCompile(`(?i)^www\.(.+\.)`)
	schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
)

// Text strips tags, invalid UTF-8, and control characters (newlines and
// tabs survive), then trims.  A "<" that opens no complete tag becomes
// "&lt;".
func Text(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = tagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Line is Text collapsed onto a single line.
func Line(s string) string {
	return strings.Join(strings.Fields(Text(s)), " ")
}

// Product keeps ASCII letters, digits, "_", and any non-ASCII rune; every
// other rune becomes "_".
func Product(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 0x7f:
			return r
		}
		return '_'
	}, strings.TrimSpace(s))
}

// Email lowercases and removes whitespace and characters that can never
// appear in an address.
func Email(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(`<>()[]\,;:"`, r) {
			return -1
		}
		return r
	}, s)
}

// StripWWW drops one leading "www." label when at least one more label
// follows ("www.example.com" → "example.com", "www.com" unchanged).
func StripWWW(host string) string {
	return wwwRe.ReplaceAllString(strings.TrimSpace(host), "$1")
}

// SiteURL sanitizes a site URL.  Bare hosts get "http://"; anything that is
// not http(s) or does not parse yields "".
func SiteURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !schemeRe.MatchString(s) {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ""
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u.String()
}
