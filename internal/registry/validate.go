// internal/registry/validate.go
//
// Candidate construction: the reconciliation of a sanitized request
// against server policy, tier limits, and the prior record.
//
// Context
// -------
// validate is a pure function of (Settings, RequestContext, Request,
// Defaults, prior).  It returns a brand-new Registration; the prior record
// is read, never written.  Order of evaluation:
//
//	product ▸ title/description ▸ email ▸ status ▸ license ▸ limits
//	▸ effective ▸ expires ▸ date-driven status ▸ lists ▸ count
//	▸ timezone/locale ▸ transid ▸ payment fields ▸ plain fields
//
// Notes
// -----
//   - Status, effective and expiration from the request are honoured only
//     when the matching allow_set_* switch is on.
//   - Lists are merge-only: union(prior, request) in first-seen order,
//     truncated to the tier limit.  A list the request omits is untouched.
//   - autoupdate is never taken from the API.
package registry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/swregistry/internal/dates"
	"github.com/yanizio/swregistry/internal/fields"
	"github.com/yanizio/swregistry/internal/license"
)

// Defaults are the values a request falls back to: registrar policy on
// create, the stored record otherwise.
type Defaults struct {
	Product     string
	Title       string
	Description string
	License     license.Tier
	Status      Status
	Effective   string // date or expression
	Expires     string // date, expression, or term
}

// defaultsFor reads the defaults for an existing record.
func defaultsFor(r *Registration) Defaults {
	d := Defaults{
		Product:     r.Product,
		Title:       r.Title,
		Description: r.Description,
		License:     r.License,
		Status:      r.Status,
	}
	if !r.Effective.IsZero() {
		d.Effective = r.Effective.String()
	}
	if !r.Expires.IsZero() {
		d.Expires = r.Expires.String()
	}
	return d
}

var check = validator.New()

func validEmail(s string) bool {
	return s != "" && check.Var(s, "required,email") == nil
}

// validate builds the candidate record.
func validate(s *Settings, rc RequestContext, req *Request, def Defaults, prior *Registration) (*Registration, error) {
	cand := prior.Clone()
	if cand == nil {
		cand = &Registration{}
	}
	res := s.Resolver()

	// product
	if req.Has("product") && fields.Slug(req.Product) != fields.Slug(def.Product) {
		return nil, newError(ErrProductMismatch, "registry_product does not match registration product")
	}
	cand.Product = def.Product
	if req.Key != "" && cand.Key == "" {
		cand.Key = req.Key
	}

	// title, description
	switch {
	case req.Has("title") && strings.TrimSpace(req.Title) != "":
		cand.Title = req.Title
	case def.Title != "":
		cand.Title = def.Title
	default:
		cand.Title = cand.Product
	}
	switch {
	case req.Has("description") && strings.TrimSpace(req.Description) != "":
		cand.Description = req.Description
	case def.Description != "":
		cand.Description = def.Description
	default:
		cand.Description = cand.Title
	}

	// email
	if req.Has("email") {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if !validEmail(email) {
			return nil, newError(ErrInvalidEmail, "valid registry_email is required for registration")
		}
		cand.Email = email
	}

	// status
	cand.Status = def.Status
	if req.Has("status") && s.Options.AllowSetStatus {
		if st, ok := ParseStatus(req.Status); ok {
			cand.Status = st
		}
	}
	if cand.Status == "" {
		cand.Status = s.Status
	}

	// license
	cand.License = def.License
	if req.Has("license") {
		cand.License = s.Policy.Normalize(req.License, def.License)
	}
	if cand.License == "" {
		cand.License = s.License
	}
	limits := s.Policy.LimitsFor(cand.License)

	// dates
	cand.Effective = res.Effective(req.Effective, s.Options.AllowSetEffective, def.Effective)
	cand.Expires = res.Expires(req.Expires, s.Options.AllowSetExpiration, def.Expires,
		s.FallbackTerm(cand.Status), cand.Effective)

	switch {
	case res.PastGrace(cand.Expires):
		if cand.Status != Terminated {
			if prior != nil {
				ps := prior.Status
				if ps == Terminated {
					ps = prior.PriorStatus
				}
				cand.PriorStatus = ps
			}
			cand.Status = Terminated
		}
	case res.Expired(cand.Expires):
		cand.Status = Expired
	case res.InFuture(cand.Effective):
		cand.Status = Future
	}

	// lists
	if req.Has("variations") {
		cand.Variations = mergeList(cand.Variations, req.Variations, limits.Variations, fields.Line)
	}
	if req.Has("options") {
		cand.Options = mergeList(cand.Options, req.Options, limits.Options, fields.Line)
	}
	if req.Has("domains") {
		cand.Domains = mergeList(cand.Domains, req.Domains, limits.Domains, normalizeDomain)
	}
	if req.Has("sites") {
		cand.Sites = mergeList(cand.Sites, req.Sites, limits.Sites, fields.SiteURL)
	}

	// count: a client-supplied count is replaced by the default (0)
	if req.Has("count") {
		cand.Count = 0
	}
	if limits.Count > 0 && (!req.Has("count") || cand.Count == 0 || cand.Count > limits.Count) {
		cand.Count = limits.Count
	}

	// client preferences
	if tz := strings.TrimSpace(req.Timezone); tz != "" {
		if _, err := dates.LoadLocation(tz); err == nil {
			cand.Timezone = tz
		}
	}
	if loc := strings.TrimSpace(req.Locale); loc != "" {
		cand.Locale = loc
	}

	// transaction id
	if req.Has("transid") {
		tid := req.Transid
		if tid != "" && !strings.Contains(tid, "|") {
			if d := rc.RefererDomain(); d != "" {
				tid += "|" + d
			}
		}
		cand.Transid = tid
	}

	// payment
	if req.Has("paydue") {
		cand.Paydue = money(req.Paydue)
	}
	if req.Has("payamount") {
		cand.Payamount = money(req.Payamount)
	}
	if req.Has("paydate") {
		if d, err := res.EndOfDayDate(req.Paydate); err == nil {
			cand.Paydate = d
		}
	}
	if req.Has("nextpay") {
		d, err := res.EndOfDayDate(req.Nextpay)
		if err != nil {
			d = dates.Day{}
		}
		cand.Nextpay = d
	}
	if req.Has("payid") {
		cand.Payid = req.Payid
	}

	// plain fields
	if req.Has("version") {
		cand.Version = req.Version
	}
	if req.Has("name") {
		cand.Name = req.Name
	}
	if req.Has("company") {
		cand.Company = req.Company
	}
	if req.Has("address") {
		cand.Address = req.Address
	}
	if req.Has("phone") {
		cand.Phone = req.Phone
	}
	if len(req.Extras) > 0 {
		if cand.Extras == nil {
			cand.Extras = make(map[string]string, len(req.Extras))
		}
		for k, v := range req.Extras {
			cand.Extras[k] = v
		}
	}
	return cand, nil
}

// mergeList appends the normalized request items that prior lacks, then
// truncates to limit (0 = unlimited).
func mergeList(prior, req []string, limit int, norm func(string) string) []string {
	out := make([]string, 0, len(prior)+len(req))
	seen := make(map[string]bool, len(prior)+len(req))
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}
	for _, v := range prior {
		add(v)
	}
	for _, v := range req {
		add(norm(v))
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func normalizeDomain(s string) string {
	return strings.ToLower(fields.StripWWW(fields.Line(s)))
}

// money keeps positive amounts, formatted to two decimals.
func money(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", f)
}
