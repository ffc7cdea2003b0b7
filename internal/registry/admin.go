// internal/registry/admin.go
//
// Administrative update path.
//
// Context
// -------
// An operator editing a record directly (admin tooling, a bulk import) is
// trusted: nothing is refused.  AdminUpdate still normalizes what it can,
// recomputes dates on a status change, and applies the date-driven status
// rules, then saves.  Every problem it notices is logged and returned so
// the caller can surface it.
//
// Differences from the API path
//   - No required-field, product, or duplicate checks.
//   - Status is taken as given except for the expired / future overrides;
//     the admin path never terminates a record on its own.
//   - autoupdate is honoured.
package registry

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/swregistry/internal/dates"
	"github.com/yanizio/swregistry/internal/fields"
)

// AdminUpdate saves an administratively edited record.
func (e *Engine) AdminUpdate(ctx context.Context, s *Settings, rc RequestContext, reg *Registration) (*Registration, []error) {
	var problems []error
	note := func(err error) {
		zap.S().Warnw("admin update", "key", reg.Key, "err", err)
		problems = append(problems, err)
	}

	if rc.Source == "" {
		rc.Source = SourceAdmin
	}
	cand := reg.Clone()
	if cand.Key == "" {
		cand.Key = e.newKey()
	}
	cand.Product = fields.Product(cand.Product)
	s = s.For(cand.Product)
	res := s.Resolver()

	prior, err := e.store.Get(ctx, cand.Key)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		note(fmt.Errorf("load prior: %w", err))
	}
	if err != nil {
		prior = nil
	}

	// text
	cand.Title = fields.Line(fields.Text(cand.Title))
	if cand.Title == "" {
		cand.Title = cand.Product
	}
	cand.Description = fields.Text(cand.Description)
	if cand.Description == "" {
		cand.Description = cand.Title
	}
	cand.Email = fields.Email(cand.Email)
	if cand.Email != "" && !validEmail(cand.Email) {
		note(fmt.Errorf("invalid email %q", cand.Email))
	}
	if cand.Timezone != "" {
		if _, err := dates.LoadLocation(cand.Timezone); err != nil {
			note(fmt.Errorf("unknown timezone %q", cand.Timezone))
			cand.Timezone = ""
		}
	}

	// license and lists
	if !s.Policy.Known(cand.License) {
		lic := s.Policy.Normalize(string(cand.License), s.License)
		if cand.License != "" {
			note(fmt.Errorf("unknown license %q, using %s", cand.License, lic))
		}
		cand.License = lic
	}
	limits := s.Policy.LimitsFor(cand.License)
	cand.Variations = mergeList(nil, cand.Variations, limits.Variations, fields.Line)
	cand.Options = mergeList(nil, cand.Options, limits.Options, fields.Line)
	cand.Domains = mergeList(nil, cand.Domains, limits.Domains, normalizeDomain)
	cand.Sites = mergeList(nil, cand.Sites, limits.Sites, fields.SiteURL)
	if limits.Count > 0 && (cand.Count == 0 || cand.Count > limits.Count) {
		cand.Count = limits.Count
	}

	// dates follow a status change
	if _, ok := ParseStatus(string(cand.Status)); !ok {
		note(fmt.Errorf("unknown status %q, using %s", cand.Status, s.Status))
		cand.Status = s.Status
	}
	if prior != nil && cand.Status != Expired && cand.Status != Terminated &&
		cand.Status != Inactive && cand.Status != prior.Status {
		if cand.Effective == prior.Effective {
			cand.Effective = res.Today()
		}
		if cand.Expires == prior.Expires {
			cand.Expires = res.Expires("", false, "", s.FallbackTerm(cand.Status), cand.Effective)
		}
	}
	if cand.Effective.IsZero() {
		cand.Effective = res.Today()
	}
	if cand.Expires.IsZero() {
		cand.Expires = res.Expires("", false, s.Expires, s.FallbackTerm(cand.Status), cand.Effective)
	}
	if cand.Status != Terminated && cand.Status != Inactive {
		switch {
		case res.Expired(cand.Expires):
			cand.Status = Expired
		case res.InFuture(cand.Effective):
			cand.Status = Future
		}
	}

	if err := e.hooks.OnValidate(ctx, ActionUpdate, cand, prior); err != nil {
		note(fmt.Errorf("validation hook: %w", err))
	}

	if prior == nil {
		err = e.store.Create(ctx, cand)
	} else {
		err = e.store.Update(ctx, cand)
	}
	if err != nil {
		note(fmt.Errorf("save: %w", err))
		return cand, problems
	}

	e.commit(ctx, &Transition{
		Action:       ActionUpdate,
		Context:      PastTense(string(ActionUpdate)),
		Registration: cand,
		Prior:        prior,
		Request:      rc,
		Settings:     s,
		At:           s.Now,
	})
	return cand, problems
}
