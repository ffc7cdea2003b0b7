// internal/registry/settings.go
//
// Immutable per-request policy snapshot.
//
// Context
// -------
// Settings freezes everything the engine needs from configuration at the
// start of a request: registrar defaults, policy switches, the license
// ladder, the field schema, and the clock.  Handlers build one with
// NewSettings(config.Get(), …) and never share it across requests, so a
// config Reload mid-request cannot change the rules halfway through a
// transition.
//
// Per-product overrides (`registrar.products.<product>`) are applied by
// For once the product is known: from the request on create, from the
// stored record otherwise.
package registry

import (
	"fmt"
	"time"

	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/dates"
	"github.com/yanizio/swregistry/internal/fields"
	"github.com/yanizio/swregistry/internal/license"
)

// Settings is the resolved registrar policy for one request.
type Settings struct {
	Now    time.Time
	Loc    *time.Location
	Policy *license.Policy
	Schema *fields.Schema

	Product  string // product the overrides were resolved for; "" before For
	Status   Status
	License  license.Tier
	Term     string
	Fullterm string

	// Default expressions for new records; empty means today / term.
	Effective string
	Expires   string

	CacheTime   int
	PendingTime int // seconds
	RefreshTime int // seconds

	Options  config.Options
	Contact  config.Contact
	Name     string // registrar name
	Host     string
	Locale   string
	Admin    string // admin notification address
	Messages config.Messages

	ClientOnCreate bool // e-mail the client on every create

	products map[string]config.Product
}

// NewSettings snapshots cfg.  A nil policy or schema selects the built-in
// one.
func NewSettings(cfg *config.Config, policy *license.Policy, schema *fields.Schema, now time.Time) (*Settings, error) {
	rc := cfg.Registrar

	loc, err := dates.LoadLocation(rc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("registrar timezone %q: %w", rc.Timezone, err)
	}
	if policy == nil {
		policy = license.Default()
	}
	if schema == nil {
		schema = fields.Default()
	}

	s := &Settings{
		Now:       now.In(loc),
		Loc:       loc,
		Policy:    policy,
		Schema:    schema,
		Term:      rc.Term,
		Fullterm:  rc.Fullterm,
		Effective: rc.Effective,
		Expires:   rc.Expires,
		CacheTime: rc.CacheTime,
		Options:   rc.Options,
		Contact:   rc.Contact,
		Name:      rc.Name,
		Host:      rc.Host,
		Locale:    rc.Locale,
		Admin:     rc.Notify.AdminEmail,
		Messages:  rc.Messages,

		ClientOnCreate: rc.Notify.ClientOnCreate,
		products:       make(map[string]config.Product, len(rc.Products)),
	}
	s.Status, _ = ParseStatus(rc.Status)
	if s.Status == "" {
		s.Status = Pending
	}
	s.License = policy.Normalize(rc.License, license.Standard)
	s.PendingTime, _, _ = config.ParseInterval(rc.PendingTime)
	s.RefreshTime, _, _ = config.ParseInterval(rc.RefreshTime)

	for name, p := range rc.Products {
		s.products[fields.Slug(name)] = p
	}
	return s, nil
}

// For returns a copy with the overrides for product applied.
func (s *Settings) For(product string) *Settings {
	c := *s
	c.Product = product

	p, ok := s.products[fields.Slug(product)]
	if !ok {
		return &c
	}
	if p.Term != "" {
		c.Term = p.Term
	}
	if p.Fullterm != "" {
		c.Fullterm = p.Fullterm
	}
	if st, ok := ParseStatus(p.Status); ok {
		c.Status = st
	}
	if p.License != "" {
		c.License = s.Policy.Normalize(p.License, s.License)
	}
	if p.CacheTime > 0 {
		c.CacheTime = p.CacheTime
	}
	if sec, _, ok := config.ParseInterval(p.PendingTime); ok {
		c.PendingTime = sec
	}
	if sec, _, ok := config.ParseInterval(p.RefreshTime); ok {
		c.RefreshTime = sec
	}
	if p.Options != nil {
		c.Options = *p.Options
	}
	return &c
}

// Resolver pins the registry timezone and clock.
func (s *Settings) Resolver() dates.Resolver {
	return dates.NewResolver(s.Loc, s.Now)
}

// ClientLocation is the registration's own timezone when valid, the
// registry timezone otherwise.
func (s *Settings) ClientLocation(r *Registration) *time.Location {
	if r != nil && r.Timezone != "" {
		if loc, err := dates.LoadLocation(r.Timezone); err == nil {
			return loc
		}
	}
	return s.Loc
}

// FallbackTerm is the initial term for pending and trial records, the full
// term otherwise.
func (s *Settings) FallbackTerm(st Status) string {
	if st == Pending || st == Trial {
		return s.Term
	}
	return s.Fullterm
}

// OptionNames lists the enabled policy switches.
func (s *Settings) OptionNames() []string {
	out := make([]string, 0, 5)
	add := func(on bool, name string) {
		if on {
			out = append(out, name)
		}
	}
	add(s.Options.AllowSetKey, "allow_set_key")
	add(s.Options.AllowSetStatus, "allow_set_status")
	add(s.Options.AllowSetEffective, "allow_set_effective")
	add(s.Options.AllowSetExpiration, "allow_set_expiration")
	add(s.Options.AllowActivationUpdate, "allow_activation_update")
	return out
}
