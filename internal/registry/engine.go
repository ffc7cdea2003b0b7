// internal/registry/engine.go
//
// Registration lifecycle engine.
//
// Context
// -------
// Engine owns the state machine.  Every public method follows the same
// shape:
//
//	load prior ─▶ build request ─▶ hooks/validate ─▶ persist ─▶ commit
//
// and returns either a Result for the response builder or an *Error
// carrying the HTTP code.  Work happens on copies; the store sees only
// finished candidates.
//
// Post-commit ("commit") writes the audit note, bumps metrics, and fires
// OnAfterTransition.  None of it can fail the request.
//
// Concurrency
// -----------
// Create holds a Locker entry for email+product across the duplicate
// check and the insert.  Updates rely on the store's last-write-wins
// `UPDATE … WHERE registry_key = ?`.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/swregistry/internal/dates"
	"github.com/yanizio/swregistry/internal/fields"
	"github.com/yanizio/swregistry/internal/metrics"
)

// Store persists registrations.  Implementations return ErrRecordNotFound
// and ErrRecordExists (wrapped or bare).
type Store interface {
	Get(ctx context.Context, key string) (*Registration, error)
	// FindByEmail returns the most recently modified record for email and
	// product, restricted to domain when it is non-empty.
	FindByEmail(ctx context.Context, email, product, domain string) (*Registration, error)
	Create(ctx context.Context, r *Registration) error
	Update(ctx context.Context, r *Registration) error
	AddNote(ctx context.Context, key, note string) error
}

// Locker serializes creates for one email+product pair.
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

// Result is a committed transition, ready for the response builder.
type Result struct {
	Action       Action
	Context      string
	Registration *Registration
	Settings     *Settings
	Request      RequestContext
}

// Engine runs transitions against a Store.
type Engine struct {
	store  Store
	locker Locker
	hooks  Hooks
	newKey func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker replaces the in-process create lock.
func WithLocker(l Locker) Option { return func(e *Engine) { e.locker = l } }

// WithHooks installs extension hooks.
func WithHooks(h Hooks) Option { return func(e *Engine) { e.hooks = h } }

// WithKeyGenerator replaces uuid.NewString.
func WithKeyGenerator(fn func() string) Option { return func(e *Engine) { e.newKey = fn } }

// NewEngine wires an Engine.
func NewEngine(st Store, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		locker: &processLock{},
		hooks:  NopHooks{},
		newKey: uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

/*──────────────────────────── create ──────────────────────────────────────*/

// Create registers a new license.
func (e *Engine) Create(ctx context.Context, s *Settings, rc RequestContext, in fields.Values) (*Result, error) {
	in = in.Clone()

	key, _ := in.Text("key")
	key = strings.TrimSpace(key)
	if key != "" {
		_, err := e.store.Get(ctx, key)
		switch {
		case err == nil:
			return nil, newError(ErrDuplicateRegistration, "registration key already exists")
		case !errors.Is(err, ErrRecordNotFound):
			return nil, wrapError(ErrStoreWriteFailure, "failed to create registration", err)
		}
	}
	if key == "" || !s.Options.AllowSetKey {
		key = e.newKey()
	}
	in["key"] = fields.Scalar(key)

	rawProduct, _ := in.Text("product")
	product := fields.Product(rawProduct)
	s = s.For(product)

	defaults := fields.Values{
		"product": fields.Scalar(product),
		"title":   fields.Scalar(product),
		"status":  fields.Scalar(string(s.Status)),
		"license": fields.Scalar(string(s.License)),
	}
	clean, err := fields.Sanitize(s.Schema, in, defaults, true)
	if err != nil {
		var mf *fields.MissingFieldError
		if errors.As(err, &mf) {
			return nil, &Error{Code: ErrMissingRequiredField.Code, Kind: KindMissingRequiredField, Message: mf.Error(), Err: err}
		}
		return nil, wrapError(ErrBadRequest, "invalid request parameters", err)
	}
	req := NewRequest(clean)

	def := Defaults{
		Product:   product,
		Title:     product,
		Status:    s.Status,
		License:   s.License,
		Effective: s.Effective,
		Expires:   s.Expires,
	}
	cand, err := e.validate(ctx, ActionCreate, s, rc, req, def, nil)
	if err != nil {
		return nil, err
	}
	cand.Key = key

	unlock, err := e.locker.Lock(ctx, "create:"+cand.Email+"|"+cand.Product)
	if err != nil {
		return nil, wrapError(ErrStoreWriteFailure, "failed to create registration", err)
	}
	defer unlock()

	if err := e.checkDuplicate(ctx, cand, rc.RefererDomain()); err != nil {
		return nil, err
	}

	if err := e.hooks.OnTransition(ctx, ActionCreate, cand, nil); err != nil {
		return nil, wrapError(ErrStoreWriteFailure, "failed to create registration", err)
	}
	if err := e.store.Create(ctx, cand); err != nil {
		if errors.Is(err, ErrRecordExists) {
			return nil, newError(ErrDuplicateRegistration, "registration key already exists")
		}
		return nil, wrapError(ErrStoreWriteFailure, "failed to create registration", err)
	}

	t := &Transition{
		Action:        ActionCreate,
		Context:       PastTense(string(ActionCreate)),
		Registration:  cand,
		Request:       rc,
		Settings:      s,
		EmailToClient: req.EmailToClient || s.ClientOnCreate,
		At:            s.Now,
	}
	e.commit(ctx, t)
	return t.result(), nil
}

// checkDuplicate rejects a second registration for the same email and
// product (and referring domain, when known) unless the existing one is
// terminated.
func (e *Engine) checkDuplicate(ctx context.Context, cand *Registration, domain string) error {
	existing, err := e.store.FindByEmail(ctx, cand.Email, cand.Product, domain)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return nil
	case err != nil:
		return wrapError(ErrStoreWriteFailure, "failed to create registration", err)
	}

	if existing.Status == Terminated {
		return nil
	}
	if domain != "" {
		return newError(ErrDuplicateRegistration, "registration for this host with this email and product already exists")
	}
	return newError(ErrDuplicateRegistration, "registration with this email and product already exists")
}

/*──────────────────────── activate / revise / refresh ─────────────────────*/

// Activate marks a registration active, restoring a terminated one.
func (e *Engine) Activate(ctx context.Context, s *Settings, rc RequestContext, in fields.Values) (*Result, error) {
	return e.revise(ctx, ActionActivate, s, rc, in)
}

// Revise applies client changes to a registration.
func (e *Engine) Revise(ctx context.Context, s *Settings, rc RequestContext, in fields.Values) (*Result, error) {
	return e.revise(ctx, ActionRevise, s, rc, in)
}

// Refresh re-validates a registration, applying changes on POST.
func (e *Engine) Refresh(ctx context.Context, s *Settings, rc RequestContext, in fields.Values) (*Result, error) {
	return e.revise(ctx, ActionRefresh, s, rc, in)
}

func (e *Engine) revise(ctx context.Context, action Action, s *Settings, rc RequestContext, in fields.Values) (*Result, error) {
	key, _ := in.Text("key")
	prior, err := e.load(ctx, action, key)
	if err != nil {
		return nil, err
	}
	s = s.For(prior.Product)

	clean, err := fields.Sanitize(s.Schema, in, nil, false)
	if err != nil {
		return nil, wrapError(ErrBadRequest, "invalid request parameters", err)
	}
	req := NewRequest(clean)

	var cand *Registration
	if (!rc.IsAPI() || rc.IsPost()) && (action != ActionActivate || s.Options.AllowActivationUpdate) {
		def := defaultsFor(prior)

		restored := false
		if action == ActionActivate && def.Status == Terminated {
			def.Status = prior.PriorStatus
			if def.Status == "" || def.Status == Terminated {
				def.Status = s.Status
			}
			restored = true
		}

		if next, ok := e.renewal(s, prior.Expires, prior.Autoupdate, def.Status); ok {
			def.Expires = next.String()
			def.Status = Active
			req.Set("expires", fields.Scalar(def.Expires))
			req.Set("status", fields.Scalar(string(Active)))
		}

		if req.Has("license") {
			req.License = string(s.Policy.Normalize(req.License, def.License))
		}

		cand, err = e.validate(ctx, action, s, rc, req, def, prior)
		if err != nil {
			return nil, err
		}
		if restored && cand.Status != Terminated {
			cand.PriorStatus = ""
		}
	} else {
		req = req.keyOnly()
		cand = prior.Clone()
	}

	if rc.IsAPI() {
		cand.Refreshed = s.Now
	}

	if err := e.hooks.OnTransition(ctx, action, cand, prior); err != nil {
		return nil, wrapError(ErrStoreWriteFailure, fmt.Sprintf("failed to %s registration", action), err)
	}
	if err := e.store.Update(ctx, cand); err != nil {
		return nil, wrapError(ErrStoreWriteFailure, fmt.Sprintf("failed to %s registration", action), err)
	}

	t := &Transition{
		Action:        action,
		Context:       PastTense(string(action)),
		Registration:  cand,
		Prior:         prior,
		Request:       rc,
		Settings:      s,
		EmailToClient: req.EmailToClient,
		At:            s.Now,
	}
	e.commit(ctx, t)
	return t.result(), nil
}

/*──────────────────────────── deactivate ──────────────────────────────────*/

// Deactivate terminates a registration.  The previous status is kept so a
// later activate can restore it.
func (e *Engine) Deactivate(ctx context.Context, s *Settings, rc RequestContext, in fields.Values) (*Result, error) {
	key, _ := in.Text("key")
	prior, err := e.load(ctx, ActionDeactivate, key)
	if err != nil {
		return nil, err
	}
	s = s.For(prior.Product)

	cand := prior.Clone()
	cand.PriorStatus = prior.Status
	cand.Status = Terminated
	if rc.IsAPI() {
		cand.Refreshed = s.Now
	}

	if err := e.hooks.OnTransition(ctx, ActionDeactivate, cand, prior); err != nil {
		return nil, wrapError(ErrStoreWriteFailure, "failed to deactivate registration", err)
	}
	if err := e.store.Update(ctx, cand); err != nil {
		return nil, wrapError(ErrStoreWriteFailure, "failed to deactivate registration", err)
	}

	emailClient := false
	if v, ok := in.Text("_email_to_client"); ok {
		emailClient = fields.IsTrue(v)
	}
	t := &Transition{
		Action:        ActionDeactivate,
		Context:       PastTense(string(ActionDeactivate)),
		Registration:  cand,
		Prior:         prior,
		Request:       rc,
		Settings:      s,
		EmailToClient: emailClient,
		At:            s.Now,
	}
	e.commit(ctx, t)
	return t.result(), nil
}

/*──────────────────────────── verify ──────────────────────────────────────*/

// Verify reports a registration's state, recording the client's timezone
// and the refresh stamp, and expiring or auto-renewing it when its term
// has run out.
func (e *Engine) Verify(ctx context.Context, s *Settings, rc RequestContext, in fields.Values) (*Result, error) {
	key, _ := in.Text("key")
	prior, err := e.load(ctx, ActionVerify, key)
	if err != nil {
		return nil, err
	}
	s = s.For(prior.Product)

	cand := prior.Clone()
	if tz, ok := in.Text("timezone"); ok {
		if tz = fields.Line(tz); tz != "" {
			if _, err := dates.LoadLocation(tz); err == nil {
				cand.Timezone = tz
			}
		}
	}
	if loc, ok := in.Text("locale"); ok {
		if loc = fields.Line(loc); loc != "" {
			cand.Locale = loc
		}
	}
	cand.Refreshed = s.Now

	tag := PastTense(string(ActionVerify))
	if s.Resolver().Expired(cand.Expires) {
		if next, ok := e.renewal(s, cand.Expires, cand.Autoupdate, cand.Status); ok {
			cand.Expires = next
			cand.Status = Active
		} else if cand.Status != Expired && cand.Status != Terminated {
			cand.Status = Expired
			tag = "expired"
		}
	}

	if err := e.hooks.OnTransition(ctx, ActionVerify, cand, prior); err != nil {
		return nil, wrapError(ErrStoreWriteFailure, "failed to verify registration", err)
	}
	if err := e.store.Update(ctx, cand); err != nil {
		return nil, wrapError(ErrStoreWriteFailure, "failed to verify registration", err)
	}

	t := &Transition{
		Action:       ActionVerify,
		Context:      tag,
		Registration: cand,
		Prior:        prior,
		Request:      rc,
		Settings:     s,
		At:           s.Now,
	}
	e.commit(ctx, t)
	return t.result(), nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// load fetches the record for key and applies the action's access rules.
func (e *Engine) load(ctx context.Context, action Action, key string) (*Registration, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, newError(ErrBadRequest, "registration key is required")
	}
	r, err := e.store.Get(ctx, key)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, newError(ErrNotFound, fmt.Sprintf("registration post for '%s' not found", key))
	}
	if err != nil {
		return nil, wrapError(ErrStoreWriteFailure, fmt.Sprintf("failed to %s registration", action), err)
	}
	if r.Status == Terminated && action != ActionActivate {
		return nil, newError(ErrTerminated, "registration terminated")
	}
	return r, nil
}

// validate wraps the pure candidate builder with the validation hooks.
func (e *Engine) validate(ctx context.Context, action Action, s *Settings, rc RequestContext, req *Request, def Defaults, prior *Registration) (*Registration, error) {
	if err := e.hooks.OnBeforeValidate(ctx, action, req, prior); err != nil {
		return nil, wrapError(ErrValidationFailed, "failed registration validation", err)
	}
	cand, err := validate(s, rc, req, def, prior)
	if err != nil {
		return nil, err
	}
	if err := e.hooks.OnValidate(ctx, action, cand, prior); err != nil {
		return nil, wrapError(ErrValidationFailed, "failed registration validation", err)
	}
	return cand, nil
}

// renewal computes the auto-renewed expiry.  It applies only to lapsed
// trial/active records with autoupdate set, and always uses the initial
// term.
func (e *Engine) renewal(s *Settings, expires dates.Day, autoupdate bool, status Status) (dates.Day, bool) {
	res := s.Resolver()
	if !autoupdate || !status.Published() || !res.Expired(expires) {
		return dates.Day{}, false
	}
	next, err := res.Renew(expires, s.Term)
	if err != nil {
		zap.S().Warnw("auto-renew skipped", "term", s.Term, "err", err)
		return dates.Day{}, false
	}
	metrics.AutoRenewals.Inc()
	return next, true
}

// commit runs the post-persist side effects.
func (e *Engine) commit(ctx context.Context, t *Transition) {
	r := t.Registration
	metrics.Transitions.WithLabelValues(string(t.Action), string(r.Status)).Inc()

	if err := e.store.AddNote(ctx, r.Key, auditNote(t)); err != nil {
		zap.S().Warnw("audit note failed", "key", r.Key, "err", err)
	}
	zap.S().Infow("registration "+t.Context,
		"key", r.Key,
		"product", r.Product,
		"status", r.Status,
		"source", t.Request.Source,
	)
	e.hooks.OnAfterTransition(ctx, t)
}

func (t *Transition) result() *Result {
	return &Result{
		Action:       t.Action,
		Context:      t.Context,
		Registration: t.Registration,
		Settings:     t.Settings,
		Request:      t.Request,
	}
}

// processLock is the single-node create lock.
type processLock struct{ mu sync.Mutex }

func (l *processLock) Lock(ctx context.Context, _ string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	return l.mu.Unlock, nil
}
