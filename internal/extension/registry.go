// internal/extension/registry.go
//
// Extension registry (cycle-free).
//
// Extensions hook the registration lifecycle without touching the engine.
// Each one calls extension.Register() at startup (cmd/registrar wires the
// notifier and the event publisher this way; plugins may do the same from
// an init() function).  Hooks() returns a registry.Hooks that fans out to
// every registered extension in registration order.
//
// An extension implements Name() plus any subset of the hook interfaces
// below; methods it lacks are skipped.
//
// Workflow
// --------
//   OnBeforeValidate ─▶ OnValidate ─▶ OnTransition ─▶ (persist) ─▶ OnAfterTransition
//
// The first three may mutate what they receive; the first error aborts the
// request.  OnAfterTransition runs post-commit; its panics are recovered
// and logged so one broken observer cannot take the request down.

package extension

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/swregistry/internal/registry"
)

// Extension contract.
type Extension interface {
	Name() string
}

// BeforeValidator sees the sanitized request before the candidate is built.
type BeforeValidator interface {
	OnBeforeValidate(ctx context.Context, action registry.Action, req *registry.Request, prior *registry.Registration) error
}

// Validator sees the finished candidate.
type Validator interface {
	OnValidate(ctx context.Context, action registry.Action, cand, prior *registry.Registration) error
}

// Transitioner runs just before persist.
type Transitioner interface {
	OnTransition(ctx context.Context, action registry.Action, cand, prior *registry.Registration) error
}

// Observer is told about committed transitions.
type Observer interface {
	OnAfterTransition(ctx context.Context, t *registry.Transition)
}

var (
	mu    sync.RWMutex
	order []Extension
	index = map[string]int{}
)

// Register adds e.  Registering the same name again replaces the earlier
// extension in place.
func Register(e Extension) {
	mu.Lock()
	defer mu.Unlock()
	if i, ok := index[e.Name()]; ok {
		order[i] = e
		return
	}
	index[e.Name()] = len(order)
	order = append(order, e)
}

// All returns every registered extension in registration order.
func All() []Extension {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Extension, len(order))
	copy(out, order)
	return out
}

// reset is for tests.
func reset() {
	mu.Lock()
	order = nil
	index = map[string]int{}
	mu.Unlock()
}

// Hooks snapshots the registry into a registry.Hooks.
func Hooks() registry.Hooks { return Chain(All()...) }

// Chain builds registry.Hooks from exts, in order.
func Chain(exts ...Extension) registry.Hooks {
	return chain(exts)
}

type chain []Extension

func (c chain) OnBeforeValidate(ctx context.Context, action registry.Action, req *registry.Request, prior *registry.Registration) error {
	for _, e := range c {
		if h, ok := e.(BeforeValidator); ok {
			if err := h.OnBeforeValidate(ctx, action, req, prior); err != nil {
				return fmt.Errorf("%s: %w", e.Name(), err)
			}
		}
	}
	return nil
}

func (c chain) OnValidate(ctx context.Context, action registry.Action, cand, prior *registry.Registration) error {
	for _, e := range c {
		if h, ok := e.(Validator); ok {
			if err := h.OnValidate(ctx, action, cand, prior); err != nil {
				return fmt.Errorf("%s: %w", e.Name(), err)
			}
		}
	}
	return nil
}

func (c chain) OnTransition(ctx context.Context, action registry.Action, cand, prior *registry.Registration) error {
	for _, e := range c {
		if h, ok := e.(Transitioner); ok {
			if err := h.OnTransition(ctx, action, cand, prior); err != nil {
				return fmt.Errorf("%s: %w", e.Name(), err)
			}
		}
	}
	return nil
}

func (c chain) OnAfterTransition(ctx context.Context, t *registry.Transition) {
	for _, e := range c {
		if h, ok := e.(Observer); ok {
			observe(ctx, e.Name(), h, t)
		}
	}
}

func observe(ctx context.Context, name string, h Observer, t *registry.Transition) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.S().Errorw("extension panic", "extension", name, "action", t.Action, "panic", rec)
		}
	}()
	h.OnAfterTransition(ctx, t)
}
