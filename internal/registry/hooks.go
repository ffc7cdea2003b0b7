// internal/registry/hooks.go
//
// Extension points.
//
// Context
// -------
// The engine calls out at four points of every transition.  The first
// three run before anything is persisted; they may adjust the candidate
// and an error aborts the transition.  OnAfterTransition runs after the
// store commit and cannot abort: notifications, lifecycle events, and
// other fire-and-forget side effects live there.
//
//	OnBeforeValidate ─▶ validate ─▶ OnValidate ─▶ OnTransition ─▶ store
//	                                                              │
//	                                            OnAfterTransition ◀┘
//
// internal/extension provides the startup-time registry that implements
// Hooks; NopHooks is the zero behaviour.
package registry

import (
	"context"
	"time"
)

// Hooks receives engine callouts.
type Hooks interface {
	OnBeforeValidate(ctx context.Context, action Action, req *Request, prior *Registration) error
	OnValidate(ctx context.Context, action Action, cand, prior *Registration) error
	OnTransition(ctx context.Context, action Action, cand, prior *Registration) error
	OnAfterTransition(ctx context.Context, t *Transition)
}

// Transition describes one committed change.
type Transition struct {
	Action        Action
	Context       string // past tense of Action, or "expired"
	Registration  *Registration
	Prior         *Registration // nil on create
	Request       RequestContext
	Settings      *Settings
	EmailToClient bool // client notification requested or implied
	At            time.Time
}

// NopHooks does nothing.
type NopHooks struct{}

func (NopHooks) OnBeforeValidate(context.Context, Action, *Request, *Registration) error {
	return nil
}

func (NopHooks) OnValidate(context.Context, Action, *Registration, *Registration) error {
	return nil
}

func (NopHooks) OnTransition(context.Context, Action, *Registration, *Registration) error {
	return nil
}

func (NopHooks) OnAfterTransition(context.Context, *Transition) {}
