package extension

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/swregistry/internal/registry"
)

type titleCase struct{ calls *[]string }

func (titleCase) Name() string { return "title" }

func (h titleCase) OnValidate(_ context.Context, _ registry.Action, cand, _ *registry.Registration) error {
	*h.calls = append(*h.calls, "title")
	cand.Title = "[" + cand.Title + "]"
	return nil
}

type seatGuard struct {
	calls *[]string
	err   error
}

func (seatGuard) Name() string { return "seats" }

func (h seatGuard) OnValidate(context.Context, registry.Action, *registry.Registration, *registry.Registration) error {
	*h.calls = append(*h.calls, "seats")
	return h.err
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }

func (panicky) OnAfterTransition(context.Context, *registry.Transition) { panic("boom") }

type counter struct{ n int }

func (*counter) Name() string { return "counter" }

func (c *counter) OnAfterTransition(context.Context, *registry.Transition) { c.n++ }

func TestChainOrderAndAbort(t *testing.T) {
	var calls []string
	h := Chain(titleCase{&calls}, seatGuard{calls: &calls, err: errors.New("no seats left")}, titleCase{&calls})

	cand := &registry.Registration{Title: "Acme"}
	err := h.OnValidate(context.Background(), registry.ActionCreate, cand, nil)
	require.EqualError(t, err, "seats: no seats left")
	assert.Equal(t, []string{"title", "seats"}, calls)
	assert.Equal(t, "[Acme]", cand.Title)

	assert.NoError(t, h.OnTransition(context.Background(), registry.ActionCreate, cand, nil))
	assert.NoError(t, h.OnBeforeValidate(context.Background(), registry.ActionCreate, &registry.Request{}, nil))
}

func TestObserverPanicIsContained(t *testing.T) {
	c := &counter{}
	h := Chain(panicky{}, c)
	assert.NotPanics(t, func() {
		h.OnAfterTransition(context.Background(), &registry.Transition{Action: registry.ActionVerify})
	})
	assert.Equal(t, 1, c.n)
}

func TestRegister(t *testing.T) {
	t.Cleanup(reset)
	reset()

	first, second := &counter{}, &counter{}
	Register(first)
	Register(panicky{})
	Register(second)

	all := All()
	require.Len(t, all, 2)
	assert.Same(t, second, all[0])

	Hooks().OnAfterTransition(context.Background(), &registry.Transition{})
	assert.Equal(t, 0, first.n)
	assert.Equal(t, 1, second.n)
}
