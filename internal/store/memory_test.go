package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/swregistry/internal/registry"
)

func TestMemoryCreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	r := &registry.Registration{Key: "k1", Product: "acme", Email: "a@example.com", Domains: []string{"example.com"}}
	require.NoError(t, m.Create(ctx, r))
	require.ErrorIs(t, m.Create(ctx, r), ErrDuplicate)

	got, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Product)
	assert.False(t, got.CreatedAt.IsZero())

	// returned records are copies
	got.Domains[0] = "mutated.com"
	again, _ := m.Get(ctx, "k1")
	assert.Equal(t, "example.com", again.Domains[0])

	got.Title = "Acme"
	require.NoError(t, m.Update(ctx, got))
	again, _ = m.Get(ctx, "k1")
	assert.Equal(t, "Acme", again.Title)
	assert.True(t, again.UpdatedAt.After(again.CreatedAt))

	_, err = m.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, m.Update(ctx, &registry.Registration{Key: "missing"}), ErrNotFound)
}

func TestMemoryFindByEmail(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, &registry.Registration{Key: "old", Product: "acme", Email: "a@example.com"}))
	require.NoError(t, m.Create(ctx, &registry.Registration{Key: "new", Product: "acme", Email: "a@example.com",
		Domains: []string{"shop.example.com"}}))
	require.NoError(t, m.Create(ctx, &registry.Registration{Key: "tid", Product: "acme", Email: "b@example.com",
		Transid: "T-9|blog.example.org"}))

	got, err := m.FindByEmail(ctx, "A@example.com", "acme", "")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Key, "most recently modified wins")

	got, err = m.FindByEmail(ctx, "a@example.com", "acme", "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Key)

	got, err = m.FindByEmail(ctx, "b@example.com", "acme", "blog.example.org")
	require.NoError(t, err)
	assert.Equal(t, "tid", got.Key)

	_, err = m.FindByEmail(ctx, "a@example.com", "acme", "other.example.net")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindByEmail(ctx, "a@example.com", "widget", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryNotes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.AddNote(ctx, "k", "first"))
	require.NoError(t, m.AddNote(ctx, "k", "second"))

	notes, err := m.Notes(ctx, "k")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "first", notes[0].Text)
	assert.Equal(t, "second", notes[1].Text)
}
