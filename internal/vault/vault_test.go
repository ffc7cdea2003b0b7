package vault

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapReader struct {
	calls atomic.Int32
	delay time.Duration
	data  map[string]map[string]any
}

func (m *mapReader) Read(_ context.Context, p string) (map[string]any, error) {
	m.calls.Add(1)
	time.Sleep(m.delay)
	d, ok := m.data[p]
	if !ok {
		return nil, errors.New("secret not found")
	}
	return d, nil
}

func TestGetKVCachesUntilTTL(t *testing.T) {
	r := &mapReader{data: map[string]map[string]any{
		"secret/registrar/keys": {"create": "c-key", "count": 3},
	}}
	c := newClient(r, time.Minute)
	clock := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	v, err := c.GetKV(context.Background(), "secret/registrar/keys", "create")
	require.NoError(t, err)
	assert.Equal(t, "c-key", v)

	_, _ = c.GetKV(context.Background(), "secret/registrar/keys", "create")
	assert.Equal(t, int32(1), r.calls.Load())

	clock = clock.Add(2 * time.Minute)
	_, _ = c.GetKV(context.Background(), "secret/registrar/keys", "create")
	assert.Equal(t, int32(2), r.calls.Load())

	c.Invalidate("secret/registrar/keys")
	_, _ = c.GetKV(context.Background(), "secret/registrar/keys", "create")
	assert.Equal(t, int32(3), r.calls.Load())

	_, err = c.GetKV(context.Background(), "secret/registrar/keys", "missing")
	assert.ErrorContains(t, err, `key "missing" not found`)
	_, err = c.GetKV(context.Background(), "secret/registrar/keys", "count")
	assert.ErrorContains(t, err, "is not a string")
	_, err = c.GetKV(context.Background(), "secret/other", "x")
	assert.ErrorContains(t, err, "vault get secret/other")
	_, err = c.GetKV(context.Background(), "", "x")
	assert.Error(t, err)
}

func TestGetKVCollapsesConcurrentMisses(t *testing.T) {
	r := &mapReader{delay: 20 * time.Millisecond, data: map[string]map[string]any{
		"secret/keys": {"read": "r-key"},
	}}
	c := newClient(r, 0)
	assert.Equal(t, DefaultTTL, c.ttl)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetKV(context.Background(), "secret/keys", "read")
			assert.NoError(t, err)
			assert.Equal(t, "r-key", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestSplitMount(t *testing.T) {
	m, rel := splitMount("secret/registrar/keys")
	assert.Equal(t, "secret", m)
	assert.Equal(t, "registrar/keys", rel)
}
