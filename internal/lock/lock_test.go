package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripedSerializes(t *testing.T) {
	l := NewStriped(4)
	var (
		inside  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "create:ann@example.com|acme")
			if !assert.NoError(t, err) {
				return
			}
			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	assert.False(t, overlap.Load())
}

func TestStripedHonoursContext(t *testing.T) {
	l := NewStriped(1)
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// fakeRedis answers SETNX from a queue and records script runs.
type fakeRedis struct {
	mu      sync.Mutex
	setnx   []bool
	evals   int
	lastKey string
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, _ any, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastKey = key
	ok := true
	if len(f.setnx) > 0 {
		ok, f.setnx = f.setnx[0], f.setnx[1:]
	}
	return redis.NewBoolResult(ok, nil)
}

func (f *fakeRedis) Eval(context.Context, string, []string, ...any) *redis.Cmd {
	return f.run()
}

func (f *fakeRedis) EvalSha(context.Context, string, []string, ...any) *redis.Cmd {
	return f.run()
}

func (f *fakeRedis) EvalRO(context.Context, string, []string, ...any) *redis.Cmd {
	return f.run()
}

func (f *fakeRedis) EvalShaRO(context.Context, string, []string, ...any) *redis.Cmd {
	return f.run()
}

func (f *fakeRedis) ScriptExists(context.Context, ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}

func (f *fakeRedis) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("sha", nil)
}

func (f *fakeRedis) run() *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals++
	return redis.NewCmdResult(int64(1), nil)
}

func TestRedisLockRetriesThenReleases(t *testing.T) {
	f := &fakeRedis{setnx: []bool{false, false, true}}
	l := newRedis(f, 0)
	assert.Equal(t, DefaultTTL, l.ttl)

	unlock, err := l.Lock(context.Background(), "create:x")
	require.NoError(t, err)
	assert.Equal(t, "swregistry:lock:create:x", f.lastKey)
	assert.Empty(t, f.setnx)

	unlock()
	assert.Equal(t, 1, f.evals)
}

func TestRedisLockContext(t *testing.T) {
	f := &fakeRedis{setnx: []bool{false, false, false, false, false, false, false, false}}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newRedis(f, time.Second).Lock(ctx, "busy")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
