// internal/lock/lock.go
//
// Create-serialization locks.
//
// Context
// -------
// registry.Engine holds one lock per email+product pair across the
// duplicate check and the insert.  Two implementations:
//
//   • Striped – in-process, a fixed array of mutexes indexed by an FNV
//     hash of the name.  Unrelated names may share a stripe; that only
//     costs a little contention.
//   • Redis   – `SET NX PX` with a random token, released by a
//     compare-and-delete script so an expired holder never frees a lock
//     it no longer owns.  Selected when `redis.addr` is configured.
//
// Both honour ctx: a caller whose context ends while waiting gets
// ctx.Err().

package lock

import (
	"context"
	"hash/fnv"
)

// DefaultStripes is the stripe count used by NewStriped(0).
const DefaultStripes = 64

// Striped is the single-node lock.
type Striped struct {
	stripes []chan struct{}
}

// NewStriped returns a Striped lock with n stripes (DefaultStripes when
// n <= 0).
func NewStriped(n int) *Striped {
	if n <= 0 {
		n = DefaultStripes
	}
	s := &Striped{stripes: make([]chan struct{}, n)}
	for i := range s.stripes {
		s.stripes[i] = make(chan struct{}, 1)
	}
	return s
}

// Lock blocks until the stripe for name is free or ctx ends.
func (s *Striped) Lock(ctx context.Context, name string) (func(), error) {
	ch := s.stripes[stripe(name, len(s.stripes))]
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func stripe(name string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32() % uint32(n))
}
