// Package ids allocates entity IDs from a single monotonic namespace with
// snapshot/commit support for transactional use.
package ids

import (
	"sync/atomic"

	"github.com/provgraph/pvm/pkg/types"
)

// Counter allocates fresh IDs. Create counters with NewCounter, which raises
// an initial value of types.NoID to 1 so that NoID is never handed out; the
// zero value Counter starts at NoID.
type Counter struct {
	next atomic.Uint64
}

// NewCounter returns a counter whose next allocation is init.
func NewCounter(init types.ID) *Counter {
	c := &Counter{}
	c.next.Store(uint64(init))
	if init == types.NoID {
		c.next.Store(1)
	}
	return c
}

// Get allocates the next ID.
func (c *Counter) Get() types.ID {
	return types.ID(c.next.Add(1) - 1)
}

// Peek returns the next ID without allocating it.
func (c *Counter) Peek() types.ID {
	return types.ID(c.next.Load())
}

// Snapshot returns an independent counter initialised from the current value.
// IDs drawn from the snapshot are reserved optimistically: they only become
// visible to the parent when the snapshot is committed back.
func (c *Counter) Snapshot() *Snapshot {
	return &Snapshot{parent: c, cur: NewCounter(c.Peek())}
}

// Snapshot is a transactional view over a parent Counter. Discarding it
// leaves the parent untouched, so all IDs allocated within are reclaimed.
type Snapshot struct {
	parent *Counter
	cur    *Counter
}

// Get allocates the next ID from the snapshot.
func (s *Snapshot) Get() types.ID {
	return s.cur.Get()
}

// Commit publishes the snapshot's value back to the parent, making every ID
// allocated within permanent.
func (s *Snapshot) Commit() {
	s.parent.next.Store(uint64(s.cur.Peek()))
}
