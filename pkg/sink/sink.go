// Package sink carries graph change events from the engine toward the view
// fan-out, buffering and coalescing them per transaction.
package sink

import (
	"github.com/provgraph/pvm/pkg/types"
)

// DefaultCapacity is the engine→coordinator channel capacity.
const DefaultCapacity = 100_000

// Sink is the engine end of the change-event channel. Sends block when the
// channel is full, so a slow consumer back-pressures the applier.
type Sink struct {
	ch chan types.Change
}

// New returns a sink with the given channel capacity (DefaultCapacity if
// capacity is not positive).
func New(capacity int) *Sink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Sink{ch: make(chan types.Change, capacity)}
}

// Events returns the consumer end of the channel.
func (s *Sink) Events() <-chan types.Change {
	return s.ch
}

// CreateNode emits a node creation directly, outside any transaction. Used
// for schema descriptors.
func (s *Sink) CreateNode(n types.Node) {
	s.ch <- types.Change{Op: types.CreateNode, Node: n}
}

// Close closes the channel, releasing the broadcaster.
func (s *Sink) Close() {
	close(s.ch)
}

func (s *Sink) send(c types.Change) {
	s.ch <- c
}
