package sink

import (
	"fmt"

	"github.com/provgraph/pvm/pkg/types"
)

// TxStore buffers the change events of one transaction, coalescing them by
// entity ID. Successive operations on the same ID merge so that at most one
// event per ID survives, holding the latest payload; order among distinct
// IDs is preserved. Two creations of the same ID are a programming error.
type TxStore struct {
	sink *Sink
	ops  []types.Change
}

// Store returns an empty transaction store feeding s.
func (s *Sink) Store() *TxStore {
	return &TxStore{sink: s}
}

// CreateNode buffers a node creation.
func (t *TxStore) CreateNode(n types.Node) {
	t.insert(types.Change{Op: types.CreateNode, Node: n})
}

// CreateNodeHead buffers a node creation ahead of everything already
// buffered. Used to emit the context node first on commit.
func (t *TxStore) CreateNodeHead(n types.Node) {
	t.ops = append([]types.Change{{Op: types.CreateNode, Node: n}}, t.ops...)
}

// UpdateNode buffers a node update.
func (t *TxStore) UpdateNode(n types.Node) {
	t.insert(types.Change{Op: types.UpdateNode, Node: n})
}

// CreateRel buffers a relationship creation.
func (t *TxStore) CreateRel(r types.Rel) {
	t.insert(types.Change{Op: types.CreateRel, Rel: r})
}

// UpdateRel buffers a relationship update.
func (t *TxStore) UpdateRel(r types.Rel) {
	t.insert(types.Change{Op: types.UpdateRel, Rel: r})
}

func (t *TxStore) insert(op types.Change) {
	for i, cur := range t.ops {
		if cur.IsNode() != op.IsNode() || cur.TargetID() != op.TargetID() {
			continue
		}
		if cur.IsCreate() && op.IsCreate() {
			panic(fmt.Sprintf("sink: duplicate create for id %d", op.TargetID()))
		}
		if !cur.IsCreate() && op.IsCreate() {
			panic(fmt.Sprintf("sink: create after update for id %d", op.TargetID()))
		}
		// Merge: keep the earlier op kind, adopt the latest payload.
		t.ops[i] = types.Change{Op: cur.Op, Node: op.Node, Rel: op.Rel}
		return
	}
	t.ops = append(t.ops, op)
}

// Len returns the number of buffered events after coalescing.
func (t *TxStore) Len() int {
	return len(t.ops)
}

// Commit forwards the buffered events in order to the sink channel.
func (t *TxStore) Commit() {
	for _, op := range t.ops {
		t.sink.send(op)
	}
	t.ops = nil
}

// Discard drops the buffer.
func (t *TxStore) Discard() {
	t.ops = nil
}
