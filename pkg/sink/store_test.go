package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provgraph/pvm/pkg/types"
)

func ctxNode(id types.ID) *types.CtxNode {
	return &types.CtxNode{
		ID:     id,
		Ty:     &types.ContextType{Name: "test_context"},
		Fields: map[string]string{},
	}
}

func infRel(id, src, dst types.ID) *types.InfRel {
	return &types.InfRel{ID: id, Src: src, Dst: dst, Op: types.OpSource}
}

func drain(s *Sink) []types.Change {
	var out []types.Change
	for {
		select {
		case c := <-s.Events():
			out = append(out, c)
		default:
			return out
		}
	}
}

func TestStoreCoalescesCreateAndUpdate(t *testing.T) {
	s := New(100)
	st := s.Store()

	st.CreateNode(ctxNode(1))
	updated := ctxNode(1)
	updated.Fields["k"] = "v"
	st.UpdateNode(updated)

	assert.Equal(t, 1, st.Len())
	st.Commit()

	evts := drain(s)
	require.Len(t, evts, 1)
	assert.Equal(t, types.CreateNode, evts[0].Op)
	assert.Equal(t, "v", evts[0].Node.(*types.CtxNode).Fields["k"])
}

func TestStoreCoalescesUpdates(t *testing.T) {
	s := New(100)
	st := s.Store()

	st.UpdateRel(infRel(5, 1, 2))
	r := infRel(5, 1, 2)
	r.ByteCount = 7
	st.UpdateRel(r)

	assert.Equal(t, 1, st.Len())
	st.Commit()

	evts := drain(s)
	require.Len(t, evts, 1)
	assert.Equal(t, types.UpdateRel, evts[0].Op)
	assert.Equal(t, uint64(7), evts[0].Rel.(*types.InfRel).ByteCount)
}

func TestStorePreservesOrderAcrossIDs(t *testing.T) {
	s := New(100)
	st := s.Store()

	st.CreateNode(ctxNode(1))
	st.CreateRel(infRel(2, 1, 3))
	st.CreateNode(ctxNode(4))
	st.UpdateNode(ctxNode(1))

	st.Commit()
	evts := drain(s)
	require.Len(t, evts, 3)
	assert.Equal(t, types.ID(1), evts[0].TargetID())
	assert.Equal(t, types.ID(2), evts[1].TargetID())
	assert.Equal(t, types.ID(4), evts[2].TargetID())
}

func TestStoreDuplicateCreatePanics(t *testing.T) {
	s := New(100)
	st := s.Store()

	st.CreateNode(ctxNode(1))
	assert.Panics(t, func() { st.CreateNode(ctxNode(1)) })
}

func TestStoreCreateAfterUpdatePanics(t *testing.T) {
	s := New(100)
	st := s.Store()

	st.UpdateNode(ctxNode(1))
	assert.Panics(t, func() { st.CreateNode(ctxNode(1)) })
}

func TestStoreNodesAndRelsShareNoState(t *testing.T) {
	s := New(100)
	st := s.Store()

	// Same numeric ID on a node and a rel must not coalesce together.
	st.CreateNode(ctxNode(7))
	st.CreateRel(infRel(7, 1, 2))

	assert.Equal(t, 2, st.Len())
}

func TestStoreHeadInsertion(t *testing.T) {
	s := New(100)
	st := s.Store()

	st.CreateNode(ctxNode(2))
	st.CreateNodeHead(ctxNode(1))
	st.Commit()

	evts := drain(s)
	require.Len(t, evts, 2)
	assert.Equal(t, types.ID(1), evts[0].TargetID())
	assert.Equal(t, types.ID(2), evts[1].TargetID())
}

func TestStoreDiscard(t *testing.T) {
	s := New(100)
	st := s.Store()
	st.CreateNode(ctxNode(1))
	st.Discard()
	st.Commit()
	assert.Empty(t, drain(s))
}
