package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/provgraph/pvm/pkg/types"
)

func TestCounterAllocatesDensely(t *testing.T) {
	c := NewCounter(1)
	assert.Equal(t, types.ID(1), c.Get())
	assert.Equal(t, types.ID(2), c.Get())
	assert.Equal(t, types.ID(3), c.Peek())
}

func TestCounterNeverAllocatesNoID(t *testing.T) {
	c := NewCounter(types.NoID)
	assert.Equal(t, types.ID(1), c.Get())
}

func TestSnapshotDiscardLeavesParentUntouched(t *testing.T) {
	c := NewCounter(1)
	c.Get()

	snap := c.Snapshot()
	assert.Equal(t, types.ID(2), snap.Get())
	assert.Equal(t, types.ID(3), snap.Get())

	// Snapshot dropped without commit: the parent re-allocates the same IDs.
	assert.Equal(t, types.ID(2), c.Get())
}

func TestSnapshotCommitPublishesValue(t *testing.T) {
	c := NewCounter(1)

	snap := c.Snapshot()
	assert.Equal(t, types.ID(1), snap.Get())
	assert.Equal(t, types.ID(2), snap.Get())
	snap.Commit()

	assert.Equal(t, types.ID(3), c.Get())
}
