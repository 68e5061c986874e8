package loan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashOverlayCommit(t *testing.T) {
	base := map[string]int{"a": 1, "b": 2}
	o := NewHashOverlay(base)

	o.Set("a", 10)
	o.Set("c", 3)
	o.Delete("b")

	v, ok := o.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	assert.False(t, o.Contains("b"))
	assert.True(t, o.Contains("c"))

	// Parent untouched until commit.
	assert.Equal(t, 1, base["a"])
	assert.Equal(t, 2, base["b"])

	o.Commit()
	assert.Equal(t, map[string]int{"a": 10, "c": 3}, base)
}

func TestHashOverlayRollback(t *testing.T) {
	base := map[string]int{"a": 1}
	o := NewHashOverlay(base)

	o.Set("a", 10)
	o.Delete("a")
	o.Set("b", 2)
	o.Rollback()

	assert.Equal(t, map[string]int{"a": 1}, base)
}

func TestHashOverlayRange(t *testing.T) {
	base := map[string]int{"a": 1, "b": 2}
	o := NewHashOverlay(base)
	o.Set("c", 3)
	o.Delete("a")
	o.Set("b", 20)

	seen := make(map[string]int)
	o.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	assert.Equal(t, map[string]int{"b": 20, "c": 3}, seen)
}

type boxed struct {
	n int
}

func cloneBoxed(b *boxed) *boxed {
	c := *b
	return &c
}

func TestOverlayDefersWrites(t *testing.T) {
	base := NewStore[string, *boxed]()
	base.Insert("a", &boxed{n: 1})
	o := NewOverlay(base, cloneBoxed)

	l, ok := o.Lend("a")
	assert.True(t, ok)
	l.Value.n = 99
	l.Return()

	// Mutation is transaction-local.
	v, _ := base.Peek("a")
	assert.Equal(t, 1, v.n)

	o.Insert("b", &boxed{n: 2})
	assert.True(t, o.Contains("b"))
	assert.False(t, base.Contains("b"))

	o.Commit()
	v, _ = base.Peek("a")
	assert.Equal(t, 99, v.n)
	assert.True(t, base.Contains("b"))
}

func TestOverlayRollbackDiscards(t *testing.T) {
	base := NewStore[string, *boxed]()
	base.Insert("a", &boxed{n: 1})
	o := NewOverlay(base, cloneBoxed)

	l, _ := o.Lend("a")
	l.Value.n = 99
	l.Return()
	o.Insert("b", &boxed{n: 2})
	o.Remove("a")
	o.Rollback()

	v, _ := base.Peek("a")
	assert.Equal(t, 1, v.n)
	assert.False(t, base.Contains("b"))
}

func TestOverlayRemoveCommits(t *testing.T) {
	base := NewStore[string, *boxed]()
	base.Insert("a", &boxed{n: 1})
	o := NewOverlay(base, cloneBoxed)

	assert.True(t, o.Remove("a"))
	assert.False(t, o.Contains("a"))
	_, ok := o.Lend("a")
	assert.False(t, ok)

	o.Commit()
	assert.False(t, base.Contains("a"))
}

func TestOverlayCommitWithOutstandingLoanPanics(t *testing.T) {
	base := NewStore[string, *boxed]()
	base.Insert("a", &boxed{n: 1})
	o := NewOverlay(base, cloneBoxed)

	l, _ := o.Lend("a")
	assert.Panics(t, func() { o.Commit() })
	l.Return()
}
