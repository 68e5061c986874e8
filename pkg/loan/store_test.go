package loan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLendIsExclusive(t *testing.T) {
	s := NewStore[string, int]()
	s.Insert("a", 1)

	l, ok := s.Lend("a")
	assert.True(t, ok)
	assert.Equal(t, 1, l.Value)
	assert.True(t, s.Contains("a"))

	assert.Panics(t, func() { s.Lend("a") })

	l.Value = 2
	l.Return()

	v, ok := s.Peek("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestLendAbsentKey(t *testing.T) {
	s := NewStore[string, int]()
	_, ok := s.Lend("missing")
	assert.False(t, ok)
}

func TestDoubleReturnPanics(t *testing.T) {
	s := NewStore[string, int]()
	s.Insert("a", 1)
	l, _ := s.Lend("a")
	l.Return()
	assert.Panics(t, func() { l.Return() })
}

func TestMutateLentKeyPanics(t *testing.T) {
	s := NewStore[string, int]()
	s.Insert("a", 1)
	l, _ := s.Lend("a")
	defer l.Return()

	assert.Panics(t, func() { s.Insert("a", 2) })
	assert.Panics(t, func() { s.Remove("a") })
	assert.Panics(t, func() { s.Peek("a") })
}

func TestRemove(t *testing.T) {
	s := NewStore[string, int]()
	s.Insert("a", 1)
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 0, s.Len())
}
