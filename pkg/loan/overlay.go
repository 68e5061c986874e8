package loan

import "fmt"

type write[V any] struct {
	val V
	del bool
}

// HashOverlay buffers writes against a plain map index. Reads consult the
// buffer first, then the parent. Commit folds the buffer into the parent;
// Rollback discards it.
type HashOverlay[K comparable, V any] struct {
	base   map[K]V
	writes map[K]write[V]
}

// NewHashOverlay wraps base.
func NewHashOverlay[K comparable, V any](base map[K]V) *HashOverlay[K, V] {
	return &HashOverlay[K, V]{base: base, writes: make(map[K]write[V])}
}

// Get returns the value visible through the overlay.
func (o *HashOverlay[K, V]) Get(k K) (V, bool) {
	if w, ok := o.writes[k]; ok {
		if w.del {
			var zero V
			return zero, false
		}
		return w.val, true
	}
	v, ok := o.base[k]
	return v, ok
}

// Contains reports whether k is visible through the overlay.
func (o *HashOverlay[K, V]) Contains(k K) bool {
	_, ok := o.Get(k)
	return ok
}

// Set buffers an insert or update of k.
func (o *HashOverlay[K, V]) Set(k K, v V) {
	o.writes[k] = write[V]{val: v}
}

// Delete buffers a removal of k.
func (o *HashOverlay[K, V]) Delete(k K) {
	o.writes[k] = write[V]{del: true}
}

// Range calls f for every key visible through the overlay until f returns
// false.
func (o *HashOverlay[K, V]) Range(f func(k K, v V) bool) {
	for k, w := range o.writes {
		if w.del {
			continue
		}
		if !f(k, w.val) {
			return
		}
	}
	for k, v := range o.base {
		if _, written := o.writes[k]; written {
			continue
		}
		if !f(k, v) {
			return
		}
	}
}

// Commit applies the buffered writes to the parent.
func (o *HashOverlay[K, V]) Commit() {
	for k, w := range o.writes {
		if w.del {
			delete(o.base, k)
		} else {
			o.base[k] = w.val
		}
	}
	o.writes = make(map[K]write[V])
}

// Rollback discards the buffered writes.
func (o *HashOverlay[K, V]) Rollback() {
	o.writes = make(map[K]write[V])
}

// Overlay wraps a Store while preserving loan semantics. A value lent
// through the overlay is copied into transaction-local storage on first
// touch; the parent store is not written until Commit.
type Overlay[K comparable, V any] struct {
	base    *Store[K, V]
	local   *Store[K, V]
	clone   func(V) V
	removed map[K]struct{}
}

// NewOverlay wraps base. clone deep-copies a value when it is first borrowed
// from the parent.
func NewOverlay[K comparable, V any](base *Store[K, V], clone func(V) V) *Overlay[K, V] {
	return &Overlay[K, V]{
		base:    base,
		local:   NewStore[K, V](),
		clone:   clone,
		removed: make(map[K]struct{}),
	}
}

// Insert stores v under k in the overlay.
func (o *Overlay[K, V]) Insert(k K, v V) {
	delete(o.removed, k)
	o.local.Insert(k, v)
}

// Remove deletes k from the overlay's view and reports whether it was
// visible.
func (o *Overlay[K, V]) Remove(k K) bool {
	present := o.Contains(k)
	o.local.Remove(k)
	o.removed[k] = struct{}{}
	return present
}

// Contains reports whether k is visible through the overlay.
func (o *Overlay[K, V]) Contains(k K) bool {
	if o.local.Contains(k) {
		return true
	}
	if _, ok := o.removed[k]; ok {
		return false
	}
	return o.base.Contains(k)
}

// Lend checks out the value visible under k. Values still owned by the
// parent are cloned into the overlay first, so mutations through the loan
// stay transaction-local until Commit.
func (o *Overlay[K, V]) Lend(k K) (*Loan[K, V], bool) {
	if l, ok := o.local.Lend(k); ok {
		return l, true
	}
	if _, ok := o.removed[k]; ok {
		return nil, false
	}
	v, ok := o.base.Peek(k)
	if !ok {
		return nil, false
	}
	o.local.Insert(k, o.clone(v))
	return o.local.Lend(k)
}

// Commit folds the overlay into the parent store. All loans must have been
// returned.
func (o *Overlay[K, V]) Commit() {
	if n := o.local.Outstanding(); n != 0 {
		panic(fmt.Sprintf("loan: commit with %d outstanding loans", n))
	}
	for k := range o.removed {
		if !o.local.Contains(k) {
			o.base.Remove(k)
		}
	}
	for _, k := range o.local.Keys() {
		v, _ := o.local.Peek(k)
		o.base.Insert(k, v)
	}
	o.local = NewStore[K, V]()
	o.removed = make(map[K]struct{})
}

// Rollback discards the overlay, leaving the parent untouched. All loans
// must have been returned.
func (o *Overlay[K, V]) Rollback() {
	if n := o.local.Outstanding(); n != 0 {
		panic(fmt.Sprintf("loan: rollback with %d outstanding loans", n))
	}
	o.local = NewStore[K, V]()
	o.removed = make(map[K]struct{})
}
