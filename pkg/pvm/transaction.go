package pvm

import (
	"github.com/google/uuid"

	"github.com/provgraph/pvm/pkg/ids"
	"github.com/provgraph/pvm/pkg/loan"
	"github.com/provgraph/pvm/pkg/metrics"
	"github.com/provgraph/pvm/pkg/sink"
	"github.com/provgraph/pvm/pkg/types"
)

// ConnectDir selects the direction of a connect operation.
type ConnectDir uint8

const (
	Mono ConnectDir = iota
	BiDirectional
)

// Transaction is a scoped mutation session over the PVM. All index writes go
// through transactional overlays and all change events through a coalescing
// store, so Commit publishes everything atomically and Rollback leaves no
// trace. A transaction must end in exactly one of the two.
type Transaction struct {
	pvm  *PVM
	snap *ids.Snapshot
	ctx  *types.CtxNode

	uuidMap *loan.HashOverlay[uuid.UUID, types.ID]
	nodes   *loan.Overlay[types.ID, types.Node]
	rels    *loan.Overlay[types.ID, types.Rel]
	names   *loan.Overlay[types.Name, *types.NameNode]
	triples *loan.HashOverlay[types.TripleKey, types.ID]
	open    *loan.HashOverlay[uuid.UUID, map[uuid.UUID]struct{}]

	db   *sink.TxStore
	done bool
}

// Transaction begins a mutation session described by a context of the given
// type. The context node's ID is reserved from an ID snapshot but only
// persisted if the transaction mutates the graph.
func (p *PVM) Transaction(ctxTy *types.ContextType, fields map[string]string) (*Transaction, error) {
	if _, ok := p.ctxTypes[ctxTy.Name]; !ok {
		return nil, assertf("context type %q not registered", ctxTy.Name)
	}
	snap := p.id.Snapshot()
	ctx := &types.CtxNode{ID: snap.Get(), Ty: ctxTy, Fields: fields}
	return &Transaction{
		pvm:     p,
		snap:    snap,
		ctx:     ctx,
		uuidMap: loan.NewHashOverlay(p.uuidMap),
		nodes:   loan.NewOverlay(p.nodes, cloneNode),
		rels:    loan.NewOverlay(p.rels, cloneRel),
		names: loan.NewOverlay(p.names, func(n *types.NameNode) *types.NameNode {
			return n.CloneNode().(*types.NameNode)
		}),
		triples: loan.NewHashOverlay(p.triples),
		open:    loan.NewHashOverlay(p.open),
		db:      p.db.Store(),
	}, nil
}

// CtxID returns the ID reserved for this transaction's context node.
func (t *Transaction) CtxID() types.ID {
	return t.ctx.ID
}

// withData lends the data node with the given ID to f.
func (t *Transaction) withData(id types.ID, f func(*types.DataNode) error) error {
	l, ok := t.nodes.Lend(id)
	if !ok {
		return assertf("no node with id %d", id)
	}
	defer l.Return()
	n, ok := l.Value.(*types.DataNode)
	if !ok {
		return assertf("node %d is not a data node", id)
	}
	return f(n)
}

func (t *Transaction) requireActor(id types.ID, op string) error {
	return t.withData(id, func(n *types.DataNode) error {
		if n.PVM != types.Actor {
			return assertf("%s subject %d is %s, want actor", op, id, n.PVM)
		}
		return nil
	})
}

// newNode creates and indexes a fresh data node, emitting its creation.
// supplant controls whether an existing UUID binding is replaced (the old
// version then leaves the live cache).
func (t *Transaction) newNode(ty *types.ConcreteType, pvmTy types.DataType, u uuid.UUID, supplant bool) (*types.DataNode, error) {
	if _, ok := t.pvm.dataTypes[ty.Name]; !ok {
		return nil, assertf("concrete type %q not registered", ty.Name)
	}
	n := types.NewDataNode(t.snap.Get(), u, ty, t.ctx.ID)
	n.PVM = pvmTy
	if old, ok := t.uuidMap.Get(u); ok {
		if !supplant {
			return nil, assertf("uuid %s already bound to node %d", u, old)
		}
		t.nodes.Remove(old)
	}
	t.uuidMap.Set(u, n.ID)
	t.nodes.Insert(n.ID, n)
	t.db.CreateNode(n.CloneNode())
	metrics.NodesCreated.WithLabelValues(string(pvmTy)).Inc()
	return n, nil
}

func (t *Transaction) seedMeta(id types.ID, ty *types.ConcreteType, init map[string]string) error {
	if len(init) == 0 {
		return nil
	}
	for key, val := range init {
		if err := t.Meta(id, key, val); err != nil {
			return err
		}
	}
	return nil
}

// Declare resolves (ty, u) to a node ID, creating the node on first
// sighting. init metadata is only applied when the node is created, so
// repeated declarations are idempotent.
func (t *Transaction) Declare(ty *types.ConcreteType, u uuid.UUID, init map[string]string) (types.ID, error) {
	if id, ok := t.uuidMap.Get(u); ok {
		return id, nil
	}
	n, err := t.newNode(ty, ty.PVM, u, false)
	if err != nil {
		return types.NoID, err
	}
	if err := t.seedMeta(n.ID, ty, init); err != nil {
		return types.NoID, err
	}
	return n.ID, nil
}

// Add creates a node unconditionally, supplanting any prior binding of u.
func (t *Transaction) Add(ty *types.ConcreteType, u uuid.UUID, init map[string]string) (types.ID, error) {
	n, err := t.newNode(ty, ty.PVM, u, true)
	if err != nil {
		return types.NoID, err
	}
	if err := t.seedMeta(n.ID, ty, init); err != nil {
		return types.NoID, err
	}
	return n.ID, nil
}

// Derive creates a fresh entity of src's concrete type under a new UUID,
// inheriting src's heritable metadata and linked from src with a Version
// edge. Used for fork-style lineage.
func (t *Transaction) Derive(src types.ID, newUUID uuid.UUID) (types.ID, error) {
	var ty *types.ConcreteType
	var meta *types.MetaStore
	err := t.withData(src, func(n *types.DataNode) error {
		ty = n.Ty
		meta = n.Meta.Snapshot(t.ctx.ID)
		return nil
	})
	if err != nil {
		return types.NoID, err
	}
	n, err := t.newNode(ty, ty.PVM, newUUID, false)
	if err != nil {
		return types.NoID, err
	}
	n.Meta.Merge(meta)
	t.db.UpdateNode(n.CloneNode())
	if _, err := t.infEdge(src, n.ID, types.OpVersion, "derive"); err != nil {
		return types.NoID, err
	}
	return n.ID, nil
}

// version supplants src with a new version: a fresh ID under the same UUID
// carrying the given PVM data type, inheriting heritable metadata and linked
// from src with a Version edge.
func (t *Transaction) version(src types.ID, pvmTy types.DataType, call string) (types.ID, error) {
	var ty *types.ConcreteType
	var u uuid.UUID
	var meta *types.MetaStore
	err := t.withData(src, func(n *types.DataNode) error {
		ty = n.Ty
		u = n.UUID
		meta = n.Meta.Snapshot(t.ctx.ID)
		return nil
	})
	if err != nil {
		return types.NoID, err
	}
	n, err := t.newNode(ty, pvmTy, u, true)
	if err != nil {
		return types.NoID, err
	}
	n.Meta.Merge(meta)
	t.db.UpdateNode(n.CloneNode())
	if _, err := t.infEdge(src, n.ID, types.OpVersion, call); err != nil {
		return types.NoID, err
	}
	return n.ID, nil
}

// infEdge retrieves or creates the information-flow edge src→dst with the
// given op. At most one Inf edge exists per (op, src, dst); retrieval reuses
// its ID.
func (t *Transaction) infEdge(src, dst types.ID, op types.PVMOp, call string) (types.ID, error) {
	// The op is part of the key, so a Source edge and a Version edge between
	// the same endpoints are distinct edges.
	key := types.TripleKey{Kind: types.RelKind(string(types.RelInf) + ":" + string(op)), Src: src, Dst: dst}
	if id, ok := t.triples.Get(key); ok {
		return id, nil
	}
	r := &types.InfRel{
		ID:             t.snap.Get(),
		Src:            src,
		Dst:            dst,
		Op:             op,
		GeneratingCall: call,
		Ctx:            t.ctx.ID,
	}
	t.rels.Insert(r.ID, r)
	t.triples.Set(key, r.ID)
	t.db.CreateRel(r.CloneRel())
	metrics.RelsCreated.WithLabelValues(string(types.RelInf)).Inc()
	return r.ID, nil
}

// addBytes increments the byte counter of an Inf edge.
func (t *Transaction) addBytes(rel types.ID, n int64) error {
	if n <= 0 {
		return nil
	}
	l, ok := t.rels.Lend(rel)
	if !ok {
		return assertf("no relationship with id %d", rel)
	}
	defer l.Return()
	r, ok := l.Value.(*types.InfRel)
	if !ok {
		return assertf("relationship %d is not an inf edge", rel)
	}
	r.ByteCount += uint64(n)
	t.db.UpdateRel(r.CloneRel())
	return nil
}

// Source records information flow from ent into act.
func (t *Transaction) Source(act, ent types.ID) error {
	_, err := t.source(act, ent)
	return err
}

func (t *Transaction) source(act, ent types.ID) (types.ID, error) {
	if err := t.requireActor(act, "source"); err != nil {
		return types.NoID, err
	}
	return t.infEdge(ent, act, types.OpSource, "source")
}

// SourceNBytes records a source flow and adds n to its byte counter.
func (t *Transaction) SourceNBytes(act, ent types.ID, n int64) error {
	rel, err := t.source(act, ent)
	if err != nil {
		return err
	}
	return t.addBytes(rel, n)
}

// Sink records information flow from act into ent. Stores are versioned
// first so the write lands on a fresh version.
func (t *Transaction) Sink(act, ent types.ID) error {
	if err := t.requireActor(act, "sink"); err != nil {
		return err
	}
	var pvmTy types.DataType
	if err := t.withData(ent, func(n *types.DataNode) error {
		pvmTy = n.PVM
		return nil
	}); err != nil {
		return err
	}
	if pvmTy == types.Store {
		newEnt, err := t.version(ent, types.Store, "sink")
		if err != nil {
			return err
		}
		ent = newEnt
	}
	_, err := t.infEdge(act, ent, types.OpSink, "sink")
	return err
}

// SinkStart opens a write session from act onto ent. A Store versions into
// an EditSession; joining writers accumulate in the open cache.
func (t *Transaction) SinkStart(act, ent types.ID) error {
	_, err := t.sinkStart(act, ent)
	return err
}

func (t *Transaction) sinkStart(act, ent types.ID) (types.ID, error) {
	if err := t.requireActor(act, "sinkstart"); err != nil {
		return types.NoID, err
	}
	var actUUID uuid.UUID
	if err := t.withData(act, func(n *types.DataNode) error {
		actUUID = n.UUID
		return nil
	}); err != nil {
		return types.NoID, err
	}
	var pvmTy types.DataType
	var entUUID uuid.UUID
	if err := t.withData(ent, func(n *types.DataNode) error {
		pvmTy = n.PVM
		entUUID = n.UUID
		return nil
	}); err != nil {
		return types.NoID, err
	}
	switch pvmTy {
	case types.Store:
		es, err := t.version(ent, types.EditSession, "sinkstart")
		if err != nil {
			return types.NoID, err
		}
		t.open.Set(entUUID, map[uuid.UUID]struct{}{actUUID: {}})
		return t.infEdge(act, es, types.OpSink, "sinkstart")
	case types.EditSession:
		// The entry can be gone if the previous writers were released on
		// exit without closing; the session then adopts the new writer.
		set, ok := t.open.Get(entUUID)
		if !ok {
			set = map[uuid.UUID]struct{}{}
		}
		set = cloneSet(set)
		set[actUUID] = struct{}{}
		t.open.Set(entUUID, set)
		return t.infEdge(act, ent, types.OpSink, "sinkstart")
	default:
		return t.infEdge(act, ent, types.OpSink, "sinkstart")
	}
}

// SinkStartNBytes opens a write session and adds n to the sink edge's byte
// counter.
func (t *Transaction) SinkStartNBytes(act, ent types.ID, n int64) error {
	rel, err := t.sinkStart(act, ent)
	if err != nil {
		return err
	}
	return t.addBytes(rel, n)
}

// SinkEnd closes act's write session on ent. When the last writer leaves an
// EditSession it versions back into a Store and the open-cache entry is
// dropped.
func (t *Transaction) SinkEnd(act, ent types.ID) error {
	if err := t.requireActor(act, "sinkend"); err != nil {
		return err
	}
	var actUUID uuid.UUID
	if err := t.withData(act, func(n *types.DataNode) error {
		actUUID = n.UUID
		return nil
	}); err != nil {
		return err
	}
	var pvmTy types.DataType
	var entUUID uuid.UUID
	if err := t.withData(ent, func(n *types.DataNode) error {
		pvmTy = n.PVM
		entUUID = n.UUID
		return nil
	}); err != nil {
		return err
	}
	if pvmTy != types.EditSession {
		return nil
	}
	set, ok := t.open.Get(entUUID)
	if !ok {
		set = map[uuid.UUID]struct{}{}
	}
	set = cloneSet(set)
	delete(set, actUUID)
	if len(set) > 0 {
		t.open.Set(entUUID, set)
		return nil
	}
	t.open.Delete(entUUID)
	_, err := t.version(ent, types.Store, "sinkend")
	return err
}

// declName resolves a Name to its node, interning it on first use.
func (t *Transaction) declName(name types.Name) types.ID {
	if l, ok := t.names.Lend(name); ok {
		id := l.Value.ID
		l.Return()
		return id
	}
	n := &types.NameNode{ID: t.snap.Get(), Name: name}
	t.names.Insert(name, n)
	t.db.CreateNode(n.CloneNode())
	return n.ID
}

// named retrieves or creates the Named edge obj→name.
func (t *Transaction) named(obj, nameNode types.ID) types.ID {
	key := types.TripleKey{Kind: types.RelNamed, Src: obj, Dst: nameNode}
	if id, ok := t.triples.Get(key); ok {
		return id
	}
	r := &types.NamedRel{
		ID:       t.snap.Get(),
		Src:      obj,
		Dst:      nameNode,
		StartCtx: t.ctx.ID,
	}
	t.rels.Insert(r.ID, r)
	t.triples.Set(key, r.ID)
	t.db.CreateRel(r.CloneRel())
	metrics.RelsCreated.WithLabelValues(string(types.RelNamed)).Inc()
	return r.ID
}

func (t *Transaction) requireNameable(obj types.ID, op string) error {
	return t.withData(obj, func(n *types.DataNode) error {
		if n.PVM == types.Actor {
			return assertf("%s target %d is an actor", op, obj)
		}
		return nil
	})
}

// Name associates obj with name. Naming is idempotent: at most one Named
// edge exists per (obj, name) pair.
func (t *Transaction) Name(obj types.ID, name types.Name) error {
	if err := t.requireNameable(obj, "name"); err != nil {
		return err
	}
	t.named(obj, t.declName(name))
	return nil
}

// Unname closes the Named edge between obj and name at the current context.
// A closed association never reopens.
func (t *Transaction) Unname(obj types.ID, name types.Name) error {
	if err := t.requireNameable(obj, "unname"); err != nil {
		return err
	}
	rel := t.named(obj, t.declName(name))
	l, ok := t.rels.Lend(rel)
	if !ok {
		return assertf("no relationship with id %d", rel)
	}
	defer l.Return()
	r := l.Value.(*types.NamedRel)
	if r.EndCtx != types.NoID {
		return nil
	}
	r.EndCtx = t.ctx.ID
	t.db.UpdateRel(r.CloneRel())
	return nil
}

// Meta records a metadata value on ent. The key must be a declared property
// of ent's concrete type; its heritability comes from the type's table.
func (t *Transaction) Meta(ent types.ID, key, val string) error {
	l, ok := t.nodes.Lend(ent)
	if !ok {
		return assertf("no node with id %d", ent)
	}
	defer l.Return()
	n, ok := l.Value.(*types.DataNode)
	if !ok {
		return assertf("node %d is not a data node", ent)
	}
	heritable, ok := n.Ty.Heritable(key)
	if !ok {
		return assertf("%q is not a property of type %q", key, n.Ty.Name)
	}
	n.Meta.Set(key, val, t.ctx.ID, heritable)
	t.db.UpdateNode(n.CloneNode())
	return nil
}

// Connect records connectivity between two conduits, in one direction or
// both.
func (t *Transaction) Connect(a, b types.ID, dir ConnectDir) error {
	for _, id := range []types.ID{a, b} {
		if err := t.withData(id, func(n *types.DataNode) error {
			if n.PVM != types.Conduit {
				return assertf("connect endpoint %d is %s, want conduit", id, n.PVM)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if _, err := t.infEdge(a, b, types.OpConnect, "connect"); err != nil {
		return err
	}
	if dir == BiDirectional {
		if _, err := t.infEdge(b, a, types.OpConnect, "connect"); err != nil {
			return err
		}
	}
	return nil
}

// Release drops the UUID→ID binding and the cached node; later lookups of
// the UUID create a fresh entity. Any write sessions the UUID participated
// in are swept from the open cache.
func (t *Transaction) Release(u uuid.UUID) {
	if id, ok := t.uuidMap.Get(u); ok {
		t.uuidMap.Delete(u)
		t.nodes.Remove(id)
	}
	t.open.Delete(u)
	type patch struct {
		key uuid.UUID
		set map[uuid.UUID]struct{}
	}
	var patches []patch
	t.open.Range(func(k uuid.UUID, set map[uuid.UUID]struct{}) bool {
		if _, ok := set[u]; ok {
			patches = append(patches, patch{key: k, set: set})
		}
		return true
	})
	for _, pt := range patches {
		set := cloneSet(pt.set)
		delete(set, u)
		if len(set) == 0 {
			t.open.Delete(pt.key)
		} else {
			t.open.Set(pt.key, set)
		}
	}
}

// Commit ends the transaction, folding every overlay into the PVM. If any
// graph mutation was emitted the ID reservation is published, the context
// node is persisted first and the buffered events flush in order; otherwise
// the context node and all reserved IDs are discarded.
func (t *Transaction) Commit() {
	if t.done {
		panic("pvm: transaction already finished")
	}
	t.done = true
	t.uuidMap.Commit()
	t.nodes.Commit()
	t.rels.Commit()
	t.names.Commit()
	t.triples.Commit()
	t.open.Commit()
	if t.db.Len() == 0 {
		t.db.Discard()
		return
	}
	t.snap.Commit()
	t.db.CreateNodeHead(t.ctx.CloneNode())
	t.db.Commit()
	metrics.TransactionsCommitted.Inc()
}

// Rollback ends the transaction, discarding every overlay and all buffered
// events. The parent state and ID counter are untouched.
func (t *Transaction) Rollback() {
	if t.done {
		panic("pvm: transaction already finished")
	}
	t.done = true
	t.uuidMap.Rollback()
	t.nodes.Rollback()
	t.rels.Rollback()
	t.names.Rollback()
	t.triples.Rollback()
	t.open.Rollback()
	t.db.Discard()
}
