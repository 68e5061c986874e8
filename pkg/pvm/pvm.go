package pvm

import (
	"sort"

	"github.com/google/uuid"

	"github.com/provgraph/pvm/pkg/ids"
	"github.com/provgraph/pvm/pkg/loan"
	"github.com/provgraph/pvm/pkg/sink"
	"github.com/provgraph/pvm/pkg/types"
)

// PVM holds the full state of the provenance graph under construction. It is
// owned by a single applier goroutine; none of its methods are safe for
// concurrent use.
type PVM struct {
	db *sink.Sink
	id *ids.Counter

	dataTypes map[string]*types.ConcreteType
	ctxTypes  map[string]*types.ContextType

	uuidMap map[uuid.UUID]types.ID
	nodes   *loan.Store[types.ID, types.Node]
	rels    *loan.Store[types.ID, types.Rel]
	names   *loan.Store[types.Name, *types.NameNode]
	triples map[types.TripleKey]types.ID
	open    map[uuid.UUID]map[uuid.UUID]struct{}

	unparsed map[string]struct{}
}

// New returns an empty PVM emitting change events into db.
func New(db *sink.Sink) *PVM {
	return &PVM{
		db:        db,
		id:        ids.NewCounter(1),
		dataTypes: make(map[string]*types.ConcreteType),
		ctxTypes:  make(map[string]*types.ContextType),
		uuidMap:   make(map[uuid.UUID]types.ID),
		nodes:     loan.NewStore[types.ID, types.Node](),
		rels:      loan.NewStore[types.ID, types.Rel](),
		names:     loan.NewStore[types.Name, *types.NameNode](),
		triples:   make(map[types.TripleKey]types.ID),
		open:      make(map[uuid.UUID]map[uuid.UUID]struct{}),
		unparsed:  make(map[string]struct{}),
	}
}

// RegisterDataType registers a concrete type. The first registration of a
// name emits a schema descriptor so views learn the type universe;
// re-registering the same name is a no-op.
func (p *PVM) RegisterDataType(ty *types.ConcreteType) {
	if _, ok := p.dataTypes[ty.Name]; ok {
		return
	}
	p.dataTypes[ty.Name] = ty
	p.db.CreateNode(&types.SchemaNode{
		ID:    p.id.Get(),
		Kind:  types.SchemaData,
		Name:  ty.Name,
		PVM:   ty.PVM,
		Props: ty.Props,
	})
}

// RegisterCtxType registers a context type, emitting its schema descriptor
// on first registration.
func (p *PVM) RegisterCtxType(ty *types.ContextType) {
	if _, ok := p.ctxTypes[ty.Name]; ok {
		return
	}
	p.ctxTypes[ty.Name] = ty
	props := make(map[string]bool, len(ty.Props))
	for _, prop := range ty.Props {
		props[prop] = false
	}
	p.db.CreateNode(&types.SchemaNode{
		ID:    p.id.Get(),
		Kind:  types.SchemaCtx,
		Name:  ty.Name,
		Props: props,
	})
}

// NodeID resolves a UUID to the ID of its latest version.
func (p *PVM) NodeID(u uuid.UUID) (types.ID, bool) {
	id, ok := p.uuidMap[u]
	return id, ok
}

// RecordUnparsed remembers an event name no handler recognised.
func (p *PVM) RecordUnparsed(event string) {
	p.unparsed[event] = struct{}{}
}

// UnparsedEvents returns the distinct unrecognised event names, sorted.
func (p *PVM) UnparsedEvents() []string {
	out := make([]string, 0, len(p.unparsed))
	for evt := range p.unparsed {
		out = append(out, evt)
	}
	sort.Strings(out)
	return out
}

// Shutdown closes the change-event channel, releasing the view broadcaster.
func (p *PVM) Shutdown() {
	p.db.Close()
}

func cloneNode(n types.Node) types.Node {
	return n.CloneNode()
}

func cloneRel(r types.Rel) types.Rel {
	return r.CloneRel()
}

func cloneSet(s map[uuid.UUID]struct{}) map[uuid.UUID]struct{} {
	c := make(map[uuid.UUID]struct{}, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}
