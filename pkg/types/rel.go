package types

// PVMOp tags an Inf edge with the abstract operation that produced it.
type PVMOp string

const (
	OpSource  PVMOp = "source"
	OpSink    PVMOp = "sink"
	OpConnect PVMOp = "connect"
	OpVersion PVMOp = "version"
)

// RelKind distinguishes the relationship variants.
type RelKind string

const (
	RelInf   RelKind = "inf"
	RelNamed RelKind = "named"
)

// Rel is a relationship between two graph nodes.
type Rel interface {
	RelID() ID
	SrcID() ID
	DstID() ID
	Kind() RelKind
	CloneRel() Rel
}

// InfRel records information flow from Src to Dst.
type InfRel struct {
	ID             ID
	Src            ID
	Dst            ID
	Op             PVMOp
	GeneratingCall string
	Ctx            ID
	ByteCount      uint64
}

func (r *InfRel) RelID() ID     { return r.ID }
func (r *InfRel) SrcID() ID     { return r.Src }
func (r *InfRel) DstID() ID     { return r.Dst }
func (r *InfRel) Kind() RelKind { return RelInf }

func (r *InfRel) CloneRel() Rel {
	c := *r
	return &c
}

// NamedRel is a time-bounded association between an entity and a NameNode.
// EndCtx of NoID means the association is still live; once set it is closed
// and never reopens.
type NamedRel struct {
	ID       ID
	Src      ID
	Dst      ID
	StartCtx ID
	EndCtx   ID
}

func (r *NamedRel) RelID() ID     { return r.ID }
func (r *NamedRel) SrcID() ID     { return r.Src }
func (r *NamedRel) DstID() ID     { return r.Dst }
func (r *NamedRel) Kind() RelKind { return RelNamed }

func (r *NamedRel) CloneRel() Rel {
	c := *r
	return &c
}

// TripleKey dedups relationships: at most one relationship exists for each
// (kind, src, dst) triple.
type TripleKey struct {
	Kind RelKind
	Src  ID
	Dst  ID
}

// Triple returns the dedup key for r.
func Triple(r Rel) TripleKey {
	return TripleKey{Kind: r.Kind(), Src: r.SrcID(), Dst: r.DstID()}
}
