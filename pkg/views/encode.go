package views

import (
	"github.com/provgraph/pvm/pkg/types"
)

// NodeRecord is the flat, serialisable form of a graph node shared by the
// file-writing and database views.
type NodeRecord struct {
	ID     uint64            `json:"id"`
	Class  string            `json:"class"`
	PVM    string            `json:"pvm,omitempty"`
	Type   string            `json:"type,omitempty"`
	UUID   string            `json:"uuid,omitempty"`
	Ctx    uint64            `json:"ctx,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Name   string            `json:"name,omitempty"`
	Props  map[string]bool   `json:"props,omitempty"`
}

// RelRecord is the flat, serialisable form of a relationship.
type RelRecord struct {
	ID       uint64 `json:"id"`
	Kind     string `json:"kind"`
	Src      uint64 `json:"src"`
	Dst      uint64 `json:"dst"`
	Op       string `json:"op,omitempty"`
	Call     string `json:"call,omitempty"`
	Ctx      uint64 `json:"ctx,omitempty"`
	Bytes    uint64 `json:"bytes,omitempty"`
	StartCtx uint64 `json:"start_ctx,omitempty"`
	EndCtx   uint64 `json:"end_ctx,omitempty"`
}

// EncodeNode flattens n for serialisation.
func EncodeNode(n types.Node) NodeRecord {
	switch n := n.(type) {
	case *types.DataNode:
		meta := make(map[string]string)
		for _, k := range n.Meta.Keys() {
			v, _ := n.Meta.Cur(k)
			meta[k] = v
		}
		return NodeRecord{
			ID:    uint64(n.ID),
			Class: "data",
			PVM:   string(n.PVM),
			Type:  n.Ty.Name,
			UUID:  n.UUID.String(),
			Ctx:   uint64(n.Ctx),
			Meta:  meta,
		}
	case *types.CtxNode:
		return NodeRecord{
			ID:     uint64(n.ID),
			Class:  "ctx",
			Type:   n.Ty.Name,
			Fields: n.Fields,
		}
	case *types.NameNode:
		return NodeRecord{
			ID:    uint64(n.ID),
			Class: "name",
			Name:  n.Name.String(),
		}
	case *types.SchemaNode:
		return NodeRecord{
			ID:    uint64(n.ID),
			Class: "schema",
			Type:  n.Name,
			PVM:   string(n.PVM),
			Props: n.Props,
		}
	default:
		return NodeRecord{ID: uint64(n.NodeID()), Class: "unknown"}
	}
}

// EncodeRel flattens r for serialisation.
func EncodeRel(r types.Rel) RelRecord {
	switch r := r.(type) {
	case *types.InfRel:
		return RelRecord{
			ID:    uint64(r.ID),
			Kind:  string(types.RelInf),
			Src:   uint64(r.Src),
			Dst:   uint64(r.Dst),
			Op:    string(r.Op),
			Call:  r.GeneratingCall,
			Ctx:   uint64(r.Ctx),
			Bytes: r.ByteCount,
		}
	case *types.NamedRel:
		return RelRecord{
			ID:       uint64(r.ID),
			Kind:     string(types.RelNamed),
			Src:      uint64(r.Src),
			Dst:      uint64(r.Dst),
			StartCtx: uint64(r.StartCtx),
			EndCtx:   uint64(r.EndCtx),
		}
	default:
		return RelRecord{ID: uint64(r.RelID()), Kind: string(r.Kind()), Src: uint64(r.SrcID()), Dst: uint64(r.DstID())}
	}
}
