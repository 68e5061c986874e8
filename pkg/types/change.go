package types

// ChangeOp is the kind of a graph mutation event.
type ChangeOp string

const (
	CreateNode ChangeOp = "create_node"
	UpdateNode ChangeOp = "update_node"
	CreateRel  ChangeOp = "create_rel"
	UpdateRel  ChangeOp = "update_rel"
)

// Change is one graph mutation streamed to views. Exactly one of Node or Rel
// is set, matching Op.
type Change struct {
	Op   ChangeOp
	Node Node
	Rel  Rel
}

// TargetID returns the ID of the mutated entity.
func (c Change) TargetID() ID {
	if c.Node != nil {
		return c.Node.NodeID()
	}
	return c.Rel.RelID()
}

// IsNode reports whether the change carries a node.
func (c Change) IsNode() bool {
	return c.Op == CreateNode || c.Op == UpdateNode
}

// IsCreate reports whether the change creates its entity.
func (c Change) IsCreate() bool {
	return c.Op == CreateNode || c.Op == CreateRel
}
