package types

import "github.com/google/uuid"

// Node is any graph node carried by a change event.
type Node interface {
	NodeID() ID
	// CloneNode deep-copies the node so transactional overlays and views can
	// hold it without aliasing engine state.
	CloneNode() Node
}

// DataNode is a version of a provenance entity. The (UUID, data type) pair is
// its logical identity; the ID identifies this particular version.
type DataNode struct {
	ID   ID
	UUID uuid.UUID
	PVM  DataType
	Ty   *ConcreteType
	Ctx  ID
	Meta *MetaStore
}

// NewDataNode builds a node of ty's PVM data type.
func NewDataNode(id ID, u uuid.UUID, ty *ConcreteType, ctx ID) *DataNode {
	return &DataNode{ID: id, UUID: u, PVM: ty.PVM, Ty: ty, Ctx: ctx, Meta: NewMetaStore()}
}

func (n *DataNode) NodeID() ID { return n.ID }

func (n *DataNode) CloneNode() Node {
	c := *n
	c.Meta = n.Meta.Clone()
	return &c
}

// CtxNode describes the audit record that caused a transaction.
type CtxNode struct {
	ID     ID
	Ty     *ContextType
	Fields map[string]string
}

func (n *CtxNode) NodeID() ID { return n.ID }

func (n *CtxNode) CloneNode() Node {
	c := *n
	c.Fields = make(map[string]string, len(n.Fields))
	for k, v := range n.Fields {
		c.Fields[k] = v
	}
	return &c
}

// NameNode interns a Name in the graph so Named edges have a destination.
type NameNode struct {
	ID   ID
	Name Name
}

func (n *NameNode) NodeID() ID { return n.ID }

func (n *NameNode) CloneNode() Node {
	c := *n
	return &c
}

// SchemaNode is emitted once per registered concrete or context type so
// downstream views learn the type universe.
type SchemaNode struct {
	ID    ID
	Kind  SchemaKind
	Name  string
	PVM   DataType
	Props map[string]bool
}

func (n *SchemaNode) NodeID() ID { return n.ID }

func (n *SchemaNode) CloneNode() Node {
	c := *n
	c.Props = make(map[string]bool, len(n.Props))
	for k, v := range n.Props {
		c.Props[k] = v
	}
	return &c
}
