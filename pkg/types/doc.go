/*
Package types defines the data model of the Provenance Versioned Model (PVM).

The PVM is a typed, versioned multigraph. Its entities are:

	┌──────────────────── PVM GRAPH ───────────────────────────┐
	│                                                           │
	│  Data nodes (Actor, Store, Conduit, EditSession)          │
	│    - logical identity: (UUID, data type)                  │
	│    - physical identity: dense 64-bit ID per version       │
	│    - keyed metadata with context of set                   │
	│                                                           │
	│  Name nodes       Path("/etc/passwd") or Net(addr, port)  │
	│  Context nodes    one per mutating transaction            │
	│  Schema nodes     emitted once per registered type        │
	│                                                           │
	│  Relationships                                            │
	│    Inf   {src, dst, op, ctx, byte_count}                  │
	│          op ∈ {Source, Sink, Connect, Version}            │
	│    Named {entity, name, start_ctx, end_ctx}               │
	└───────────────────────────────────────────────────────────┘

Every entity the engine creates, nodes and relationships alike, draws its ID
from a single monotonic namespace. IDs are dense and never reused. A new
version of a data node is a new node with a fresh ID sharing the UUID; the
UUID always resolves to the latest version.

Graph mutations are communicated to downstream views as Change values, a
small sum of CreateNode, UpdateNode, CreateRel and UpdateRel.

# Integration Points

This package integrates with:

  - pkg/pvm: builds and mutates graph entities
  - pkg/sink: coalesces Change values per transaction
  - pkg/views: consumes the Change stream
  - pkg/trace: declares the concrete types of the CADETS dialect
*/
package types
