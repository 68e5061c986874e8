/*
Package pvm is the Provenance Versioned Model engine: the transactional
state machine that materialises a provenance graph from abstract operations.

# Architecture

	┌──────────────────────── PVM ─────────────────────────────┐
	│                                                           │
	│  Registries      concrete types, context types            │
	│  UUID map        logical identity → latest version ID     │
	│  Node store      ID → node          (loaned per key)      │
	│  Rel store       ID → relationship  (loaned per key)      │
	│  Name store      Name → name node   (loaned per key)      │
	│  Triple index    (kind, src, dst) → relationship ID       │
	│  Open cache      store UUID → actor UUIDs holding it open │
	│                                                           │
	│  Transaction                                              │
	│    - ID snapshot (optimistic reservation)                 │
	│    - lazily persisted context node                        │
	│    - every index wrapped in a transactional overlay       │
	│    - change events coalesced in a per-transaction store   │
	│    - commit folds overlays and flushes events; rollback   │
	│      discards both                                        │
	└───────────────────────────────────────────────────────────┘

A transaction exposes the operation algebra the trace mappers target:
Declare, Add, Derive, Source, Sink, SinkStart, SinkEnd, their byte-counting
variants, Name, Unname, Meta, Connect and Release. Operations enforce the
role invariants (actors act, conduits connect) and the versioning rules
(stores version on write; edit sessions collapse back to stores when the
last writer leaves).

Record-level failures (missing fields, role violations) are ordinary errors:
the caller rolls the transaction back and the graph is untouched.
Programming errors (double lends, duplicate IDs) panic.
*/
package pvm
