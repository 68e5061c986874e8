/*
Package views fans the engine's change-event stream out to downstream
consumers.

# Architecture

	┌───────────────────── VIEW FAN-OUT ───────────────────────┐
	│                                                           │
	│  Engine ──► change channel (buffer: 100000)               │
	│                     │                                     │
	│             Broadcast goroutine                           │
	│                     │                                     │
	│        ┌────────────┼────────────┐                        │
	│        ▼            ▼            ▼                        │
	│   view queue   view queue   view queue  (buffer: 1000)    │
	│        │            │            │                        │
	│   view goroutine  view ...    view ...                    │
	└───────────────────────────────────────────────────────────┘

A view type is registered once under a unique name; instances are created on
demand, each owning a bounded queue and a goroutine. The broadcaster sends
every event to every instance queue and blocks when a queue is full: a slow
view back-pressures the whole pipeline rather than dropping events, so the
event order every view observes is exactly the applier's commit order.

Shutdown closes the input channel first (done by the engine), lets the
broadcaster drain, then closes each instance queue in registration order and
waits for the instance goroutines to finish.

Built-in views:

  - DbgView: append each change event as a line to a file
  - CSVView: export nodes.csv and rels.csv on stream end
  - ProcTreeView: stream actor nodes and their flow edges as JSON lines
  - BoltView: persist the graph into a bbolt database file
  - Neo4jView: persist the graph into a Neo4j database
*/
package views
