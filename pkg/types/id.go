package types

// ID identifies an entity in the provenance graph. A single monotonic
// namespace covers every node, relationship and schema descriptor the engine
// creates; IDs are dense and never reused.
type ID uint64

// NoID is the zero ID. It is never allocated to an entity; a NamedRel whose
// EndCtx is NoID is still live.
const NoID ID = 0
