/*
Package trace decodes CADETS trace records and maps them onto PVM
operations.

Each input line is a JSON object decoding to either an audit record (a
syscall observation) or an FBT record (a kernel probe observation). FBT
records are accepted but not mapped. Audit records are processed one
transaction each: the record's event name selects a handler that translates
the syscall into declare/source/sink/name/connect operations against the
provenance graph. A handler that finds a required field absent fails with a
MissingFieldError; the caller rolls the transaction back and the stream
continues.

Before processing, every UUID in a record is rewritten under a v5 derivation
keyed by the record's host UUID, so identifiers from different hosts can
never collide.
*/
package trace
