/*
Package metrics exposes the engine's Prometheus collectors.

Counters cover the ingest pipeline (lines read, parse errors, records
applied), the transactional core (commits, rollbacks by cause, apply
latency), graph growth (nodes by PVM type, relationships by kind) and the
view fan-out (events broadcast, running instances).

All collectors are registered at package init; Handler returns the HTTP
handler served on --metrics-addr.
*/
package metrics
