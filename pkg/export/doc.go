// Package export projects assignment state into report shapes.
//
// Four projections exist:
//
//	ByServer        domains grouped under their server, both sorted by
//	                name; servers without assignments are omitted
//	Rows            one flat row per assignment, newest first
//	CapacityReport  per-mode sums of servers, used slots and capacity
//	Configs         per-server config text, sorted by server name
//
// Every projection names its fields explicitly and is computed inside
// one read snapshot. Rendering the projections into files or tables is
// up to the caller; this package only decides what goes in them and in
// what order.
package export
