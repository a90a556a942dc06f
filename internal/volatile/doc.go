// Package volatile provides the overwrite-in-place buffer for
// high-rate transient measurement data.
//
// Each slot holds the most recent value of one data stream (for
// example the last acquired spectrum). A slot has exactly one declared
// producer; any number of readers pull snapshots on demand. There is
// no history and no clear operation: a slot stays populated until the
// process exits.
//
// # Key Types
//
//   - Buffer: the slot registry, one instance per process
//
// # Thread Safety
//
// Set and Get on one slot are atomic with respect to each other. Reads
// always return a copy; mutating a returned slice never affects a
// subsequent read.
package volatile
