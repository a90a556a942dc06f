// Package sweep runs source-measure level sweeps across the SMU
// capability.
//
// A run validates its parameters, ramps the source through the level
// list, and measures at every point. Data flows three ways:
//
//	                  +-> volatile buffer (live, per point)
//	Runner.Run -------+-> archive (SQLite, on completion)
//	                  +-> sinks (MQTT / InfluxDB, best effort)
//
// The archive write is the record of truth; sink failures are reported
// on the status channel but never fail the sweep. A cancelled or
// faulted run keeps its measured prefix and is archived as aborted.
//
// # Thread Safety
//
// Runner is safe for concurrent use; a second Run while one is in
// progress fails fast with ErrSweepRunning.
package sweep
