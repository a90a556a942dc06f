// Package archive stores completed sweeps in the SQLite measurement
// archive.
//
// A sweep row carries the run parameters and timing; its measured
// points live in a child table keyed by sweep ID and sequence number,
// removed by cascade when the sweep is deleted. Saves are transactional
// so a record is either fully stored or absent.
//
// # Key Types
//
//   - SweepRecord: one sweep run with parameters and optional points
//   - Point: a single sourced level with its measured voltage and current
//   - Repository: persistence interface, implemented by SQLiteRepository
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use; serialisation happens at
// the database connection, which the infrastructure layer restricts to
// a single writer.
package archive
