// Package smu provides the source-measure capability: programming a
// level on one channel, measuring the resulting current and voltage,
// and keeping every command inside configured safe ranges.
//
// # Architecture
//
//	┌──────────┐  ApplyAndMeasure  ┌─────┐  primitives  ┌───────────────┐
//	│ consumer │ ────────────────▶ │ API │ ───────────▶ │ SerialAdapter │
//	└──────────┘                   └─────┘              │ or SimAdapter │
//	                                                    └───────────────┘
//
// The API owns the device session and serializes commands through a
// single-slot gate; concurrent callers wait briefly and are then
// rejected as busy. Adapters expose primitive TSP-level operations
// only.
//
// # Key Types
//
//   - API: the broker-registered capability
//   - Adapter: the driver contract (SerialAdapter for Keithley 26xx
//     over RS-232, SimAdapter for benchless development)
//   - Measurement: one current/voltage pair
//
// # Thread Safety
//
// All API and adapter methods are safe for concurrent use.
package smu
