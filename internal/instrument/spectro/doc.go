// Package spectro provides the spectral-acquisition capability:
// single and continuous spectrum acquisition with validated
// integration times.
//
// # Architecture
//
//	┌──────────┐  Acquire / Start  ┌─────┐  primitives  ┌────────────┐
//	│ consumer │ ────────────────▶ │ API │ ───────────▶ │ SimAdapter │
//	└──────────┘                   └──┬──┘              └────────────┘
//	                                  │ publishes
//	                                  ▼
//	                      volatile slots (producer "spectro")
//
// Continuous acquisition runs in a background worker so the caller is
// never blocked; every spectrum overwrites the volatile slots and
// consumers pull the latest on demand. Stopping is a clean abort: the
// session resolves to connected.
//
// # Key Types
//
//   - API: the broker-registered capability
//   - Adapter: the driver contract (SimAdapter models a 512-pixel NIR
//     detector)
//   - Spectrum: one wavelength/intensity pair of arrays
//
// # Thread Safety
//
// All API methods are safe for concurrent use.
package spectro
