// Package status provides the centralized status-reporting channel.
//
// Every capability and owning module reports (severity, message) pairs
// here instead of raising faults across module boundaries. Consumers
// subscribe to render messages; the core itself stays headless.
//
//	┌────────────┐   Report()   ┌─────────┐   Handler    ┌───────────┐
//	│ capability │ ───────────▶ │ Manager │ ───────────▶ │ subscriber│
//	└────────────┘              └────┬────┘              └───────────┘
//	                                 │
//	                                 ▼
//	                          session log file
//
// # Key Types
//
//   - Severity: info, warning, error
//   - Message: one report with timestamp
//   - Manager: the single process-wide sink
//
// # Thread Safety
//
// All Manager methods are safe for concurrent use. Handlers run
// synchronously on the reporting goroutine and must not block.
package status
