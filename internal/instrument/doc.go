// Package instrument provides the shared contract for device driver
// adapters: the connection state machine, the busy gate that
// serializes commands per device session, and the fault taxonomy
// capabilities use to convert driver errors into status reports.
//
// # Architecture
//
//	┌────────────┐  CheckReady/Gate  ┌─────────┐  primitive ops  ┌──────────┐
//	│ capability │ ────────────────▶ │ Session │                 │ adapter  │
//	│    API     │                   └─────────┘                 │ (serial/ │
//	└────────────┘ ───────────────────────────────────────────▶  │   sim)   │
//	                                                             └──────────┘
//
// Adapters wrap exactly one physical device class and expose primitive
// operations only; all business logic lives in the capability above.
//
// # Key Types
//
//   - ConnState: disconnected, connecting, connected, faulted
//   - Session: the exclusively-owned connection state per device
//   - Gate: single-slot command admission with bounded wait
//
// # Thread Safety
//
// Session and Gate are safe for concurrent use.
package instrument
