// Package profile manages persisted measurement profiles: the sample
// under test, its device geometries and free-form acquisition settings.
//
//	┌──────────┐   delegate   ┌─────────┐   save/load   ┌───────┐
//	│   API    │ ───────────▶ │ Manager │ ────────────▶ │ Store │
//	│(capability)│  (Owner)   │ (owner) │               │ (JSON)│
//	└──────────┘              └─────────┘               └───────┘
//
// # Architecture
//
// The Manager is the owning module: it holds the only mutable record
// copies and performs every write. The API is the capability handed to
// consumer modules through the broker; its getters return deep copies
// and its setters delegate through the narrow Owner interface, so no
// consumer can reach storage or live state directly.
//
// Records are JSON documents, one file per profile, keyed by UUID v4.
// Saves are atomic (write to temp file, then rename); a record missing
// its id or name is rejected before any file is written.
//
// # Key Types
//
//   - Profile: one persisted record with devices and attributes
//   - DeviceGeometry: dimensions used for current-density normalisation
//   - Store: the file-backed persistence layer
//   - Manager: the owning module (implements Owner)
//   - API: the broker-registered capability
//
// # Thread Safety
//
// Manager and API methods are safe for concurrent use.
package profile
