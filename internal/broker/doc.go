// Package broker provides the central registry distributing capability
// APIs and the volatile data buffer to consumer modules.
//
//	┌──────────┐  Resolve   ┌────────┐  register  ┌────────────┐
//	│ consumer │ ─────────▶ │ Broker │ ◀───────── │ bootstrap  │
//	└──────────┘            └───┬────┘            └────────────┘
//	                            │ holds
//	              ┌─────────────┼──────────────┐
//	              ▼             ▼              ▼
//	        capabilities   volatile.Buffer  status.Manager
//
// Consumer modules receive the Broker as their sole dependency and
// never call each other directly. Registration happens once during
// bootstrap; a duplicate or missing binding is a fatal wiring fault.
//
// # Usage
//
//	b := broker.New(buffer, statusMgr, logger)
//	if err := b.RegisterCapability(broker.CapabilitySMU, smuAPI); err != nil {
//	    log.Fatal(err)
//	}
//
//	smuAPI, err := broker.Resolve[*smu.API](b, broker.CapabilitySMU)
//
// # Thread Safety
//
// All methods are safe for concurrent use. The Broker holds no
// long-lived locks.
package broker
