// Package telemetry publishes workbench events to an MQTT broker.
//
// The bench is the source of truth; telemetry is a one-way mirror for
// dashboards and lab monitors. Three topic families are published:
//
//	workbench/system/status   retained presence, with LWT on crash
//	workbench/status          operator status channel mirror
//	workbench/sweep/{id}      completed sweep summaries
//
// Telemetry is optional. When the broker is unreachable the client
// reconnects in the background and the bench keeps working; nothing in
// the measurement path waits on the network.
package telemetry
