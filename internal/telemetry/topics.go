package telemetry

import "fmt"

// Topic prefixes for workbench telemetry.
//
// The hierarchy is flat and publish-only:
//
//	workbench/system/status      retained online/offline presence
//	workbench/status             operator status channel mirror
//	workbench/sweep/{id}         completed sweep summaries
const (
	// TopicPrefix is the base for all workbench topics.
	TopicPrefix = "workbench"

	// TopicPrefixSystem is the base for system presence topics.
	TopicPrefixSystem = "workbench/system"
)

// Topics provides builders for workbench MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// SystemStatus returns the retained presence topic.
//
// Example: workbench/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// Status returns the topic mirroring the operator status channel.
//
// Example: workbench/status
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// Sweep returns the topic for one completed sweep.
//
// Example: workbench/sweep/8f14e45f-ceea-4670-8f5c-5d1b0a9c6f21
func (Topics) Sweep(sweepID string) string {
	return fmt.Sprintf("%s/sweep/%s", TopicPrefix, sweepID)
}
