package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elworkbench/workbench-core/internal/archive"
	"github.com/elworkbench/workbench-core/internal/status"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
//
// Retained Messages:
//   - When true, broker stores the last message for each topic
//   - New subscribers immediately receive the retained message
//   - Use for presence topics, not for event streams
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	// Validate inputs
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	// Check connection state
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Publish with timeout
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// sweepSummary is the wire form of a completed sweep. Points stay in
// the archive; telemetry carries the envelope only.
type sweepSummary struct {
	ID           string    `json:"id"`
	ProfileID    string    `json:"profile_id"`
	ProfileName  string    `json:"profile_name"`
	DeviceID     string    `json:"device_id,omitempty"`
	Channel      string    `json:"channel"`
	VoltageSweep bool      `json:"voltage_sweep"`
	Start        float64   `json:"start"`
	End          float64   `json:"end"`
	Step         float64   `json:"step"`
	Limit        float64   `json:"limit"`
	PointCount   int       `json:"point_count"`
	Aborted      bool      `json:"aborted"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Name identifies this client as a sweep export sink.
func (c *Client) Name() string { return "mqtt" }

// PublishSweep announces a completed sweep on its topic.
func (c *Client) PublishSweep(_ context.Context, rec *archive.SweepRecord) error {
	payload, err := json.Marshal(sweepSummary{
		ID:           rec.ID,
		ProfileID:    rec.ProfileID,
		ProfileName:  rec.ProfileName,
		DeviceID:     rec.DeviceID,
		Channel:      rec.Channel,
		VoltageSweep: rec.VoltageSweep,
		Start:        rec.Start,
		End:          rec.End,
		Step:         rec.Step,
		Limit:        rec.Limit,
		PointCount:   len(rec.Points),
		Aborted:      rec.Aborted,
		StartedAt:    rec.StartedAt,
		CompletedAt:  rec.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("marshalling sweep summary: %w", err)
	}

	return c.Publish(Topics{}.Sweep(rec.ID), payload, byte(c.cfg.QoS), false)
}

// statusEvent is the wire form of one status channel message.
type statusEvent struct {
	Severity  string    `json:"severity"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusHandler returns a status channel handler that mirrors every
// message to the status topic at QoS 0. The status channel must never
// block on the network, so the handler hands the payload to the paho
// queue without waiting on the delivery token; failures are dropped.
func (c *Client) StatusHandler() status.Handler {
	topic := Topics{}.Status()
	return func(msg status.Message) {
		payload, err := json.Marshal(statusEvent{
			Severity:  string(msg.Severity),
			Text:      msg.Text,
			Timestamp: msg.Time,
		})
		if err != nil || !c.IsConnected() {
			return
		}
		c.client.Publish(topic, 0, false, payload)
	}
}
