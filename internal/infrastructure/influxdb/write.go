package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/elworkbench/workbench-core/internal/archive"
)

// Name identifies this client as a sweep export sink.
func (c *Client) Name() string { return "influxdb" }

// PublishSweep writes every point of a completed sweep as a time
// series, tagged by sweep and profile for querying.
//
// Points share the sweep's completion timestamp offset by sequence so
// they order correctly; the archive remains the authoritative copy.
func (c *Client) PublishSweep(_ context.Context, rec *archive.SweepRecord) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	tags := map[string]string{
		"sweep_id":   rec.ID,
		"profile_id": rec.ProfileID,
		"channel":    rec.Channel,
	}
	if rec.DeviceID != "" {
		tags["device_id"] = rec.DeviceID
	}

	for i, p := range rec.Points {
		point := write.NewPoint(
			"sweep_points",
			tags,
			map[string]interface{}{
				"level":   p.Level,
				"voltage": p.Voltage,
				"current": p.Current,
				"seq":     i,
			},
			rec.CompletedAt.Add(time.Duration(i)*time.Microsecond),
		)
		c.writeAPI.WritePoint(point)
	}

	return nil
}

// WriteSpectrumStat records a scalar derived from a spectrum, such as
// a peak wavelength or integrated intensity.
func (c *Client) WriteSpectrumStat(profileID, stat string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"spectrum_stats",
		map[string]string{
			"profile_id": profileID,
			"stat":       stat,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Example:
//
//	client.WritePoint("bench_stats",
//	    map[string]string{"bench": "bench-001"},
//	    map[string]interface{}{"sweeps_today": 12})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
