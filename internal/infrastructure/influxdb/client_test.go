package influxdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/elworkbench/workbench-core/internal/archive"
	"github.com/elworkbench/workbench-core/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestDisconnectedClientIsSafe(t *testing.T) {
	c := &Client{}

	if c.IsConnected() {
		t.Error("IsConnected() = true on zero client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Write helpers must be silent no-ops when disconnected.
	c.WriteSpectrumStat("p1", "peak_nm", 1720)
	c.WritePoint("bench_stats", nil, map[string]interface{}{"v": 1})
	c.Flush()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishSweepRequiresConnection(t *testing.T) {
	c := &Client{}

	rec := &archive.SweepRecord{
		ID:          "s1",
		ProfileID:   "p1",
		Channel:     "a",
		CompletedAt: time.Now().UTC(),
		Points:      []archive.Point{{Level: 1, Voltage: 1, Current: 0.001}},
	}
	if err := c.PublishSweep(context.Background(), rec); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishSweep() error = %v, want ErrNotConnected", err)
	}
}
