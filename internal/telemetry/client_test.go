package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/elworkbench/workbench-core/internal/archive"
	"github.com/elworkbench/workbench-core/internal/infrastructure/config"
	"github.com/elworkbench/workbench-core/internal/status"
)

// newOfflineClient builds a client that has never connected, for
// validation paths that must fail before touching the network.
func newOfflineClient() *Client {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "test"},
		QoS:    1,
	}
	opts := buildClientOptions(cfg)
	return &Client{
		cfg:     cfg,
		options: opts,
		client:  pahomqtt.NewClient(opts),
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{}

	if got := topics.SystemStatus(); got != "workbench/system/status" {
		t.Errorf("SystemStatus() = %q", got)
	}
	if got := topics.Status(); got != "workbench/status" {
		t.Errorf("Status() = %q", got)
	}
	if got := topics.Sweep("abc-123"); got != "workbench/sweep/abc-123" {
		t.Errorf("Sweep() = %q", got)
	}
}

func TestPublishValidation(t *testing.T) {
	c := newOfflineClient()

	if err := c.Publish("", []byte("x"), 0, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("workbench/status", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3 error = %v, want ErrInvalidQoS", err)
	}

	oversized := make([]byte, maxPayloadSize+1)
	if err := c.Publish("workbench/status", oversized, 0, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversized payload error = %v, want ErrPublishFailed", err)
	}

	if err := c.Publish("workbench/status", []byte("x"), 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected publish error = %v, want ErrNotConnected", err)
	}
}

func TestPublishSweepRequiresConnection(t *testing.T) {
	c := newOfflineClient()

	rec := &archive.SweepRecord{
		ID:          "s1",
		ProfileID:   "p1",
		ProfileName: "sample",
		Channel:     "a",
		StartedAt:   time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
	}
	if err := c.PublishSweep(context.Background(), rec); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishSweep() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	c := newOfflineClient()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() on cancelled ctx error = %v, want context.Canceled", err)
	}
}

func TestStatusHandlerDoesNotBlock(t *testing.T) {
	c := newOfflineClient()
	handler := c.StatusHandler()

	// Status handlers run inline on every Report, so the mirror must
	// return immediately even with no broker reachable.
	done := make(chan struct{})
	go func() {
		handler(status.Message{
			Severity: status.SeverityInfo,
			Text:     "bench ready",
			Time:     time.Now(),
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("StatusHandler blocked on a dead broker")
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "broker.lab", Port: 8883, TLS: true, ClientID: "bench-007"},
		Auth:   config.MQTTAuthConfig{Username: "bench", Password: "secret"},
		QoS:    1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].Scheme != "ssl" {
		t.Fatalf("servers = %v, want one ssl URL", opts.Servers)
	}
	if opts.Servers[0].Host != "broker.lab:8883" {
		t.Errorf("broker host = %q", opts.Servers[0].Host)
	}
	if opts.ClientID != "bench-007" {
		t.Errorf("client id = %q", opts.ClientID)
	}
	if opts.Username != "bench" {
		t.Errorf("username = %q", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("auto reconnect not enabled")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "bench-001"},
	}
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	if opts.WillTopic != "workbench/system/status" {
		t.Errorf("will topic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("will message not retained")
	}
	payload := string(opts.WillPayload)
	if !strings.Contains(payload, `"status":"offline"`) || !strings.Contains(payload, "bench-001") {
		t.Errorf("will payload = %s", payload)
	}
}
