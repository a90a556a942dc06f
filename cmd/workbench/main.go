// EL Workbench - Device Characterisation Bench Controller
//
// This is the main entry point for the workbench application. It wires
// the instrument capabilities, the sample profile store, the sweep
// engine and the optional telemetry exporters behind the capability
// broker, then waits for shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elworkbench/workbench-core/internal/archive"
	"github.com/elworkbench/workbench-core/internal/broker"
	"github.com/elworkbench/workbench-core/internal/infrastructure/config"
	"github.com/elworkbench/workbench-core/internal/infrastructure/database"
	"github.com/elworkbench/workbench-core/internal/infrastructure/influxdb"
	"github.com/elworkbench/workbench-core/internal/infrastructure/logging"
	"github.com/elworkbench/workbench-core/internal/instrument/smu"
	"github.com/elworkbench/workbench-core/internal/instrument/spectro"
	"github.com/elworkbench/workbench-core/internal/profile"
	"github.com/elworkbench/workbench-core/internal/status"
	"github.com/elworkbench/workbench-core/internal/sweep"
	"github.com/elworkbench/workbench-core/internal/telemetry"
	"github.com/elworkbench/workbench-core/internal/volatile"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// How often the background monitor rechecks infrastructure connections.
const healthCheckInterval = time.Minute

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting EL Workbench",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the status channel with its session log
	statusMgr, err := status.New(status.Options{
		SessionLogDir: cfg.Storage.SessionLogDir,
		RetentionDays: cfg.Storage.SessionLogRetentionDays,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("opening status channel: %w", err)
	}
	defer func() {
		if closeErr := statusMgr.Close(); closeErr != nil {
			log.Error("error closing status channel", "error", closeErr)
		}
	}()

	// Open the measurement archive
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	sweepRepo := archive.NewSQLiteRepository(db.DB)
	if err := sweepRepo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("preparing archive schema: %w", err)
	}

	// Declare the shared data slots before any producer starts
	buffer := volatile.NewBuffer()
	slots := map[string]string{
		volatile.SlotSpectrumWavelengths: volatile.ProducerSpectro,
		volatile.SlotSpectrumIntensities: volatile.ProducerSpectro,
		volatile.SlotSweepLevels:         volatile.ProducerSweep,
		volatile.SlotSweepVoltages:       volatile.ProducerSweep,
		volatile.SlotSweepCurrents:       volatile.ProducerSweep,
	}
	for slot, producer := range slots {
		if err := buffer.DeclareSlot(slot, producer); err != nil {
			return fmt.Errorf("declaring slot %q: %w", slot, err)
		}
	}

	b := broker.New(buffer, statusMgr, log)

	// Sample profile store
	profileStore, err := profile.NewStore(cfg.Storage.ProfilesDir)
	if err != nil {
		return fmt.Errorf("opening profile store: %w", err)
	}
	profileMgr, err := profile.NewManager(profileStore, cfg.Storage.StateFile, statusMgr, log)
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}
	log.Info("profiles loaded", "count", len(profileMgr.Profiles()))

	// Instruments
	smuAPI := smu.NewAPI(newSMUAdapter(cfg.SMU, log), cfg.SMU, statusMgr, log)
	if err := smuAPI.Connect(ctx); err != nil {
		// The bench is usable without a live SMU; the operator can see
		// the fault on the status channel and retry from there.
		statusMgr.Error("SMU connection failed at startup: %v", err)
	}
	defer func() {
		if closeErr := smuAPI.Disconnect(context.Background()); closeErr != nil {
			log.Error("error disconnecting SMU", "error", closeErr)
		}
	}()

	spectroAPI := spectro.NewAPI(newSpectroAdapter(cfg.Spectrometer, log), cfg.Spectrometer, buffer, statusMgr, log)
	if err := spectroAPI.Connect(ctx); err != nil {
		statusMgr.Error("spectrometer connection failed at startup: %v", err)
	}
	defer func() {
		if closeErr := spectroAPI.Disconnect(); closeErr != nil {
			log.Error("error disconnecting spectrometer", "error", closeErr)
		}
	}()

	// Capability registration is fatal: a partial broker means every
	// consumer sees a different bench.
	registrations := map[string]any{
		broker.CapabilityProfile: profile.NewAPI(profileMgr, statusMgr),
		broker.CapabilitySMU:     smuAPI,
		broker.CapabilitySpectro: spectroAPI,
	}
	for name, api := range registrations {
		if err := b.RegisterCapability(name, api); err != nil {
			return fmt.Errorf("registering capability %q: %w", name, err)
		}
	}
	log.Info("capabilities registered", "names", b.CapabilityNames())

	runner := sweep.NewRunner(b, sweepRepo, cfg.Sweep, statusMgr, log)

	// Connect to MQTT broker (optional)
	var mqttClient *telemetry.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = telemetry.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		statusMgr.Subscribe(mqttClient.StatusHandler())
		runner.AddSink(mqttClient)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		runner.AddSink(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Verify all connections are healthy before declaring the bench ready
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Recheck in the background so a dropped broker or archive shows up
	// on the status channel instead of silently losing data.
	go monitorHealth(ctx, db, mqttClient, influxClient, statusMgr, log)

	statusMgr.Info("workbench %s ready", cfg.Workbench.Name)
	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: telemetry sinks,
	// instruments, database, status channel.

	log.Info("EL Workbench stopped")
	return nil
}

// healthCheck verifies the infrastructure connections. The optional
// clients may be nil when disabled in config.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *telemetry.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// monitorHealth repeats the startup health check for the life of the
// process and surfaces failures on the status channel. Instrument
// sessions manage their own fault state, so only infrastructure is
// checked here.
func monitorHealth(ctx context.Context, db *database.DB, mqttClient *telemetry.Client, influxClient *influxdb.Client, statusMgr *status.Manager, log *logging.Logger) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := healthCheck(checkCtx, db, mqttClient, influxClient)
			cancel()

			switch {
			case err != nil && healthy:
				healthy = false
				statusMgr.Warning("infrastructure health check failed: %v", err)
			case err == nil && !healthy:
				healthy = true
				statusMgr.Info("infrastructure connections recovered")
			case err != nil:
				log.Warn("health check still failing", "error", err)
			}
		}
	}
}

// newSMUAdapter selects the SMU transport from config.
func newSMUAdapter(cfg config.SMUConfig, log *logging.Logger) smu.Adapter {
	if cfg.Simulated {
		log.Info("using simulated SMU", "resistance_ohms", cfg.SimResistanceOhms)
		return smu.NewSimAdapter(cfg.SimResistanceOhms)
	}
	log.Info("using serial SMU", "port", cfg.Port, "baud", cfg.Baud)
	return smu.NewSerialAdapter(cfg)
}

// newSpectroAdapter selects the spectrometer backend from config.
// Only the simulated detector is implemented; a hardware flag falls
// back to it with a warning rather than refusing to start.
func newSpectroAdapter(cfg config.SpectrometerConfig, log *logging.Logger) spectro.Adapter {
	if !cfg.Simulated {
		log.Warn("hardware spectrometer not supported, using simulator")
	}
	return spectro.NewSimAdapter()
}

// getConfigPath returns the configuration file path.
// Uses WORKBENCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WORKBENCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
