package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the workbench core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Workbench    WorkbenchConfig    `yaml:"workbench"`
	Storage      StorageConfig      `yaml:"storage"`
	Database     DatabaseConfig     `yaml:"database"`
	Logging      LoggingConfig      `yaml:"logging"`
	SMU          SMUConfig          `yaml:"smu"`
	Spectrometer SpectrometerConfig `yaml:"spectrometer"`
	Sweep        SweepConfig        `yaml:"sweep"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
}

// WorkbenchConfig identifies this bench installation.
type WorkbenchConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// StorageConfig contains file-storage locations for persisted records.
type StorageConfig struct {
	// ProfilesDir holds one JSON document per measurement profile.
	ProfilesDir string `yaml:"profiles_dir"`

	// StateFile remembers cross-run state such as the last-used profile.
	StateFile string `yaml:"state_file"`

	// SessionLogDir holds per-run status logs.
	SessionLogDir string `yaml:"session_log_dir"`

	// SessionLogRetentionDays prunes session logs older than this on startup.
	SessionLogRetentionDays int `yaml:"session_log_retention_days"`
}

// DatabaseConfig contains SQLite measurement-archive settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SMUConfig contains source-measure unit settings.
type SMUConfig struct {
	// Simulated selects the software instrument instead of serial hardware.
	Simulated bool `yaml:"simulated"`

	// Port is the serial device path, e.g. /dev/ttyUSB0.
	Port string `yaml:"port"`

	// Baud is the serial line rate. Keithley 26xx ships at 115200.
	Baud int `yaml:"baud"`

	// MaxVoltage and MaxCurrent bound every source level and compliance
	// limit accepted by the capability, in volts and amps.
	MaxVoltage float64 `yaml:"max_voltage"`
	MaxCurrent float64 `yaml:"max_current"`

	// CommandTimeout bounds the wait for the device session under
	// contention before a call is rejected as busy.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// ReadTimeout bounds a single serial read.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// SimResistanceOhms is the load the simulated instrument presents.
	SimResistanceOhms float64 `yaml:"sim_resistance_ohms"`
}

// SpectrometerConfig contains spectral-acquisition settings.
type SpectrometerConfig struct {
	// Simulated selects the software instrument.
	Simulated bool `yaml:"simulated"`

	// IntegrationTime is the initial integration time.
	IntegrationTime time.Duration `yaml:"integration_time"`

	// MinIntegration and MaxIntegration bound SetIntegrationTime.
	MinIntegration time.Duration `yaml:"min_integration"`
	MaxIntegration time.Duration `yaml:"max_integration"`

	// CommandTimeout bounds the wait for the device session under contention.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// SweepConfig contains sweep-engine settings.
type SweepConfig struct {
	// SettleDelay is the pause between applying a level and measuring.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// MaxPoints rejects sweep parameter sets that would exceed this count.
	MaxPoints int `yaml:"max_points"`
}

// MQTTConfig contains optional telemetry broker settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains optional time-series sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: WORKBENCH_SECTION_KEY
// For example: WORKBENCH_DATABASE_PATH, WORKBENCH_SMU_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Workbench: WorkbenchConfig{
			ID:   "bench-001",
			Name: "EL Workbench",
		},
		Storage: StorageConfig{
			ProfilesDir:             "./data/profiles",
			StateFile:               "./data/state.json",
			SessionLogDir:           "./data/logs",
			SessionLogRetentionDays: 14,
		},
		Database: DatabaseConfig{
			Path:        "./data/workbench.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		SMU: SMUConfig{
			Simulated:         true,
			Port:              "/dev/ttyUSB0",
			Baud:              115200,
			MaxVoltage:        20.0,
			MaxCurrent:        1.0,
			CommandTimeout:    2 * time.Second,
			ReadTimeout:       2 * time.Second,
			SimResistanceOhms: 1000.0,
		},
		Spectrometer: SpectrometerConfig{
			Simulated:       true,
			IntegrationTime: 100 * time.Millisecond,
			MinIntegration:  10 * time.Millisecond,
			MaxIntegration:  10 * time.Second,
			CommandTimeout:  2 * time.Second,
		},
		Sweep: SweepConfig{
			SettleDelay: 50 * time.Millisecond,
			MaxPoints:   10000,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "workbench-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: WORKBENCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WORKBENCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("WORKBENCH_PROFILES_DIR"); v != "" {
		cfg.Storage.ProfilesDir = v
	}
	if v := os.Getenv("WORKBENCH_SMU_PORT"); v != "" {
		cfg.SMU.Port = v
	}
	if v := os.Getenv("WORKBENCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WORKBENCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WORKBENCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("WORKBENCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Workbench.ID == "" {
		errs = append(errs, "workbench.id is required")
	}

	if c.Storage.ProfilesDir == "" {
		errs = append(errs, "storage.profiles_dir is required")
	}
	if c.Storage.StateFile == "" {
		errs = append(errs, "storage.state_file is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if !c.SMU.Simulated && c.SMU.Port == "" {
		errs = append(errs, "smu.port is required when smu.simulated is false")
	}
	if c.SMU.Baud <= 0 {
		errs = append(errs, "smu.baud must be positive")
	}
	if c.SMU.MaxVoltage <= 0 {
		errs = append(errs, "smu.max_voltage must be positive")
	}
	if c.SMU.MaxCurrent <= 0 {
		errs = append(errs, "smu.max_current must be positive")
	}
	if c.SMU.CommandTimeout <= 0 {
		errs = append(errs, "smu.command_timeout must be positive")
	}

	if c.Spectrometer.MinIntegration <= 0 {
		errs = append(errs, "spectrometer.min_integration must be positive")
	}
	if c.Spectrometer.MaxIntegration < c.Spectrometer.MinIntegration {
		errs = append(errs, "spectrometer.max_integration must be >= min_integration")
	}
	if c.Spectrometer.IntegrationTime < c.Spectrometer.MinIntegration ||
		c.Spectrometer.IntegrationTime > c.Spectrometer.MaxIntegration {
		errs = append(errs, "spectrometer.integration_time must be within [min_integration, max_integration]")
	}
	if c.Spectrometer.CommandTimeout <= 0 {
		errs = append(errs, "spectrometer.command_timeout must be positive")
	}

	if c.Sweep.MaxPoints <= 0 {
		errs = append(errs, "sweep.max_points must be positive")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt.enabled is true")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb.enabled is true")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb.enabled is true")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
