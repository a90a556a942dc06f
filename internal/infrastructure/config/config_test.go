package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
workbench:
  id: "test-bench"
storage:
  profiles_dir: "/tmp/profiles"
  state_file: "/tmp/state.json"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
smu:
  simulated: true
  max_voltage: 10.0
  max_current: 0.5
spectrometer:
  simulated: true
  integration_time: 200ms
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workbench.ID != "test-bench" {
		t.Errorf("Workbench.ID = %q, want %q", cfg.Workbench.ID, "test-bench")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.SMU.MaxVoltage != 10.0 {
		t.Errorf("SMU.MaxVoltage = %v, want 10.0", cfg.SMU.MaxVoltage)
	}

	if cfg.Spectrometer.IntegrationTime != 200*time.Millisecond {
		t.Errorf("Spectrometer.IntegrationTime = %v, want 200ms", cfg.Spectrometer.IntegrationTime)
	}

	// Defaults survive a partial file.
	if cfg.SMU.Baud != 115200 {
		t.Errorf("SMU.Baud = %d, want default 115200", cfg.SMU.Baud)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
workbench:
  id: ""
database:
  path: "/tmp/test.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty workbench.id, got nil")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	content := `
workbench:
  id: "test-bench"
smu:
  port: "/dev/ttyUSB0"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("WORKBENCH_SMU_PORT", "/dev/ttyACM3")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SMU.Port != "/dev/ttyACM3" {
		t.Errorf("SMU.Port = %q, want env override %q", cfg.SMU.Port, "/dev/ttyACM3")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "default config is valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing workbench id",
			mutate:  func(c *Config) { c.Workbench.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing profiles dir",
			mutate:  func(c *Config) { c.Storage.ProfilesDir = "" },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name: "hardware smu without port",
			mutate: func(c *Config) {
				c.SMU.Simulated = false
				c.SMU.Port = ""
			},
			wantErr: true,
		},
		{
			name:    "non-positive max voltage",
			mutate:  func(c *Config) { c.SMU.MaxVoltage = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive max current",
			mutate:  func(c *Config) { c.SMU.MaxCurrent = -1 },
			wantErr: true,
		},
		{
			name: "integration time outside bounds",
			mutate: func(c *Config) {
				c.Spectrometer.IntegrationTime = time.Minute
			},
			wantErr: true,
		},
		{
			name: "zero smu command timeout",
			mutate: func(c *Config) {
				c.SMU.CommandTimeout = 0
			},
			wantErr: true,
		},
		{
			name: "zero spectrometer command timeout",
			mutate: func(c *Config) {
				c.Spectrometer.CommandTimeout = 0
			},
			wantErr: true,
		},
		{
			name: "inverted integration bounds",
			mutate: func(c *Config) {
				c.Spectrometer.MinIntegration = time.Second
				c.Spectrometer.MaxIntegration = 100 * time.Millisecond
			},
			wantErr: true,
		},
		{
			name: "invalid mqtt qos when enabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name: "mqtt qos ignored when disabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = false
				c.MQTT.QoS = 3
			},
			wantErr: false,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Bucket = "bench"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
