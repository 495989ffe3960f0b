package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testYAML = `
hardware:
  serial_device: /dev/ttyUSB0
  baud: 115200
  camera_snapshot_url: http://cam.local/snapshot.jpg
  classifier_model: cats.model
  max_water_distance_cm: 25
  feed_rate_grams_per_second: 12

monitor:
  sample_interval: 2s
  eating_threshold_grams: 4
  min_food_weight_grams: 15
  min_water_level_percent: 30
  calibrate: true

storage:
  sqlite:
    path: /var/lib/feederd/feeder.db
  timescaledb:
    connection_string: "host=db port=5432"

controllers:
  - type: rest
    rest:
      port: 8080

alerting:
  mqtt:
    broker: tcp://broker.local:1883
    topic: home/feeder/alerts
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	provider := NewYAMLProvider(writeTestConfig(t, testYAML))
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Hardware.SerialDevice != "/dev/ttyUSB0" {
		t.Errorf("serial device = %q", cfg.Hardware.SerialDevice)
	}
	if cfg.Hardware.Baud != 115200 {
		t.Errorf("baud = %d", cfg.Hardware.Baud)
	}
	if cfg.Hardware.FeedRate != 12 {
		t.Errorf("feed rate = %v", cfg.Hardware.FeedRate)
	}
	if cfg.Monitor.SampleIntervalDuration() != 2*time.Second {
		t.Errorf("sample interval = %v", cfg.Monitor.SampleIntervalDuration())
	}
	if !cfg.Monitor.Calibrate {
		t.Error("calibrate flag not parsed")
	}
	if cfg.Storage.SQLite == nil || cfg.Storage.SQLite.Path != "/var/lib/feederd/feeder.db" {
		t.Errorf("sqlite config = %+v", cfg.Storage.SQLite)
	}
	if cfg.Storage.TimescaleDB == nil || cfg.Storage.TimescaleDB.ConnectionString == "" {
		t.Errorf("timescaledb config = %+v", cfg.Storage.TimescaleDB)
	}
	if len(cfg.Controllers) != 1 || cfg.Controllers[0].Type != "rest" || cfg.Controllers[0].RESTServer.Port != 8080 {
		t.Errorf("controllers = %+v", cfg.Controllers)
	}
	if cfg.Alerting.MQTT == nil || cfg.Alerting.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("mqtt config = %+v", cfg.Alerting.MQTT)
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	provider := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := provider.LoadConfig(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestYAMLProviderInvalidYAML(t *testing.T) {
	provider := NewYAMLProvider(writeTestConfig(t, "hardware: [not: a: map"))
	if _, err := provider.LoadConfig(); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FEEDERD_TIMESCALEDB_URL", "host=secret-db")
	t.Setenv("FEEDERD_MQTT_PASSWORD", "hunter2")

	provider := NewYAMLProvider(writeTestConfig(t, testYAML))
	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Storage.TimescaleDB.ConnectionString != "host=secret-db" {
		t.Errorf("connection string = %q, env override not applied", cfg.Storage.TimescaleDB.ConnectionString)
	}
	if cfg.Alerting.MQTT.Password != "hunter2" {
		t.Errorf("mqtt password = %q, env override not applied", cfg.Alerting.MQTT.Password)
	}
}

func TestEnvOverrideEnablesTimescaleDB(t *testing.T) {
	// The archive can be configured entirely from the environment.
	t.Setenv("FEEDERD_TIMESCALEDB_URL", "host=env-only")

	provider := NewYAMLProvider(writeTestConfig(t, "hardware: {}\n"))
	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Storage.TimescaleDB == nil || cfg.Storage.TimescaleDB.ConnectionString != "host=env-only" {
		t.Errorf("timescaledb = %+v, want env-created config", cfg.Storage.TimescaleDB)
	}
}
