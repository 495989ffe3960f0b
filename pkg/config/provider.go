package config

import "time"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Hardware    HardwareData     `yaml:"hardware" json:"hardware"`
	Monitor     MonitorData      `yaml:"monitor,omitempty" json:"monitor,omitempty"`
	Storage     StorageData      `yaml:"storage,omitempty" json:"storage,omitempty"`
	Controllers []ControllerData `yaml:"controllers,omitempty" json:"controllers,omitempty"`
	Alerting    AlertingData     `yaml:"alerting,omitempty" json:"alerting,omitempty"`
}

// HardwareData selects and configures the rig backend. Backend is one of
// "serial" or "simulated"; when empty, "serial" is chosen if a serial
// device is configured and "simulated" otherwise.
type HardwareData struct {
	Backend           string  `yaml:"backend,omitempty" json:"backend,omitempty"`
	SerialDevice      string  `yaml:"serial_device,omitempty" json:"serial_device,omitempty"`
	Baud              int     `yaml:"baud,omitempty" json:"baud,omitempty"`
	CameraSnapshotURL string  `yaml:"camera_snapshot_url,omitempty" json:"camera_snapshot_url,omitempty"`
	ClassifierModel   string  `yaml:"classifier_model,omitempty" json:"classifier_model,omitempty"`
	MaxWaterDistance  float64 `yaml:"max_water_distance_cm,omitempty" json:"max_water_distance_cm,omitempty"`
	FeedRate          float64 `yaml:"feed_rate_grams_per_second,omitempty" json:"feed_rate_grams_per_second,omitempty"`
}

// MonitorData holds the monitoring loop tunables. Zero values fall back to
// the fixed defaults of the rig.
type MonitorData struct {
	SampleInterval  string  `yaml:"sample_interval,omitempty" json:"sample_interval,omitempty"`
	EatingThreshold float64 `yaml:"eating_threshold_grams,omitempty" json:"eating_threshold_grams,omitempty"`
	MinFoodWeight   float64 `yaml:"min_food_weight_grams,omitempty" json:"min_food_weight_grams,omitempty"`
	MinWaterLevel   float64 `yaml:"min_water_level_percent,omitempty" json:"min_water_level_percent,omitempty"`
	ReferenceMass   float64 `yaml:"reference_mass_grams,omitempty" json:"reference_mass_grams,omitempty"`
	Calibrate       bool    `yaml:"calibrate,omitempty" json:"calibrate,omitempty"`
}

// SampleIntervalDuration parses the configured sample interval, returning
// zero when unset or unparseable.
func (m MonitorData) SampleIntervalDuration() time.Duration {
	if m.SampleInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(m.SampleInterval)
	if err != nil {
		return 0
	}
	return d
}

// StorageData holds the configuration for various storage backends.
// More than one storage backend can be used simultaneously.
type StorageData struct {
	SQLite      *SQLiteData      `yaml:"sqlite,omitempty" json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `yaml:"timescaledb,omitempty" json:"timescaledb,omitempty"`
}

// SQLiteData configures the local feeding log database
type SQLiteData struct {
	Path string `yaml:"path" json:"path"`
}

// TimescaleDBData configures the remote feeding event archive
type TimescaleDBData struct {
	ConnectionString string `yaml:"connection_string" json:"connection_string"`
}

// ControllerData holds the configuration for controller backends
type ControllerData struct {
	Type       string          `yaml:"type,omitempty" json:"type,omitempty"`
	RESTServer *RESTServerData `yaml:"rest,omitempty" json:"rest,omitempty"`
}

// RESTServerData configures the HTTP API controller
type RESTServerData struct {
	ListenAddr string `yaml:"listen_addr,omitempty" json:"listen_addr,omitempty"`
	Port       int    `yaml:"port,omitempty" json:"port,omitempty"`
}

// AlertingData configures alert notification sinks
type AlertingData struct {
	MQTT *MQTTData `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
}

// MQTTData configures the MQTT alert notifier
type MQTTData struct {
	Broker   string `yaml:"broker" json:"broker"`
	ClientID string `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	Topic    string `yaml:"topic,omitempty" json:"topic,omitempty"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}
