package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file and
// applies environment overrides for secrets.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config := &ConfigData{}
	if err := yaml.Unmarshal(cfgFile, config); err != nil {
		return nil, fmt.Errorf("error parsing YAML config: %w", err)
	}

	applyEnvOverrides(config)

	return config, nil
}

// Close is a no-op for YAML providers
func (y *YAMLProvider) Close() error {
	return nil
}

// applyEnvOverrides lets secrets live in the environment (or a .env file
// loaded by the caller) instead of the config file.
func applyEnvOverrides(config *ConfigData) {
	if v := os.Getenv("FEEDERD_TIMESCALEDB_URL"); v != "" {
		if config.Storage.TimescaleDB == nil {
			config.Storage.TimescaleDB = &TimescaleDBData{}
		}
		config.Storage.TimescaleDB.ConnectionString = v
	}
	if v := os.Getenv("FEEDERD_MQTT_PASSWORD"); v != "" && config.Alerting.MQTT != nil {
		config.Alerting.MQTT.Password = v
	}
}
