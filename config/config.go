// Package config loads wyvern's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wyverndb/wyvern/logger"
)

// Metrics configures the optional Prometheus endpoint.
type Metrics struct {
	// Enabled toggles metric registration and the /metrics endpoint.
	Enabled bool `yaml:"enabled"`
	// Port is the port the /metrics endpoint listens on.
	Port int `yaml:"port"`
}

// Config holds everything needed to bring up the storage layer.
type Config struct {
	// PoolSize is the fixed number of frames in the buffer pool.
	PoolSize int `yaml:"pool_size"`
	// DataFile is the path of the primary data file.
	DataFile string `yaml:"data_file"`
	// DirectIO selects the direct I/O disk manager instead of the OS-buffered one.
	DirectIO bool `yaml:"direct_io"`

	Logger  logger.Config `yaml:"logger"`
	Metrics Metrics       `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		PoolSize: 64,
		DataFile: "wyvern.db",
		Logger: logger.Config{
			Level:  "info",
			Format: "console",
		},
		Metrics: Metrics{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Load reads and validates a YAML configuration file,
// filling unset fields from Default.
func Load(path string) (Config, error) {

	config := Default()

	data, err := os.ReadFile(path)

	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if config.PoolSize <= 0 {
		return config, fmt.Errorf("pool_size must be positive, got %d", config.PoolSize)
	}

	if config.DataFile == "" {
		return config, fmt.Errorf("data_file must not be empty")
	}

	return config, nil
}
