package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/provgraph/pvm/pkg/ingest"
	"github.com/provgraph/pvm/pkg/sink"
)

// PluginDirEnv is the environment variable naming the plugin directory.
const PluginDirEnv = "PVM_PLUGIN_DIR"

// Config holds engine configuration.
type Config struct {
	// PluginDir is an optional directory of view plugins. Defaults to
	// $PVM_PLUGIN_DIR.
	PluginDir string `yaml:"plugin_dir"`
	// BatchSize is the ingest batch size in lines.
	BatchSize int `yaml:"batch_size"`
	// ParseWorkers caps parse parallelism; 0 means one per CPU.
	ParseWorkers int `yaml:"parse_workers"`
	// SinkCapacity is the engine→coordinator channel depth.
	SinkCapacity int `yaml:"sink_capacity"`
	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns the built-in defaults, with the plugin directory
// taken from the environment.
func DefaultConfig() Config {
	return Config{
		PluginDir:    os.Getenv(PluginDirEnv),
		BatchSize:    ingest.DefaultBatchSize,
		SinkCapacity: sink.DefaultCapacity,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
