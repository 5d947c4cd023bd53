package main

import (
	"github.com/weak-head/esb-ha/internal/logger"
	"github.com/weak-head/esb-ha/internal/metrics"
	"github.com/weak-head/esb-ha/internal/storage"
	"github.com/weak-head/esb-ha/internal/stream"
)

const (
	envPrefix     = "ESB_HA"
	envConfigFile = "ESB_HA_CONFIG"

	defaultOutputDir = "data/processed"
)

type cfg struct {
	Output  string                `yaml:"output"`
	Summary bool                  `yaml:"summary"`
	Log     logger.Config         `yaml:"log"`
	Metrics metrics.Config        `yaml:"metrics"`
	Storage storage.StorageConfig `yaml:"storage"`
	Stream  stream.WriterConfig   `yaml:"stream"`
}

func defaultConfig() cfg {
	return cfg{
		Output: defaultOutputDir,
		Log: logger.Config{
			Level:  "info",
			Format: "text",
		},
		Stream: stream.WriterConfig{
			Balancer: "hash",
		},
	}
}

// flags holds the command line values that override the configuration.
type flags struct {
	configFile  string
	output      string
	logLevel    string
	logFormat   string
	summary     bool
	metricsFile string
}
