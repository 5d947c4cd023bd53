package metrics

// Config
type Config struct {
	// Textfile is the node exporter textfile the run metrics are written to.
	// Metrics are not exported when it is empty.
	Textfile string `yaml:"textfile"`
}

// ServiceInfo
type ServiceInfo struct {
	Source string
}
