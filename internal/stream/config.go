package stream

// TopicConfig
type TopicConfig struct {
	Topic             string `yaml:"topic"`
	CreateIfNotExist  bool   `yaml:"create_if_not_exist"`
	NumPartitions     int    `yaml:"num_partitions"`
	ReplicationFactor int    `yaml:"replication_factor"`
}

// WriterConfig
type WriterConfig struct {
	TopicConfig `yaml:",inline"`

	Addr      string `yaml:"addr"`
	Balancer  string `yaml:"balancer"`
	BatchSize int    `yaml:"batch_size"`
}

// Enabled reports whether sensor records should be published.
func (c WriterConfig) Enabled() bool {
	return c.Addr != "" && c.Topic != ""
}
