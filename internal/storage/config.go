package storage

// StorageConfig
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UseSSL    bool   `yaml:"use_ssl"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	Region                 string `yaml:"region"`
	Bucket                 string `yaml:"bucket"`
	CreateBucketIfNotExist bool   `yaml:"create_bucket_if_not_exist"`
}

// Enabled reports whether converted documents should be uploaded.
func (c StorageConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}
