package storage

import "errors"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Enabled reports whether an endpoint was configured.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

func (c MinIOConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio config missing endpoint")
	}
	if c.Bucket == "" {
		return errors.New("minio config missing bucket")
	}
	return nil
}
