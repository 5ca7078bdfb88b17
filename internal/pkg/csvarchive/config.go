package csvarchive

import (
	"errors"
	"fmt"
	"time"

	"github.com/fudoline/fudoline/internal/pkg/env"
)

// Config holds object storage configuration for import archival
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads archival configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "ap-northeast-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("CSV_ARCHIVE_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when CSV archival is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when CSV archival is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when CSV archival is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if import archival is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// GetObjectKey generates the object key for one archived import.
// Format: imports/<tenant>/YYYY/MM/<timestamp>_<filename>
func (c *Config) GetObjectKey(tenantID, filename string, uploadedAt time.Time) string {
	return fmt.Sprintf("imports/%s/%04d/%02d/%d_%s",
		tenantID, uploadedAt.Year(), int(uploadedAt.Month()), uploadedAt.Unix(), filename)
}
