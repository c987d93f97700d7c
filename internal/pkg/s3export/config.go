package s3export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

// Config holds S3 export configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Prefix          string
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Prefix:          strings.Trim(env.GetEnv("S3_EXPORT_PREFIX", "exports"), "/"),
		Enabled:         env.GetEnv("S3_EXPORT_ENABLED", "false") == "true",
	}

	// Validate required fields if S3 export is enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 export is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 export is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 export is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if S3 export is enabled
func (c *Config) IsEnabled() bool {
	return c != nil && c.Enabled
}

// ObjectKey generates the object key for a form export
func (c *Config) ObjectKey(formID string, now time.Time) string {
	// Format: <prefix>/<formID>/YYYY/MM/<timestamp>.csv
	now = now.UTC()
	key := fmt.Sprintf("%s/%04d/%02d/%s.csv", formID, now.Year(), int(now.Month()), now.Format("20060102T150405.000Z"))
	if c.Prefix == "" {
		return key
	}
	return c.Prefix + "/" + key
}
