package docstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/facilohq/facilo/internal/pkg/env"
)

// Config holds object storage configuration for document uploads.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads object storage configuration from environment variables.
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("S3_DOCUMENTS_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when document storage is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when document storage is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when document storage is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if document storage is enabled.
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey generates a standardized object key for a document.
// Format: documents/<orgID>/YYYY/MM/UUID<ext>
func (c *Config) ObjectKey(orgID uint, docUUID, fileExtension string, at time.Time) string {
	return fmt.Sprintf("documents/%d/%04d/%02d/%s%s", orgID, at.Year(), int(at.Month()), docUUID, fileExtension)
}

// ThumbnailKey generates the object key for a document thumbnail.
func (c *Config) ThumbnailKey(orgID uint, docUUID string, at time.Time) string {
	return fmt.Sprintf("documents/%d/%04d/%02d/thumbs/%s.jpg", orgID, at.Year(), int(at.Month()), docUUID)
}

// GetBucketName returns the bucket name as configured.
func (c *Config) GetBucketName() string {
	return c.BucketName
}
