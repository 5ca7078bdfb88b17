package csvarchive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// Client archives uploaded import files to object storage so a tenant's
// original data can be audited after the rows are long since edited.
type Client struct {
	s3Client *s3.Client
	config   *Config
}

// NewClient creates an archival client. Returns an error when archival is
// disabled; callers treat a nil client as "skip archival".
func NewClient(cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("CSV archival is disabled")
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	client := &Client{s3Client: s3Client, config: cfg}
	log.Infof("[CSVArchive] initialized for bucket %s", cfg.BucketName)
	return client, nil
}

// ArchiveImport stores the raw upload under a tenant-scoped key and
// returns the object key.
func (c *Client) ArchiveImport(ctx context.Context, tenantID, filename string, data []byte) (string, error) {
	objectKey := c.config.GetObjectKey(tenantID, filename, time.Now())

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.BucketName),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("text/csv"),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata: map[string]string{
			"tenant-id":     tenantID,
			"upload-source": "fudoline-import",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Infof("[CSVArchive] archived s3://%s/%s (%d bytes)", c.config.BucketName, objectKey, len(data))
	return objectKey, nil
}

// DeleteArchive removes an archived import.
func (c *Client) DeleteArchive(ctx context.Context, objectKey string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.BucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}
