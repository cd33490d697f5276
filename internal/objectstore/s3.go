package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"jukebox/internal/config"
)

// Client uploads ingested audio to an S3-compatible bucket using multipart
// uploads. Source bytes are streamed straight through; nothing is buffered to
// disk.
type Client struct {
	bucket   string
	uploader *manager.Uploader
}

// NewClient builds an object store client. Credentials come from the standard
// AWS environment/credential chain.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	bucket := strings.TrimSpace(cfg.Storage.Bucket)
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Storage.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.Storage.ForcePathStyle
	})

	return &Client{
		bucket:   bucket,
		uploader: manager.NewUploader(client),
	}, nil
}

// Upload streams body into the bucket under key and blocks until the upload
// itself acknowledges full receipt. Objects are publicly readable once
// complete. Partial multipart state left behind by a failed upload is not
// cleaned up here; the job store decides what is usable.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
