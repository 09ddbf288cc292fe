// Package collab holds the narrow interfaces to every external collaborator
// the job runner depends on (object store, media toolchain, speech-to-text
// engine, text-generation model) plus their default concrete
// implementations. Only the control plane's use of these contracts is
// covered by the testable properties; the collaborators' internal
// correctness is out of scope.
package collab

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore downloads and uploads blobs against an S3-compatible bucket.
// Re-used across jobs; session-level state is safe to share.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key, destinationPath string) error
	Upload(ctx context.Context, bucket, key, sourcePath, contentType string) error
}

// TigrisConfig configures the S3-compatible client. Grounded on
// original_source's aioboto3 client, which points at a custom endpoint and
// forces path-style addressing (Tigris is not subdomain-addressable for
// caller-chosen bucket names).
type TigrisConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type tigrisStore struct {
	client *s3.Client
}

// NewTigrisStore builds an ObjectStore backed by aws-sdk-go-v2's S3 client,
// pointed at a Tigris-compatible endpoint with path-style addressing.
func NewTigrisStore(ctx context.Context, cfg TigrisConfig) (ObjectStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return &tigrisStore{client: client}, nil
}

func (t *tigrisStore) Download(ctx context.Context, bucket, key, destinationPath string) error {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(destinationPath)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("write destination file: %w", err)
	}
	return nil
}

func (t *tigrisStore) Upload(ctx context.Context, bucket, key, sourcePath, contentType string) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	_, err = t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}
