package archive

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Provider archives to an S3 (or S3-compatible) bucket. Credentials and
// region come from the standard AWS chain (env vars, shared config,
// instance/task role) unless Region overrides it.
type S3Provider struct {
	Bucket string
	Region string
}

func NewS3Provider(bucket, region string) *S3Provider {
	return &S3Provider{Bucket: bucket, Region: region}
}

func (p *S3Provider) Upload(ctx context.Context, localPath, remotePath string) error {
	var opts []func(*awsconfig.LoadOptions) error
	if p.Region != "" {
		opts = append(opts, awsconfig.WithRegion(p.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("archive: load aws config: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("archive: open source: %w", err)
	}
	defer f.Close()

	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &p.Bucket,
		Key:    &remotePath,
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("archive: s3 upload: %w", err)
	}
	return nil
}
