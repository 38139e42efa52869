package archive

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// GCSProvider archives objects to a Google Cloud Storage bucket, using
// Application Default Credentials.
type GCSProvider struct {
	Bucket string
}

func NewGCSProvider(bucket string) *GCSProvider {
	return &GCSProvider{Bucket: bucket}
}

func (p *GCSProvider) Upload(ctx context.Context, localPath, remotePath string) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("archive: gcs client: %w", err)
	}
	defer client.Close()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("archive: open source: %w", err)
	}
	defer f.Close()

	w := client.Bucket(p.Bucket).Object(remotePath).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("archive: gcs write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: gcs finalize: %w", err)
	}
	return nil
}
