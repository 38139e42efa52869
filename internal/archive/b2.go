package archive

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Backblaze/blazer/b2"
)

// B2Provider archives objects to a Backblaze B2 bucket. Credentials come
// from B2_ACCOUNT_ID/B2_APPLICATION_KEY, matching the SDK's own convention.
type B2Provider struct {
	Bucket string
}

func NewB2Provider(bucket string) *B2Provider {
	return &B2Provider{Bucket: bucket}
}

func (p *B2Provider) Upload(ctx context.Context, localPath, remotePath string) error {
	accountID := os.Getenv("B2_ACCOUNT_ID")
	appKey := os.Getenv("B2_APPLICATION_KEY")
	if accountID == "" || appKey == "" {
		return fmt.Errorf("archive: B2_ACCOUNT_ID/B2_APPLICATION_KEY are not set")
	}

	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return fmt.Errorf("archive: b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, p.Bucket)
	if err != nil {
		return fmt.Errorf("archive: b2 bucket: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("archive: open source: %w", err)
	}
	defer f.Close()

	w := bucket.Object(remotePath).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("archive: b2 write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: b2 finalize: %w", err)
	}
	return nil
}
