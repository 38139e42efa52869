package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureProvider archives blobs to an Azure Storage container. The storage
// account connection string comes from AZURE_STORAGE_CONNECTION_STRING,
// matching the SDK's own convention.
type AzureProvider struct {
	Container string
}

func NewAzureProvider(container string) *AzureProvider {
	return &AzureProvider{Container: container}
}

func (p *AzureProvider) Upload(ctx context.Context, localPath, remotePath string) error {
	connStr := os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	if connStr == "" {
		return fmt.Errorf("archive: AZURE_STORAGE_CONNECTION_STRING is not set")
	}
	client, err := azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return fmt.Errorf("archive: azure client: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("archive: open source: %w", err)
	}
	defer f.Close()

	_, err = client.UploadFile(ctx, p.Container, remotePath, f, nil)
	if err != nil {
		return fmt.Errorf("archive: azure upload: %w", err)
	}
	return nil
}
