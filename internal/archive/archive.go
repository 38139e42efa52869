// Package archive optionally pushes a finished task's final.mp4 and
// manifests to a remote store once concat completes. It's off by default;
// config.Config.ArchiveProvider selects none/local/s3/azure/gcs/b2.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/omegalabsinc/screenrecorder/internal/config"
	"github.com/omegalabsinc/screenrecorder/internal/logging"
)

var log = logging.L("archive")

// Provider pushes a single local file to wherever the archive lives.
type Provider interface {
	Upload(ctx context.Context, localPath, remotePath string) error
}

// New builds the configured Provider. Returns nil, nil when archiving is
// disabled (provider "none" or unset).
func New(cfg *config.Config) (Provider, error) {
	switch cfg.ArchiveProvider {
	case "", "none":
		return nil, nil
	case "local":
		if cfg.ArchiveLocalPath == "" {
			return nil, fmt.Errorf("archive: archive_local_path is required for the local provider")
		}
		return NewLocalProvider(cfg.ArchiveLocalPath), nil
	case "s3":
		if cfg.ArchiveS3Bucket == "" {
			return nil, fmt.Errorf("archive: archive_s3_bucket is required for the s3 provider")
		}
		return NewS3Provider(cfg.ArchiveS3Bucket, cfg.ArchiveS3Region), nil
	case "azure":
		if cfg.ArchiveContainer == "" {
			return nil, fmt.Errorf("archive: archive_container is required for the azure provider")
		}
		return NewAzureProvider(cfg.ArchiveContainer), nil
	case "gcs":
		if cfg.ArchiveContainer == "" {
			return nil, fmt.Errorf("archive: archive_container is required for the gcs provider")
		}
		return NewGCSProvider(cfg.ArchiveContainer), nil
	case "b2":
		if cfg.ArchiveContainer == "" {
			return nil, fmt.Errorf("archive: archive_container is required for the b2 provider")
		}
		return NewB2Provider(cfg.ArchiveContainer), nil
	default:
		return nil, fmt.Errorf("archive: unknown archive_provider %q", cfg.ArchiveProvider)
	}
}

// ArchiveTask uploads a task's final.mp4, metadata.json, and frames.json
// (any that exist) to the provider under taskID/<filename>. Missing files
// are skipped rather than treated as an error, since a task concatenated
// without frame rows still produces final.mp4 and metadata.json.
func ArchiveTask(ctx context.Context, p Provider, outputDir, taskID string) error {
	if p == nil {
		return nil
	}
	for _, name := range []string{"final.mp4", "metadata.json", "frames.json"} {
		local := filepath.Join(outputDir, name)
		if _, err := os.Stat(local); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("archive: stat %s: %w", local, err)
		}
		remote := taskID + "/" + name
		if err := p.Upload(ctx, local, remote); err != nil {
			return fmt.Errorf("archive: upload %s: %w", name, err)
		}
		log.Info("archived file", "task_id", taskID, "file", name)
	}
	return nil
}
