// Package storage keeps uploaded photos and generated report PDFs in a
// bucket or on local disk.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/xelth-com/cspsgo/internal/config"
)

// Object identifies a stored file
type Object struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// FileStorage is implemented by every storage backend
type FileStorage interface {
	Upload(ctx context.Context, data []byte, folder, filename, contentType string) (*Object, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by cfg.Driver
func New(ctx context.Context, cfg config.StorageConfig) (FileStorage, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	case "s3":
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			Endpoint:      cfg.Endpoint,
			Prefix:        cfg.Prefix,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	case "gcs":
		return NewGCSStore(ctx, GCSStoreConfig{
			Bucket:        cfg.Bucket,
			Prefix:        cfg.Prefix,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// objectKey builds a unique key under folder, keeping the file extension
func objectKey(prefix, folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return prefix + path.Join(folder, uuid.NewString()+ext)
}

// publicURL joins base and key with exactly one slash
func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
