// Package storage keeps the documents a school distributes to its students.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"online-admission/config"
)

// Storage stores objects under slash separated keys.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// Get returns a NotFound error when key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New builds the Storage selected by STORAGE_DRIVER.
func New(cfg config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case "", "local":
		return NewLocal(cfg.StorageDir)
	case "oss":
		return NewOSS(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey, cfg.OSSBucket)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// DocumentKey is the object key of a school's document of the given kind.
func DocumentKey(schoolID, kind string) string {
	return path.Join("schools", safePart(schoolID), "documents", safePart(kind)+".pdf")
}

func safePart(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "..", "_")
	if s == "" {
		return "_"
	}
	return s
}
