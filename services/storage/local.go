package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "online-admission/errors"
	"online-admission/logger"
)

// Local stores objects as files below a base directory.
type Local struct {
	basePath string
}

// NewLocal creates basePath if needed.
func NewLocal(basePath string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error("Failed to create storage directory %s: %v", basePath, err)
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info("Local storage directory ensured: %s", basePath)
	return &Local{basePath: basePath}, nil
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", apperrors.E(apperrors.Invalid, fmt.Sprintf("invalid object key %q", key))
	}
	return filepath.Join(l.basePath, clean), nil
}

func (l *Local) Put(_ context.Context, key string, r io.Reader, _ string) error {
	dstPath, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("failed to create subdirectory: %w", err)
	}

	// write to a temp file so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save file content: %w", err)
	}
	if err := os.Rename(tmp.Name(), dstPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Info("File saved: %s", key)
	return nil
}

func (l *Local) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, apperrors.E(apperrors.NotFound, fmt.Sprintf("object %q not found", key))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

// Delete is idempotent.
func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		logger.Error("Failed to delete file %s: %v", p, err)
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
