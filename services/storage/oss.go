package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	apperrors "online-admission/errors"
	"online-admission/logger"
)

// OSS stores objects in an Alibaba Cloud OSS bucket.
type OSS struct {
	bucket *oss.Bucket
}

func NewOSS(endpoint, accessKey, secretKey, bucketName string) (*OSS, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" || bucketName == "" {
		return nil, fmt.Errorf("missing env: ALI_OSS_ENDPOINT/ACCESS_KEY/SECRET_KEY/BUCKET")
	}

	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bkt, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	if loc, err := client.GetBucketLocation(bucketName); err != nil {
		var se oss.ServiceError
		if errors.As(err, &se) && se.StatusCode == 403 {
			logger.Warn("Skipping OSS location check for bucket %s: access denied", bucketName)
		} else {
			return nil, fmt.Errorf("verify bucket: %w", err)
		}
	} else {
		logger.Info("OSS bucket %s location: %s", bucketName, loc)
	}

	return &OSS{bucket: bkt}, nil
}

func (s *OSS) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentDisposition("inline"),
	}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := s.bucket.PutObject(key, r, opts...); err != nil {
		return fmt.Errorf("oss put %s: %w", key, err)
	}
	return nil
}

func (s *OSS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.E(apperrors.NotFound, fmt.Sprintf("object %q not found", key))
		}
		return nil, fmt.Errorf("oss get %s: %w", key, err)
	}
	return body, nil
}

func (s *OSS) Delete(ctx context.Context, key string) error {
	return s.bucket.DeleteObject(key, oss.WithContext(ctx))
}

func isNotFound(err error) bool {
	var se oss.ServiceError
	if errors.As(err, &se) {
		return se.StatusCode == 404
	}
	return false
}
