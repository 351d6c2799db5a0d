package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

const uploadTimeout = 2 * time.Minute

// GCSStore uploads generated artifacts to a Cloud Storage bucket and hands
// out their public URLs.
type GCSStore struct {
	client    *storage.Client
	bucket    string
	projectID string
}

func NewGCSStore(ctx context.Context, bucket, projectID string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSStore{
		client:    client,
		bucket:    bucket,
		projectID: projectID,
	}, nil
}

// EnsureBucket lazily creates the artifact bucket. Two workers racing to
// create it is expected; the loser's conflict error is treated as success.
func (s *GCSStore) EnsureBucket(ctx context.Context) error {
	err := s.client.Bucket(s.bucket).Create(ctx, s.projectID, nil)
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusConflict {
		return nil
	}

	return fmt.Errorf("create bucket %s: %w", s.bucket, err)
}

func (s *GCSStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "image/png"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close artifact writer: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key), nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
