package adapter

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Storage stores FAQ attachment images and hands back a public URL.
type Storage interface {
	// Upload saves the image under key and returns its public URL
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// storageClient implements Storage interface using Cloud Storage
type storageClient struct {
	bucketName string
	client     *storage.Client
}

// NewStorage creates a new Cloud Storage client
func NewStorage(ctx context.Context, bucketName string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *storageClient) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write to storage", goerr.Value("key", key))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to write to storage", goerr.Value("key", key))
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key), nil
}
