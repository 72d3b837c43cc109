/*
Package storage provides the dashboard's object storage: a SigV4-signed client for
S3-compatible stores and the facade UI-facing code calls.

The Client returns an explicit error from every operation. The Service keeps the
facade contract: UploadFile reports failures to the caller, while DeleteFile,
TestConnection, ListFiles and FileExists are best-effort and only log failures.
*/
package storage

import (
	"context"
	"time"

	"wadash/internal/pkg/logx"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	Timeout           time.Duration
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// UploadFile stores file under key and returns the object URL.
	UploadFile(ctx context.Context, key string, file File, opts UploadOptions) (string, error)

	// DeleteFile removes the object at objectURL and reports whether it succeeded.
	DeleteFile(ctx context.Context, objectURL string) bool

	// TestConnection reports whether the store answers at all.
	TestConnection(ctx context.Context) bool

	// ListFiles returns the objects under prefix, or an empty list on failure.
	ListFiles(ctx context.Context, prefix string) []ObjectInfo

	// FileExists reports whether objectURL answers an unsigned HEAD with success.
	FileExists(ctx context.Context, objectURL string) bool

	// KeyFor returns the object key when objectURL points into the configured bucket.
	KeyFor(objectURL string) (string, bool)
}

// Service binds a Client to static deployment configuration.
type Service struct {
	client *Client
}

var _ StorageService = (*Service)(nil)

// NewStorageService is the factory function for StorageService.
func NewStorageService(cfg ServiceConfig, opts ...Option) (*Service, error) {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Service{client: client}, nil
}

// Client exposes the underlying client for callers that want explicit errors.
func (s *Service) Client() *Client {
	return s.client
}

func (s *Service) UploadFile(ctx context.Context, key string, file File, opts UploadOptions) (string, error) {
	objectURL, err := s.client.Upload(ctx, key, file, opts)
	if err != nil {
		logx.Error(err, "Object upload failed", "key", key, "size", len(file.Data))
		return "", err
	}
	logx.Info("Object uploaded", "key", key, "size", len(file.Data))
	return objectURL, nil
}

func (s *Service) DeleteFile(ctx context.Context, objectURL string) bool {
	if err := s.client.Delete(ctx, objectURL); err != nil {
		logx.Warn("Object delete failed", "url", objectURL, "outcome", Outcome(err), "error", err.Error())
		return false
	}
	return true
}

func (s *Service) TestConnection(ctx context.Context) bool {
	if err := s.client.Ping(ctx); err != nil {
		logx.Warn("Storage connectivity check failed", "bucket", s.client.Bucket(), "outcome", Outcome(err), "error", err.Error())
		return false
	}
	return true
}

func (s *Service) ListFiles(ctx context.Context, prefix string) []ObjectInfo {
	objects, err := s.client.List(ctx, prefix)
	if err != nil {
		logx.Warn("Object listing failed", "prefix", prefix, "outcome", Outcome(err), "error", err.Error())
		return []ObjectInfo{}
	}
	return objects
}

func (s *Service) FileExists(ctx context.Context, objectURL string) bool {
	exists, err := s.client.Exists(ctx, objectURL)
	if err != nil {
		logx.Warn("Object existence check failed", "url", objectURL, "outcome", Outcome(err), "error", err.Error())
		return false
	}
	return exists
}

func (s *Service) KeyFor(objectURL string) (string, bool) {
	key, err := s.client.KeyFromURL(objectURL)
	return key, err == nil
}
