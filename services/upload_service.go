package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/sahilchouksey/byteboost-api/services/storage"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
)

// ObjectStore is the object storage used for course media
type ObjectStore interface {
	UploadExpiry() time.Duration
	PresignPut(key, contentType string) (string, error)
	PresignGet(key string, expiry time.Duration) (string, error)
	Head(ctx context.Context, key string) (*storage.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

var folderPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*(/[a-z0-9][a-z0-9_\-]*)*$`)

// UploadService hands out presigned urls for direct uploads to object storage
type UploadService struct {
	store ObjectStore // nil when R2 is not configured
	log   *logger.Logger
}

// NewUploadService creates a new upload service
func NewUploadService(store ObjectStore, log *logger.Logger) *UploadService {
	return &UploadService{store: store, log: log}
}

// PresignRequest asks for an upload url
type PresignRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required"`
	Folder      string `json:"folder" validate:"omitempty,max=100"`
}

// PresignedUpload is a presigned PUT url and the key it writes to
type PresignedUpload struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// CompleteUploadRequest confirms that the client finished an upload
type CompleteUploadRequest struct {
	Key string `json:"key" validate:"required,max=500"`
}

// UploadedFile describes a stored object
type UploadedFile struct {
	FileKey     string `json:"file_key"`
	FileURL     string `json:"file_url"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// DownloadURL is a presigned GET url
type DownloadURL struct {
	DownloadURL string `json:"download_url"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *UploadService) objects() (ObjectStore, error) {
	if s.store == nil {
		return nil, apperr.MissingConfig("R2_BUCKET")
	}
	return s.store, nil
}

// Presign returns a PUT url for a new object under folder
func (s *UploadService) Presign(ctx context.Context, req PresignRequest) (*PresignedUpload, error) {
	if err := validateRequest("upload", req); err != nil {
		return nil, err
	}
	if !storage.IsAllowedContentType(req.ContentType) {
		return nil, apperr.Validation("upload", "content_type", "allowed", "content type "+req.ContentType+" is not allowed")
	}
	folder := strings.Trim(strings.ToLower(req.Folder), "/")
	if folder == "" {
		folder = "uploads"
	}
	if !folderPattern.MatchString(folder) {
		return nil, apperr.Validation("upload", "folder", "folder", "folder may only contain lowercase letters, digits, dashes and underscores")
	}

	store, err := s.objects()
	if err != nil {
		return nil, err
	}
	key := storage.GenerateKey(folder, req.Filename)
	url, err := store.PresignPut(key, req.ContentType)
	if err != nil {
		return nil, err
	}
	return &PresignedUpload{
		UploadURL: url,
		Key:       key,
		ExpiresIn: int(store.UploadExpiry() / time.Second),
	}, nil
}

// Complete checks that the object exists and returns its public url
func (s *UploadService) Complete(ctx context.Context, req CompleteUploadRequest) (*UploadedFile, error) {
	if err := validateRequest("upload", req); err != nil {
		return nil, err
	}
	key, err := cleanKey(req.Key)
	if err != nil {
		return nil, err
	}
	store, err := s.objects()
	if err != nil {
		return nil, err
	}

	info, err := store.Head(ctx, key)
	if err != nil {
		return nil, err
	}
	return &UploadedFile{
		FileKey:     key,
		FileURL:     store.PublicURL(key),
		ContentType: storage.ContentTypeFor(key),
		SizeBytes:   info.Size,
	}, nil
}

// Delete removes an object
func (s *UploadService) Delete(ctx context.Context, rawKey string) error {
	key, err := cleanKey(rawKey)
	if err != nil {
		return err
	}
	store, err := s.objects()
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, key); err != nil {
		return err
	}
	s.log.Info("deleted object", "key", key)
	return nil
}

// DownloadURL returns a presigned GET url valid for expiresIn, clamped to the allowed range
func (s *UploadService) DownloadURL(ctx context.Context, rawKey string, expiresIn time.Duration) (*DownloadURL, error) {
	key, err := cleanKey(rawKey)
	if err != nil {
		return nil, err
	}
	store, err := s.objects()
	if err != nil {
		return nil, err
	}

	expiry := storage.ClampDownloadExpiry(expiresIn)
	url, err := store.PresignGet(key, expiry)
	if err != nil {
		return nil, err
	}
	return &DownloadURL{DownloadURL: url, ExpiresIn: int(expiry / time.Second)}, nil
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", apperr.Validation("upload", "key", "required", "key is required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return "", apperr.Validation("upload", "key", "path", "key must not contain relative segments")
		}
	}
	return key, nil
}
