package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
)

const (
	// UploadURLExpiry is the lifetime of a presigned PUT url
	UploadURLExpiry = 900 * time.Second
	// DefaultDownloadExpiry is used when the caller does not ask for a lifetime
	DefaultDownloadExpiry = time.Hour
	// MaxDownloadExpiry is the longest lifetime S3 signature v4 allows
	MaxDownloadExpiry = 7 * 24 * time.Hour
)

// AllowedContentTypes groups the upload content types by kind
var AllowedContentTypes = map[string][]string{
	"video":    {"video/mp4", "video/webm", "video/quicktime"},
	"image":    {"image/jpeg", "image/png", "image/gif", "image/webp"},
	"document": {"application/pdf", "application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
}

// R2Client handles Cloudflare R2 operations over the S3 API
type R2Client struct {
	s3Client     *s3.S3
	bucket       string
	publicURL    string
	uploadExpiry time.Duration
}

// R2Config holds configuration for the R2 client
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string // defaults to https://<account>.r2.cloudflarestorage.com
	PublicURL       string
	UploadExpiry    time.Duration
}

// ObjectInfo is the metadata returned by Head
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// NewR2Client creates a new R2 client
func NewR2Client(config R2Config) (*R2Client, error) {
	if config.AccessKeyID == "" {
		return nil, apperr.MissingConfig("R2_ACCESS_KEY_ID")
	}
	if config.SecretAccessKey == "" {
		return nil, apperr.MissingConfig("R2_SECRET_ACCESS_KEY")
	}
	if config.Bucket == "" {
		return nil, apperr.MissingConfig("R2_BUCKET")
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		if config.AccountID == "" {
			return nil, apperr.MissingConfig("R2_ENDPOINT")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", config.AccountID)
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKeyID,
			config.SecretAccessKey,
			"",
		),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String("auto"),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create R2 session: %w", err)
	}

	expiry := config.UploadExpiry
	if expiry <= 0 {
		expiry = UploadURLExpiry
	}

	return &R2Client{
		s3Client:     s3.New(sess),
		bucket:       config.Bucket,
		publicURL:    strings.TrimRight(config.PublicURL, "/"),
		uploadExpiry: expiry,
	}, nil
}

// UploadExpiry returns the lifetime of presigned PUT urls
func (r *R2Client) UploadExpiry() time.Duration {
	return r.uploadExpiry
}

// PresignPut returns a url the client can PUT the object to directly
func (r *R2Client) PresignPut(key, contentType string) (string, error) {
	req, _ := r.s3Client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})

	url, err := req.Presign(r.uploadExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign upload URL: %w", err)
	}
	return url, nil
}

// PresignGet generates a presigned download url valid for expiry
func (r *R2Client) PresignGet(key string, expiry time.Duration) (string, error) {
	req, _ := r.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign download URL: %w", err)
	}
	return url, nil
}

// Head returns object metadata, or apperr.ErrNotFound when the key does not exist
func (r *R2Client) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := r.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("object")
		}
		return nil, fmt.Errorf("failed to head object: %w", err)
	}

	info := &ObjectInfo{
		Key:         key,
		Size:        aws.Int64Value(out.ContentLength),
		ContentType: aws.StringValue(out.ContentType),
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (r *R2Client) Delete(ctx context.Context, key string) error {
	_, err := r.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL returns the public url for key
func (r *R2Client) PublicURL(key string) string {
	return r.publicURL + "/" + strings.TrimLeft(key, "/")
}

func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}

// IsAllowedContentType reports whether uploads of contentType are accepted
func IsAllowedContentType(contentType string) bool {
	for _, types := range AllowedContentTypes {
		for _, t := range types {
			if t == contentType {
				return true
			}
		}
	}
	return false
}

// GenerateKey generates a unique key <folder>/<uuid>.<ext> for filename
func GenerateKey(folder, filename string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = "uploads"
	}
	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = filename[i+1:]
	}
	return fmt.Sprintf("%s/%s.%s", folder, uuid.New().String(), ext)
}

// ContentTypeFor guesses the content type of key from its extension
func ContentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return strings.SplitN(ct, ";", 2)[0]
	}
	switch strings.ToLower(path.Ext(key)) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".webp":
		return "image/webp"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}

// ClampDownloadExpiry applies the default and maximum download lifetimes
func ClampDownloadExpiry(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultDownloadExpiry
	}
	if d > MaxDownloadExpiry {
		return MaxDownloadExpiry
	}
	return d
}
