package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

var (
	// ErrUploadFailed means the backing service rejected the upload.
	ErrUploadFailed = errors.New("upload failed")
	// ErrMalformedURL means a URL handed to Delete does not match the
	// folder-prefixed pattern this gateway issues. A stored record pointing
	// somewhere the gateway never wrote indicates data corruption.
	ErrMalformedURL = errors.New("malformed object URL")
	// ErrDeleteFailed means the backend rejected the deletion and the object
	// state is uncertain.
	ErrDeleteFailed = errors.New("delete failed")
)

// ObjectStore stores raw image bytes under a logical folder and issues stable
// public URLs for them. A previously issued URL can be reversed back to the
// object and deleted.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, folder string) (string, error)
	Delete(ctx context.Context, objectURL string) error
}

// s3API is the slice of the S3 client this gateway uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds the settings for the S3-backed object store.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string // custom endpoint (MinIO etc.); empty for AWS
	PublicBaseURL string // base URL the bucket's objects resolve under
}

type s3Store struct {
	client        s3API
	bucket        string
	publicBaseURL string
}

// NewS3Store creates an S3-backed object store.
func NewS3Store(ctx context.Context, cfg S3Config) (ObjectStore, error) {
	if cfg.Bucket == "" || cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("object store requires a bucket and a public base URL")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Custom endpoints (MinIO, Ceph) want path-style addressing.
			o.UsePathStyle = true
		}
	})

	return &s3Store{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// newS3StoreWithClient is used by tests to inject a fake client.
func newS3StoreWithClient(client s3API, bucket, publicBaseURL string) *s3Store {
	return &s3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Upload stores data as an image under folder and returns the public URL of
// the stored object. The key is <folder>/<uuid>.<ext>, so Delete can reverse
// the URL later.
func (s *s3Store) Upload(ctx context.Context, data []byte, folder string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image body", ErrUploadFailed)
	}

	contentType := http.DetectContentType(data)
	key := fmt.Sprintf("%s/%s.%s", folder, uuid.NewString(), extForContentType(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s/%s: %w", ErrUploadFailed, s.bucket, key, err)
	}

	return s.publicBaseURL + "/" + key, nil
}

// Delete reverses objectURL to its storage key and removes the object. A
// missing object is treated as already deleted so concurrent deleters cannot
// wrongly retain a record.
func (s *s3Store) Delete(ctx context.Context, objectURL string) error {
	if !strings.HasPrefix(objectURL, s.publicBaseURL+"/") {
		return fmt.Errorf("%w: %q was not issued by this store", ErrMalformedURL, objectURL)
	}
	key, err := objectKeyFromURL(objectURL)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: delete %s/%s: %w", ErrDeleteFailed, s.bucket, key, err)
	}
	return nil
}

// Issued URLs end in /<folder>/<name>.<ext>; everything else is foreign.
var objectPathPattern = regexp.MustCompile(`/([^/]+)/([^/]+\.[A-Za-z0-9]+)$`)

// objectKeyFromURL derives the storage key from a previously issued URL.
func objectKeyFromURL(objectURL string) (string, error) {
	m := objectPathPattern.FindStringSubmatch(objectURL)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, objectURL)
	}
	return m[1] + "/" + m[2], nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	return errors.As(err, &noKey)
}

// extForContentType maps a sniffed image content type to a file extension.
// Unknown types fall back to jpg, which is what the source site serves.
func extForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}
