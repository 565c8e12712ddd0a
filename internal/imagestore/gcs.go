// Package imagestore keeps uploaded scan photos in Cloud Storage.
package imagestore

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	gcsstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// ImageStore persists an image and returns a URL it can be fetched from.
type ImageStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// GCSStore writes images to a Cloud Storage bucket.
type GCSStore struct {
	bucket     *gcsstorage.BucketHandle
	bucketName string
	prefix     string
}

// NewGCSStore creates an image store writing under prefix in bucketName.
func NewGCSStore(client *gcsstorage.Client, bucketName, prefix string) *GCSStore {
	return &GCSStore{
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
	}
}

// Put uploads data under a fresh object name and returns its public URL.
func (s *GCSStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	name := objectName(s.prefix, contentType)

	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", name, err)
	}

	return publicURL(s.bucketName, name), nil
}

func objectName(prefix, contentType string) string {
	return path.Join(prefix, uuid.NewString()+extensionForType(contentType))
}

func publicURL(bucket, object string) string {
	u := url.URL{
		Scheme: "https",
		Host:   "storage.googleapis.com",
		Path:   "/" + bucket + "/" + object,
	}
	return u.String()
}

// extensionForType maps an image MIME type to a file extension.
func extensionForType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/heic":
		return ".heic"
	default:
		return ".bin"
	}
}
