// Package storage persists uploaded gallery images on local disk or S3.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/choplife/choplifeib/internal/config"
)

var (
	ErrUnsupportedType = errors.New("only JPEG, PNG, WebP and GIF images are accepted")
	ErrTooLarge        = errors.New("image exceeds the maximum upload size")
	ErrInvalidKey      = errors.New("invalid storage key")
	ErrEmptyUpload     = errors.New("uploaded file is empty")
)

// imageExtensions maps accepted content types to file extensions.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Storage stores objects under opaque keys and knows their public URL.
type Storage interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New returns the backend selected by config.
func New(cfg config.Storage) (Storage, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		return NewS3(cfg)
	case config.StorageDriverDisk, "":
		return NewDisk(cfg.Dir, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// NewKey returns a fresh gallery key such as "gallery/<uuid>.jpg".
func NewKey(contentType string) (string, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	return "gallery/" + uuid.NewString() + ext, nil
}

// Upload is an accepted image ready to be stored.
type Upload struct {
	Key         string
	ContentType string
	Size        int64
	data        []byte
}

// PrepareUpload reads at most maxBytes from r, sniffs the content type and
// assigns a key. The declared type from the client is ignored.
func PrepareUpload(r io.Reader, maxBytes int64) (*Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	key, err := NewKey(contentType)
	if err != nil {
		return nil, err
	}
	return &Upload{Key: key, ContentType: contentType, Size: int64(len(data)), data: data}, nil
}

// Store writes a prepared upload to s and returns its public URL.
func Store(ctx context.Context, s Storage, u *Upload) (string, error) {
	if err := s.Save(ctx, u.Key, u.ContentType, bytes.NewReader(u.data)); err != nil {
		return "", err
	}
	return s.URL(u.Key), nil
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	return path.Clean(key) == key && !strings.HasPrefix(key, "..")
}
