package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Disk stores objects under a local directory served by the web server.
type Disk struct {
	dir       string
	publicURL string
}

func NewDisk(dir, publicURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Disk{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Dir is the root directory, mounted by the router at the public URL.
func (d *Disk) Dir() string {
	return d.dir
}

func (d *Disk) Save(_ context.Context, key, _ string, r io.Reader) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	full := filepath.Join(d.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmp := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(filepath.Join(d.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (d *Disk) URL(key string) string {
	return d.publicURL + "/" + key
}
