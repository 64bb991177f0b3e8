package imagine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Storage is an interface for exporting images out of the history, the
// equivalent of a browser download. Implementations can wrap local disks or
// cloud buckets.
type Storage interface {
	// SaveFile saves image data under path and returns a locator for it.
	// The contentType is the image's MIME type (e.g., "image/png").
	SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error)
}

// StorageResult contains information about an exported image.
type StorageResult struct {
	// URL is where the image can be accessed
	URL string

	// Path is the storage path/key the image was saved under
	Path string

	// Size is the number of bytes saved
	Size int
}

// DownloadFileName is the file name an image is exported under.
func DownloadFileName(id string) string {
	return "imagine-ai-" + id + "." + extensionFromMIME(MIMETypePNG)
}

// SaveToStorage decodes the image reference of img and saves it to storage
// under DownloadFileName(img.ID).
func SaveToStorage(ctx context.Context, storage Storage, img GeneratedImage) (*StorageResult, error) {
	if storage == nil {
		return nil, ErrStorageNotConfigured
	}

	mimeType, data, err := DecodeDataURI(img.URL)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", img.ID, err)
	}

	path := DownloadFileName(img.ID)
	url, err := storage.SaveFile(ctx, data, path, mimeType)
	if err != nil {
		return nil, fmt.Errorf("saving %s: %w", path, err)
	}

	return &StorageResult{
		URL:  url,
		Path: path,
		Size: len(data),
	}, nil
}

// DirStorage saves files into a local directory.
type DirStorage struct {
	Dir string
}

var _ Storage = (*DirStorage)(nil)

// SaveFile writes data to Dir/path and returns the absolute file path.
func (s *DirStorage) SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := filepath.Join(s.Dir, filepath.Clean("/"+path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(full)
	if err != nil {
		return full, nil
	}
	return abs, nil
}

// extensionFromMIME returns a file extension for common image MIME types.
func extensionFromMIME(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
