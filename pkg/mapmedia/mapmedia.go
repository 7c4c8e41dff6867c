// Package mapmedia stores network map background images on disk, one
// file per map id.
package mapmedia

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned for uploads that are not PNG or JPEG.
var ErrUnsupportedType = errors.New("unsupported image type")

// ErrNoImage is returned when a map has no stored image.
var ErrNoImage = errors.New("no image")

var extByContentType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

// Store keeps map images under a single directory.
type Store struct {
	dir string
}

// NewStore creates the media directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes a map's image, replacing any previous one (including one
// with a different extension). Returns ErrUnsupportedType for anything
// other than PNG or JPEG.
func (s *Store) Save(mapID, contentType string, r io.Reader) error {
	ext, ok := extByContentType[strings.ToLower(contentType)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	if err := s.Delete(mapID); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(s.dir, mapID+ext))
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// Open returns the map's image file and its content type, or ErrNoImage.
func (s *Store) Open(mapID string) (*os.File, string, error) {
	for contentType, ext := range extByContentType {
		f, err := os.Open(filepath.Join(s.dir, mapID+ext))
		if err == nil {
			return f, contentType, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("failed to open image: %w", err)
		}
	}
	return nil, "", ErrNoImage
}

// Delete removes a map's image if present.
func (s *Store) Delete(mapID string) error {
	for _, ext := range extByContentType {
		err := os.Remove(filepath.Join(s.dir, mapID+ext))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove image: %w", err)
		}
	}
	return nil
}
