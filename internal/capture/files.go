package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/types"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true}

// FileSource replays still images as a camera feed.
type FileSource struct {
	paths []string
	next  int
}

// NewFileSource replays paths in the given order.
func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

// OpenDir replays every image in dir, sorted by file name.
func OpenDir(dir string) (*FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.New(apperrors.ResourceUnavailable, "cannot open frames directory", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return NewFileSource(paths...), nil
}

// Len is the number of frames the source will serve.
func (s *FileSource) Len() int { return len(s.paths) }

func (s *FileSource) Read(ctx context.Context) (types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return types.Frame{}, err
	}
	if s.next >= len(s.paths) {
		return types.Frame{}, io.EOF
	}
	path := s.paths[s.next]
	idx := s.next
	s.next++

	img, err := LoadImage(path)
	if err != nil {
		return types.Frame{}, err
	}
	return types.Frame{Index: idx, Image: img}, nil
}

func (s *FileSource) Close() error { return nil }

// LoadImage decodes a jpeg, png, bmp or webp file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
