package tiles

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const metadataFile = "metadata.json"

// FilesystemSource reads tiles laid out as <root>/<z>/<x>/<y>.<format>.
type FilesystemSource struct {
	root   string
	header Header
}

var _ Source = (*FilesystemSource)(nil)

func NewFilesystemSource(root string, header Header) (*FilesystemSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open tile directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrUnsupportedSource, root)
	}

	return &FilesystemSource{
		root:   root,
		header: header,
	}, nil
}

func (s *FilesystemSource) Header(ctx context.Context) (Header, error) {
	return s.header, nil
}

// Metadata returns <root>/metadata.json, or an empty object without one.
func (s *FilesystemSource) Metadata(ctx context.Context) (string, error) {
	content, err := os.ReadFile(filepath.Join(s.root, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "{}", nil
		}
		return "", err
	}
	return string(content), nil
}

func (s *FilesystemSource) Tile(ctx context.Context, z, x, y int) ([]byte, bool, error) {
	content, err := os.ReadFile(s.keyToPath(z, x, y))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return content, true, nil
}

func (s *FilesystemSource) Close() error {
	return nil
}

func (s *FilesystemSource) keyToPath(z, x, y int) string {
	return filepath.Join(s.root, fmt.Sprintf("%d/%d/%d.%s", z, x, y, s.header.Format))
}
