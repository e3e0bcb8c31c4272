package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/pkg/mimetype"
)

var ErrPathTraversal = errors.New("path escapes static root")

// Dir serves files straight from disk on every request, so edits show up
// without a restart.
type Dir struct {
	root string
}

func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static root %s: %w", root, err)
	}
	return &Dir{root: abs}, nil
}

func (d *Dir) Root() string {
	return d.root
}

// Open reads the file for urlPath. A directory resolves to its index.html.
// Missing files report false with a nil error; paths leaving the root report
// ErrPathTraversal.
func (d *Dir) Open(urlPath string) (*entity.Content, bool, error) {
	filename := filepath.Join(d.root, filepath.FromSlash(strings.TrimLeft(urlPath, "/")))

	if filename != d.root && !strings.HasPrefix(filename, d.root+string(filepath.Separator)) {
		return nil, false, fmt.Errorf("%w: %s", ErrPathTraversal, urlPath)
	}

	info, err := os.Stat(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if info.IsDir() {
		filename = filepath.Join(filename, indexFile)
		info, err = os.Stat(filename)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, false, nil
			}
			return nil, false, err
		}
		if info.IsDir() {
			return nil, false, nil
		}
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	mime, _ := mimetype.ByFilename(filename)

	return &entity.Content{
		Bytes:       data,
		MIME:        mime,
		Compression: entity.CompressionRaw,
	}, true, nil
}
