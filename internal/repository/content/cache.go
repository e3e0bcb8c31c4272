package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/pkg/logger"
	"github.com/jaennil/tileserve/pkg/mimetype"
)

const indexFile = "index.html"

// Lookup is the read side of a Cache handed to request handlers.
type Lookup interface {
	Get(path string) (*entity.Content, bool)
}

// Cache maps normalized URL paths to content. It is filled during startup and
// only read afterwards, so lookups take no lock. Inserting an existing path
// replaces the previous entry.
type Cache struct {
	entries map[string]*entity.Content
	logger  logger.Logger
}

var _ Lookup = (*Cache)(nil)

func NewCache(l logger.Logger) *Cache {
	return &Cache{
		entries: make(map[string]*entity.Content),
		logger:  l,
	}
}

func (c *Cache) Get(p string) (*entity.Content, bool) {
	v, ok := c.entries[NormalizePath(p)]
	return v, ok
}

func (c *Cache) Len() int {
	return len(c.entries)
}

// Insert registers data under p. A path ending in /index.html is also
// reachable as its directory, with and without the trailing slash.
func (c *Cache) Insert(p string, data []byte, mime string, compression entity.Compression) {
	p = NormalizePath(p)
	if compression == "" {
		compression = entity.CompressionRaw
	}

	e := &entity.Content{
		Bytes:       data,
		MIME:        mime,
		Compression: compression,
	}

	c.set(p, e)

	if strings.HasSuffix(p, "/"+indexFile) {
		dir := strings.TrimSuffix(p, indexFile)
		c.set(dir, e)
		if dir != "/" {
			c.set(strings.TrimSuffix(dir, "/"), e)
		}
	}
}

func (c *Cache) set(p string, e *entity.Content) {
	if _, exists := c.entries[p]; exists {
		c.logger.Debug("replacing cache entry", "path", p)
	} else {
		c.logger.Debug("add to cache", "path", p, "size", len(e.Bytes), "compression", e.Compression)
	}
	c.entries[p] = e
}

// InsertDirectory walks dir and registers every file below urlPrefix.
// A missing directory is not an error.
func (c *Cache) InsertDirectory(urlPrefix, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("static folder does not exist, skipping", "dir", dir)
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	c.logger.Debug("cache static files from folder", "dir", dir, "url", urlPrefix)

	return c.InsertFS(urlPrefix, os.DirFS(dir))
}

// InsertFS registers every file of fsys below urlPrefix. Names starting with
// a dot are skipped. A trailing .br or .gz marks the file as stored with that
// compression; the suffix is dropped from both the URL and the name used to
// guess the MIME type.
func (c *Cache) InsertFS(urlPrefix string, fsys fs.FS) error {
	return c.walk(urlPrefix, fsys, ".")
}

func (c *Cache) walk(urlPrefix string, fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		filePath := path.Join(dir, name)
		urlPath := urlPrefix + name

		if entry.IsDir() {
			if err := c.walk(urlPath, fsys, filePath); err != nil {
				return err
			}
			continue
		}

		compression := entity.CompressionRaw
		switch {
		case strings.HasSuffix(name, ".br"):
			compression = entity.CompressionBrotli
		case strings.HasSuffix(name, ".gz"):
			compression = entity.CompressionGzip
		}

		if compression != entity.CompressionRaw {
			ext := path.Ext(name)
			name = strings.TrimSuffix(name, ext)
			urlPath = strings.TrimSuffix(urlPath, ext)
		}

		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filePath, err)
		}

		mime, known := mimetype.ByFilename(name)
		if !known {
			c.logger.Warn("can not guess MIME for file", "file", filePath)
		}

		c.Insert(urlPath, data, mime, compression)
	}

	return nil
}

// NormalizePath resolves dot segments and duplicate slashes while keeping a
// trailing slash, so "/a/" and "/a" stay distinct keys.
func NormalizePath(p string) string {
	cleaned := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}
