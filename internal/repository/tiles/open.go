package tiles

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jaennil/tileserve/pkg/logger"
)

type Options struct {
	// Source is an *.mbtiles file, an http(s) URL template or a directory.
	Source string
	// Format and Compression describe directory and upstream tiles; MBTiles
	// files carry their own.
	Format      string
	Compression string
	Timeout     time.Duration
}

func Open(opts Options, l logger.Logger) (Source, error) {
	src := opts.Source
	l = l.With("source", src)

	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		header, err := NewHeader(opts.Format, opts.Compression)
		if err != nil {
			return nil, err
		}
		l.Info("using upstream tile source")
		return NewUpstreamSource(src, header, opts.Timeout, l), nil

	case strings.HasSuffix(strings.ToLower(src), ".mbtiles"):
		return OpenMBTiles(src, l)
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedSource, src, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, src)
	}

	header, err := NewHeader(opts.Format, opts.Compression)
	if err != nil {
		return nil, err
	}
	l.Info("using tile directory")
	return NewFilesystemSource(src, header)
}
