// Package compression wraps the gzip and brotli codecs used to store and
// serve content. Both compressors run at their strongest setting.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

var (
	ErrCompression   = errors.New("compression failed")
	ErrDecompression = errors.New("decompression failed")
)

func CompressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %w", ErrCompression, err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: gzip: %w", ErrCompression, err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: gzip: %w", ErrCompression, err)
	}

	return buf.Bytes(), nil
}

func DecompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %w", ErrDecompression, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %w", ErrDecompression, err)
	}

	return out, nil
}

func CompressBrotli(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := brotli.NewWriterLevel(&buf, brotli.BestCompression)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: brotli: %w", ErrCompression, err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: brotli: %w", ErrCompression, err)
	}

	return buf.Bytes(), nil
}

func DecompressBrotli(data []byte) ([]byte, error) {
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: brotli: %w", ErrDecompression, err)
	}

	return out, nil
}
