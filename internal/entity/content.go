package entity

import (
	"errors"
	"fmt"
)

type Compression string

const (
	CompressionRaw    Compression = "raw"
	CompressionGzip   Compression = "gzip"
	CompressionBrotli Compression = "br"
)

var ErrUnknownCompression = errors.New("unknown compression")

func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "", CompressionRaw:
		return CompressionRaw, nil
	case CompressionGzip:
		return CompressionGzip, nil
	case CompressionBrotli:
		return CompressionBrotli, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}

func (c Compression) String() string {
	return string(c)
}

// Content is a servable unit: bytes at rest, their MIME type and the
// compression they are stored in. Bytes must not be modified once the value
// has been handed to a cache or response.
type Content struct {
	Bytes       []byte
	MIME        string
	Compression Compression
}
