// Package tiles holds the tile containers the server can read from and the
// caches that can sit in front of them.
package tiles

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/pkg/mimetype"
)

var ErrUnsupportedSource = errors.New("unsupported tile source")

type Header struct {
	Format      string
	MIME        string
	Compression entity.Compression
	// Bounds is west, south, east, north in degrees, or nil when unknown.
	Bounds []float64
}

// Source is a read-only tile container addressed in XYZ order.
// Tile reports false when the container has no tile at the coordinate.
type Source interface {
	Header(ctx context.Context) (Header, error)
	Metadata(ctx context.Context) (string, error)
	Tile(ctx context.Context, z, x, y int) ([]byte, bool, error)
	Close() error
}

func NewHeader(format, compression string) (Header, error) {
	c, err := entity.ParseCompression(compression)
	if err != nil {
		return Header{}, err
	}

	return Header{
		Format:      format,
		MIME:        mimetype.ByFormat(format),
		Compression: c,
	}, nil
}

// FlipY converts a row between XYZ and TMS numbering.
func FlipY(z, y int) int {
	return (1 << z) - 1 - y
}

func parseBounds(s string) []float64 {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil
	}

	bounds := make([]float64, 0, 4)
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil
		}
		bounds = append(bounds, v)
	}
	return bounds
}
