package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/jaennil/tileserve/internal/compression"
	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/pkg/logger"
	"github.com/jaennil/tileserve/pkg/metrics"
)

// Accept lists the content codings a client can decode besides identity.
type Accept struct {
	Gzip   bool
	Brotli bool
}

// ParseAcceptEncoding matches codings by substring and ignores q-values.
func ParseAcceptEncoding(header string) Accept {
	header = strings.ToLower(header)
	return Accept{
		Gzip:   strings.Contains(header, "gzip"),
		Brotli: strings.Contains(header, "br"),
	}
}

func (a Accept) accepts(c entity.Compression) bool {
	switch c {
	case entity.CompressionRaw:
		return true
	case entity.CompressionGzip:
		return a.Gzip
	case entity.CompressionBrotli:
		return a.Brotli
	}
	return false
}

// Decide picks the compression to respond with for content stored as stored.
//
// Acceptable compressed content is sent as is. Otherwise the fast policy
// (optimal == false) falls back to raw, and the optimal policy compresses to
// br, then gzip, whichever the client accepts first. Raw content is always
// acceptable but is still compressed under the optimal policy.
func Decide(stored entity.Compression, accept Accept, optimal bool) entity.Compression {
	if accept.accepts(stored) && !(stored == entity.CompressionRaw && optimal) {
		return stored
	}
	if !optimal {
		return entity.CompressionRaw
	}

	switch {
	case accept.Brotli:
		return entity.CompressionBrotli
	case accept.Gzip:
		return entity.CompressionGzip
	}
	return entity.CompressionRaw
}

type TranscodeUseCase struct {
	optimal bool
	logger  logger.Logger
}

func NewTranscodeUseCase(optimal bool, l logger.Logger) *TranscodeUseCase {
	return &TranscodeUseCase{
		optimal: optimal,
		logger:  l,
	}
}

// Transcode returns content in the compression Decide picks. The input is
// returned unchanged when no conversion is needed; otherwise a new Content is
// built and the input is left untouched.
func (uc *TranscodeUseCase) Transcode(content *entity.Content, accept Accept) (*entity.Content, error) {
	stored := content.Compression
	if stored == "" {
		stored = entity.CompressionRaw
	}

	target := Decide(stored, accept, uc.optimal)
	if target == stored {
		return content, nil
	}

	start := time.Now()

	data, err := decompress(content.Bytes, stored)
	if err != nil {
		return nil, err
	}

	switch target {
	case entity.CompressionBrotli:
		data, err = compression.CompressBrotli(data)
	case entity.CompressionGzip:
		data, err = compression.CompressGzip(data)
	}
	if err != nil {
		return nil, err
	}

	metrics.TranscodeDuration.Observe(time.Since(start).Seconds())
	metrics.Transcodes.WithLabelValues(stored.String(), target.String()).Inc()

	uc.logger.Debug("transcoded content", "from", stored, "to", target, "in", len(content.Bytes), "out", len(data))

	return &entity.Content{
		Bytes:       data,
		MIME:        content.MIME,
		Compression: target,
	}, nil
}

func decompress(data []byte, c entity.Compression) ([]byte, error) {
	switch c {
	case entity.CompressionRaw:
		return data, nil
	case entity.CompressionGzip:
		return compression.DecompressGzip(data)
	case entity.CompressionBrotli:
		return compression.DecompressBrotli(data)
	}
	return nil, fmt.Errorf("%w: %q", entity.ErrUnknownCompression, c)
}
