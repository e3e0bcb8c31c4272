package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/internal/repository/tiles"
	"github.com/jaennil/tileserve/internal/style"
	"github.com/jaennil/tileserve/pkg/logger"
	"github.com/jaennil/tileserve/pkg/metrics"
	"github.com/jaennil/tileserve/pkg/mimetype"
)

// DefaultLayer is the only layer name the server publishes.
const DefaultLayer = "default"

// coordinates past this zoom overflow the y flip and exist in no container
const maxZoom = 30

var jsonMIME = mimetype.ByFormat("json")

// TileUseCase binds one tile source to the documents describing it. Header
// and metadata are read once on construction.
type TileUseCase struct {
	source    tiles.Source
	header    tiles.Header
	metadata  string
	generator style.Generator
	styleOpts style.Options
	tms       bool
	logger    logger.Logger
}

func NewTileUseCase(
	ctx context.Context,
	source tiles.Source,
	generator style.Generator,
	styleOpts style.Options,
	tms bool,
	l logger.Logger,
) (*TileUseCase, error) {
	header, err := source.Header(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile header: %w", err)
	}

	metadata, err := source.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile metadata: %w", err)
	}
	if metadata == "" {
		metadata = "{}"
	}

	styleOpts.Format = header.Format
	styleOpts.Bounds = header.Bounds

	l.Info("tile layer ready",
		"layer", DefaultLayer,
		"format", header.Format,
		"compression", header.Compression,
		"tms", tms,
	)

	return &TileUseCase{
		source:    source,
		header:    header,
		metadata:  metadata,
		generator: generator,
		styleOpts: styleOpts,
		tms:       tms,
		logger:    l,
	}, nil
}

// Tile returns the tile at XYZ coordinates, or false when the source has none.
func (uc *TileUseCase) Tile(ctx context.Context, z, x, y int) (*entity.Content, bool, error) {
	if z > maxZoom {
		return nil, false, nil
	}
	if uc.tms {
		y = tiles.FlipY(z, y)
	}

	start := time.Now()
	data, exists, err := uc.source.Tile(ctx, z, x, y)
	metrics.TileSourceLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, false, fmt.Errorf("failed to get tile %d/%d/%d: %w", z, x, y, err)
	}
	if !exists {
		return nil, false, nil
	}

	return &entity.Content{
		Bytes:       data,
		MIME:        uc.header.MIME,
		Compression: uc.header.Compression,
	}, true, nil
}

func (uc *TileUseCase) Metadata() *entity.Content {
	return jsonContent([]byte(uc.metadata))
}

func (uc *TileUseCase) Style() (*entity.Content, error) {
	doc, err := uc.generator.Generate(uc.metadata, uc.styleOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate style: %w", err)
	}
	return jsonContent([]byte(doc)), nil
}

// Index lists the published layer names.
func (uc *TileUseCase) Index() (*entity.Content, error) {
	data, err := json.Marshal([]string{DefaultLayer})
	if err != nil {
		return nil, err
	}
	return jsonContent(data), nil
}

func jsonContent(data []byte) *entity.Content {
	return &entity.Content{
		Bytes:       data,
		MIME:        jsonMIME,
		Compression: entity.CompressionRaw,
	}
}
