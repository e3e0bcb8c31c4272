// Package style guesses a MapLibre style document for a tile source from its
// header and TileJSON metadata.
package style

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
)

var (
	ErrInvalidMetadata   = errors.New("invalid metadata")
	ErrUnsupportedFormat = errors.New("unsupported tile format")
	ErrUnknownFormat     = errors.New("unknown tile format")
)

const sourceID = "tiles"

type Sprite struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Options struct {
	// BaseURL resolves TilesURL, Glyphs and Sprites URLs.
	BaseURL  string
	TilesURL string
	Glyphs   string
	Sprites  []Sprite
	// Format is the tile format reported by the source header.
	Format string
	Bounds []float64
}

type Generator interface {
	Generate(metadata string, opts Options) (string, error)
}

// Guesser renders raster sources as a single raster layer and vector sources
// as fill, line and circle layers for every vector layer in the metadata.
type Guesser struct{}

var _ Generator = (*Guesser)(nil)

func NewGuesser() *Guesser {
	return &Guesser{}
}

func (g *Guesser) Generate(metadata string, opts Options) (string, error) {
	format, err := tileFormat(opts.Format)
	if err != nil {
		return "", err
	}

	layers, err := parseVectorLayers(metadata)
	if err != nil {
		return "", err
	}

	src := source{
		Tiles:  []string{JoinURL(opts.BaseURL, opts.TilesURL)},
		Bounds: opts.Bounds,
	}

	doc := document{
		Version: 8,
		Name:    "tileserve",
		Sources: map[string]source{sourceID: src},
	}

	if format == "pbf" {
		src.Type = "vector"
		doc.Sources[sourceID] = src
		if opts.Glyphs != "" {
			doc.Glyphs = JoinURL(opts.BaseURL, opts.Glyphs)
		}
		for _, s := range opts.Sprites {
			doc.Sprite = append(doc.Sprite, Sprite{ID: s.ID, URL: JoinURL(opts.BaseURL, s.URL)})
		}
		doc.Layers = vectorStyleLayers(layers)
	} else {
		src.Type = "raster"
		src.TileSize = 256
		doc.Sources[sourceID] = src
		doc.Layers = []layer{{ID: "raster", Type: "raster", Source: sourceID}}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode style: %w", err)
	}
	return string(out), nil
}

func tileFormat(format string) (string, error) {
	switch format {
	case "jpeg":
		return "jpg", nil
	case "avif", "jpg", "png", "webp", "pbf":
		return format, nil
	case "bin", "geojson", "json", "svg", "topojson":
		return "", fmt.Errorf("%w %s", ErrUnsupportedFormat, format)
	}
	return "", fmt.Errorf("%w %s", ErrUnknownFormat, format)
}

type vectorLayer struct {
	ID      string `json:"id"`
	MinZoom *int   `json:"minzoom,omitempty"`
	MaxZoom *int   `json:"maxzoom,omitempty"`
}

// UnmarshalJSON also accepts a bare layer name.
func (l *vectorLayer) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		l.ID = id
		return nil
	}

	type plain vectorLayer
	return json.Unmarshal(b, (*plain)(l))
}

func parseVectorLayers(metadata string) ([]vectorLayer, error) {
	if strings.TrimSpace(metadata) == "" {
		return nil, nil
	}

	var meta struct {
		VectorLayers []vectorLayer `json:"vector_layers"`
	}
	if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	return meta.VectorLayers, nil
}

type document struct {
	Version int               `json:"version"`
	Name    string            `json:"name"`
	Sources map[string]source `json:"sources"`
	Glyphs  string            `json:"glyphs,omitempty"`
	Sprite  []Sprite          `json:"sprite,omitempty"`
	Layers  []layer           `json:"layers"`
}

type source struct {
	Type     string    `json:"type"`
	Tiles    []string  `json:"tiles"`
	TileSize int       `json:"tileSize,omitempty"`
	Bounds   []float64 `json:"bounds,omitempty"`
}

type layer struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source,omitempty"`
	SourceLayer string         `json:"source-layer,omitempty"`
	MinZoom     *int           `json:"minzoom,omitempty"`
	MaxZoom     *int           `json:"maxzoom,omitempty"`
	Filter      []any          `json:"filter,omitempty"`
	Paint       map[string]any `json:"paint,omitempty"`
}

func vectorStyleLayers(vectorLayers []vectorLayer) []layer {
	layers := []layer{{
		ID:    "background",
		Type:  "background",
		Paint: map[string]any{"background-color": "#f8f4f0"},
	}}

	for _, vl := range vectorLayers {
		if vl.ID == "" {
			continue
		}
		color := layerColor(vl.ID)
		base := layer{
			Source:      sourceID,
			SourceLayer: vl.ID,
			MinZoom:     vl.MinZoom,
			MaxZoom:     vl.MaxZoom,
		}

		fill := base
		fill.ID = vl.ID + "-fill"
		fill.Type = "fill"
		fill.Filter = []any{"==", "$type", "Polygon"}
		fill.Paint = map[string]any{"fill-color": color, "fill-opacity": 0.4}

		line := base
		line.ID = vl.ID + "-line"
		line.Type = "line"
		line.Filter = []any{"==", "$type", "LineString"}
		line.Paint = map[string]any{"line-color": color, "line-width": 1}

		circle := base
		circle.ID = vl.ID + "-circle"
		circle.Type = "circle"
		circle.Filter = []any{"==", "$type", "Point"}
		circle.Paint = map[string]any{"circle-color": color, "circle-radius": 3}

		layers = append(layers, fill, line, circle)
	}
	return layers
}

// layerColor derives a stable hue from the layer name.
func layerColor(id string) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	return fmt.Sprintf("hsl(%d, 60%%, 45%%)", h.Sum32()%360)
}

// JoinURL resolves ref against base and keeps URL template placeholders such
// as {z} unescaped. ref is returned unchanged when either side does not parse.
func JoinURL(base, ref string) string {
	if base == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	joined := b.ResolveReference(r).String()
	return strings.NewReplacer("%7B", "{", "%7D", "}").Replace(joined)
}
