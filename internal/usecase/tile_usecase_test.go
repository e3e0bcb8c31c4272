package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/internal/repository/tiles"
	"github.com/jaennil/tileserve/internal/style"
	"github.com/jaennil/tileserve/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tileKey struct{ z, x, y int }

type fakeSource struct {
	header    tiles.Header
	metadata  string
	tiles     map[tileKey][]byte
	headerErr error
	tileErr   error
	requested []tileKey
}

func (s *fakeSource) Header(ctx context.Context) (tiles.Header, error) {
	return s.header, s.headerErr
}

func (s *fakeSource) Metadata(ctx context.Context) (string, error) {
	return s.metadata, nil
}

func (s *fakeSource) Tile(ctx context.Context, z, x, y int) ([]byte, bool, error) {
	s.requested = append(s.requested, tileKey{z, x, y})
	if s.tileErr != nil {
		return nil, false, s.tileErr
	}
	data, ok := s.tiles[tileKey{z, x, y}]
	return data, ok, nil
}

func (s *fakeSource) Close() error { return nil }

func newFakeSource() *fakeSource {
	return &fakeSource{
		header: tiles.Header{
			Format:      "pbf",
			MIME:        "application/x-protobuf",
			Compression: entity.CompressionBrotli,
			Bounds:      []float64{-180, -85, 180, 85},
		},
		metadata: `{"vector_layers":[{"id":"water"}]}`,
		tiles:    map[tileKey][]byte{{8, 55, 67}: []byte("tile")},
	}
}

func newTestTileUseCase(t *testing.T, src tiles.Source, tms bool) *TileUseCase {
	t.Helper()
	opts := style.Options{BaseURL: "http://localhost:8080/", TilesURL: "/tiles/{z}/{x}/{y}"}
	uc, err := NewTileUseCase(context.Background(), src, style.NewGuesser(), opts, tms, logger.Nop())
	require.NoError(t, err)
	return uc
}

func TestTileUseCaseTile(t *testing.T) {
	uc := newTestTileUseCase(t, newFakeSource(), false)

	c, ok, err := uc.Tile(context.Background(), 8, 55, 67)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, &entity.Content{
		Bytes:       []byte("tile"),
		MIME:        "application/x-protobuf",
		Compression: entity.CompressionBrotli,
	}, c)

	_, ok, err = uc.Tile(context.Background(), 0, 0, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTileUseCaseTMS(t *testing.T) {
	src := newFakeSource()
	uc := newTestTileUseCase(t, src, true)

	_, ok, err := uc.Tile(context.Background(), 8, 55, 188)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []tileKey{{8, 55, 67}}, src.requested)
}

func TestTileUseCaseZoomLimit(t *testing.T) {
	src := newFakeSource()
	uc := newTestTileUseCase(t, src, true)

	_, ok, err := uc.Tile(context.Background(), 64, 0, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, src.requested)
}

func TestTileUseCaseSourceError(t *testing.T) {
	boom := errors.New("disk on fire")
	src := newFakeSource()
	src.tileErr = boom
	uc := newTestTileUseCase(t, src, false)

	_, _, err := uc.Tile(context.Background(), 1, 1, 1)
	assert.ErrorIs(t, err, boom)
}

func TestTileUseCaseHeaderError(t *testing.T) {
	src := newFakeSource()
	src.headerErr = errors.New("corrupt")

	_, err := NewTileUseCase(context.Background(), src, style.NewGuesser(), style.Options{}, false, logger.Nop())
	assert.Error(t, err)
}

func TestTileUseCaseDocuments(t *testing.T) {
	src := newFakeSource()
	src.metadata = ""
	uc := newTestTileUseCase(t, src, false)

	meta := uc.Metadata()
	assert.Equal(t, "{}", string(meta.Bytes))
	assert.Equal(t, "application/json; charset=utf-8", meta.MIME)
	assert.Equal(t, entity.CompressionRaw, meta.Compression)

	index, err := uc.Index()
	require.NoError(t, err)
	assert.JSONEq(t, `["default"]`, string(index.Bytes))

	s, err := uc.Style()
	require.NoError(t, err)
	assert.Contains(t, string(s.Bytes), `"tiles":["http://localhost:8080/tiles/{z}/{x}/{y}"]`)
	assert.Contains(t, string(s.Bytes), `"bounds":[-180,-85,180,85]`)
}

func TestTileUseCaseStyleError(t *testing.T) {
	src := newFakeSource()
	src.header.Format = "geojson"
	uc := newTestTileUseCase(t, src, false)

	_, err := uc.Style()
	assert.ErrorIs(t, err, style.ErrUnsupportedFormat)
}
