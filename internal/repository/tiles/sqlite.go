package tiles

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MBTiles is a tile container in the MBTiles sqlite layout. Rows are stored
// in TMS order; callers always pass XYZ coordinates.
type MBTiles struct {
	db     *sql.DB
	logger logger.Logger
}

var _ Source = (*MBTiles)(nil)

// OpenMBTiles opens an existing file read-only.
func OpenMBTiles(path string, l logger.Logger) (*MBTiles, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open mbtiles %s: %w", path, err)
	}

	l.Info("mbtiles source opened", "path", path)

	return &MBTiles{
		db:     db,
		logger: l,
	}, nil
}

// CreateMBTiles opens path for writing and migrates it to the MBTiles schema.
func CreateMBTiles(path string, l logger.Logger) (*MBTiles, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}

	m := &MBTiles{
		db:     db,
		logger: l,
	}

	err = m.runMigrations()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate mbtiles %s: %w", path, err)
	}

	l.Info("mbtiles file initialized", "path", path)

	return m, nil
}

func (m *MBTiles) runMigrations() error {
	goose.SetBaseFS(migrations)

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	err = goose.Up(m.db, "migrations")
	if err != nil {
		return err
	}

	return nil
}

func (m *MBTiles) Header(ctx context.Context) (Header, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT name, value
	FROM metadata
	WHERE name IN ('format', 'bounds', 'compression')`)
	if err != nil {
		return Header{}, err
	}
	defer rows.Close()

	values := make(map[string]string, 3)
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return Header{}, err
		}
		values[name] = value.String
	}
	if err := rows.Err(); err != nil {
		return Header{}, err
	}

	format := values["format"]
	if format == "" {
		return Header{}, errors.New("mbtiles metadata has no format")
	}

	// MBTiles vector tiles are gzipped by convention; an explicit
	// compression entry overrides that
	compression := values["compression"]
	if compression == "" {
		compression = string(entity.CompressionRaw)
		if format == "pbf" {
			compression = string(entity.CompressionGzip)
		}
	}

	h, err := NewHeader(format, compression)
	if err != nil {
		return Header{}, err
	}
	h.Bounds = parseBounds(values["bounds"])

	return h, nil
}

// Metadata returns the "json" metadata entry, which carries vector_layers.
func (m *MBTiles) Metadata(ctx context.Context) (string, error) {
	var value sql.NullString
	err := m.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE name = 'json'`).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "{}", nil
		}
		return "", err
	}
	if !value.Valid || value.String == "" {
		return "{}", nil
	}
	return value.String, nil
}

func (m *MBTiles) Tile(ctx context.Context, z, x, y int) ([]byte, bool, error) {
	m.logger.Debug("mbtiles get", "z", z, "x", x, "y", y)

	query := `SELECT tile_data
	FROM tiles
	WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`

	var tileData []byte
	err := m.db.QueryRowContext(ctx, query, z, x, FlipY(z, y)).Scan(&tileData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		m.logger.Error("mbtiles get failed", "z", z, "x", x, "y", y, "error", err)
		return nil, false, err
	}

	return tileData, true, nil
}

func (m *MBTiles) SetMetadata(ctx context.Context, name, value string) error {
	query := `INSERT INTO metadata (name, value)
	VALUES (?, ?)
	ON CONFLICT(name) DO UPDATE SET value = excluded.value`

	_, err := m.db.ExecContext(ctx, query, name, value)
	return err
}

func (m *MBTiles) PutTile(ctx context.Context, z, x, y int, data []byte) error {
	m.logger.Debug("mbtiles put", "z", z, "x", x, "y", y, "size", len(data))

	query := `INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(zoom_level, tile_column, tile_row) DO UPDATE SET tile_data = excluded.tile_data`

	_, err := m.db.ExecContext(ctx, query, z, x, FlipY(z, y), data)
	if err != nil {
		m.logger.Error("mbtiles put failed", "z", z, "x", x, "y", y, "error", err)
		return err
	}

	return nil
}

func (m *MBTiles) Close() error {
	return m.db.Close()
}
