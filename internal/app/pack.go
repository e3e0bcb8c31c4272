package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jaennil/tileserve/internal/compression"
	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/internal/repository/tiles"
	"github.com/jaennil/tileserve/pkg/config"
	"github.com/jaennil/tileserve/pkg/logger"
)

func RunPack(cfg *config.Pack) {
	l := logger.NewZapLogger(cfg.Logger.Level)
	defer l.Sync()

	n, err := Pack(context.Background(), cfg, l)
	if err != nil {
		l.Fatal("failed to pack tiles", "source", cfg.SourceDir, "output", cfg.Output, "error", err)
	}

	l.Info("tiles packed", "output", cfg.Output, "tiles", n)
}

// Pack copies a <z>/<x>/<y>.<format> directory into a new MBTiles file and
// returns the number of tiles written. Raw vector tiles are gzipped, as
// MBTiles readers expect.
func Pack(ctx context.Context, cfg *config.Pack, l logger.Logger) (int, error) {
	stored, err := entity.ParseCompression(cfg.Compression)
	if err != nil {
		return 0, err
	}

	if _, err := os.Stat(cfg.Output); err == nil {
		return 0, fmt.Errorf("%s already exists", cfg.Output)
	}

	out, err := tiles.CreateMBTiles(cfg.Output, l)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	target := stored
	if cfg.Format == "pbf" && stored == entity.CompressionRaw {
		target = entity.CompressionGzip
	}

	minZoom, maxZoom := -1, -1
	count := 0

	err = filepath.WalkDir(cfg.SourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != cfg.SourceDir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		z, x, y, ok := parseTilePath(cfg.SourceDir, p, cfg.Format)
		if !ok {
			l.Debug("skipping non-tile file", "file", p)
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if target != stored {
			data, err = compression.CompressGzip(data)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
		}

		if err := out.PutTile(ctx, z, x, y, data); err != nil {
			return fmt.Errorf("failed to write tile %d/%d/%d: %w", z, x, y, err)
		}

		if minZoom < 0 || z < minZoom {
			minZoom = z
		}
		if z > maxZoom {
			maxZoom = z
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	if count == 0 {
		return 0, fmt.Errorf("no %s tiles found in %s", cfg.Format, cfg.SourceDir)
	}

	meta := map[string]string{
		"name":        cfg.Name,
		"format":      cfg.Format,
		"compression": target.String(),
		"minzoom":     strconv.Itoa(minZoom),
		"maxzoom":     strconv.Itoa(maxZoom),
	}

	tileJSON, err := os.ReadFile(filepath.Join(cfg.SourceDir, "metadata.json"))
	switch {
	case err == nil:
		meta["json"] = string(tileJSON)
	case !errors.Is(err, fs.ErrNotExist):
		return count, err
	}

	for name, value := range meta {
		if err := out.SetMetadata(ctx, name, value); err != nil {
			return count, fmt.Errorf("failed to write metadata %s: %w", name, err)
		}
	}

	return count, nil
}

func parseTilePath(root, p, format string) (z, x, y int, ok bool) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return 0, 0, 0, false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	name, found := strings.CutSuffix(parts[2], "."+format)
	if !found {
		return 0, 0, 0, false
	}

	var err1, err2, err3 error
	z, err1 = strconv.Atoi(parts[0])
	x, err2 = strconv.Atoi(parts[1])
	y, err3 = strconv.Atoi(name)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	return z, x, y, true
}
