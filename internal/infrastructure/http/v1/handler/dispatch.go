package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/internal/repository/content"
	"github.com/jaennil/tileserve/internal/usecase"
	"github.com/jaennil/tileserve/pkg/logger"
)

const (
	metadataPath = "/tiles/tiles.json"
	stylePath    = "/tiles/style.json"
	indexPath    = "/tiles/index.json"
)

var tilePattern = regexp.MustCompile(`^/tiles/([0-9]+)/([0-9]+)/([0-9]+)`)

// Serve answers every request no other route claimed. Tiles win over the
// generated documents, which win over static files; anything left is a 404.
func (h *Handler) Serve(c *gin.Context) {
	l := loggerFrom(c)

	kind, res, err := h.resolve(c, l)
	if err != nil {
		h.respondError(c, l, kind, err)
		return
	}

	accept := usecase.ParseAcceptEncoding(c.GetHeader("Accept-Encoding"))
	out, err := h.transcodeUseCase.Transcode(res, accept)
	if err != nil {
		h.respondError(c, l, kind, err)
		return
	}

	h.respondContent(c, kind, out)
}

func (h *Handler) resolve(c *gin.Context, l logger.Logger) (string, *entity.Content, error) {
	if c.Request.Method != http.MethodGet {
		return "invalid", nil, ErrMethodNotAllowed
	}

	if c.Request.URL.Path == "" {
		return "invalid", nil, errURLNotFound
	}
	// every lookup below sees the same key the cache was filled with
	p := content.NormalizePath(c.Request.URL.Path)

	if m := tilePattern.FindStringSubmatch(p); m != nil {
		res, err := h.tile(c, m[1:], p)
		return "tile", res, err
	}

	switch p {
	case metadataPath:
		return "metadata", h.tileUseCase.Metadata(), nil
	case stylePath:
		res, err := h.tileUseCase.Style()
		return "style", res, err
	case indexPath:
		res, err := h.tileUseCase.Index()
		return "index", res, err
	}

	if h.static != nil {
		res, exists, err := h.static.Open(p)
		switch {
		case errors.Is(err, content.ErrPathTraversal):
			l.Warn("rejected static path", "path", p)
		case err != nil:
			return "static", nil, err
		case exists:
			l.Debug("serving file from disk", "path", p)
			return "static", res, nil
		}
	}

	if res, ok := h.cache.Get(p); ok {
		return "cache", res, nil
	}

	return "cache", nil, notFound("file not found: " + p)
}

func (h *Handler) tile(c *gin.Context, coords []string, p string) (*entity.Content, error) {
	var zxy [3]int
	for i, s := range coords {
		v, err := strconv.Atoi(s)
		if err != nil {
			// out of int range, so no container can hold it
			return nil, notFound("tile not found: " + p)
		}
		zxy[i] = v
	}

	res, exists, err := h.tileUseCase.Tile(c.Request.Context(), zxy[0], zxy[1], zxy[2])
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound("tile not found: " + p)
	}
	return res, nil
}
