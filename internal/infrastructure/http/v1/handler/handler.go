package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/internal/repository/content"
	"github.com/jaennil/tileserve/internal/usecase"
	"github.com/jaennil/tileserve/pkg/logger"
	"github.com/jaennil/tileserve/pkg/metrics"
	"github.com/jaennil/tileserve/pkg/mimetype"
)

const textMIME = "text/plain; charset=utf-8"

type Handler struct {
	tileUseCase      *usecase.TileUseCase
	transcodeUseCase *usecase.TranscodeUseCase
	cache            content.Lookup
	// static is nil unless the static directory is served from disk
	static *content.Dir
}

func NewHandler(
	tileUseCase *usecase.TileUseCase,
	transcodeUseCase *usecase.TranscodeUseCase,
	cache content.Lookup,
	static *content.Dir,
) *Handler {
	return &Handler{
		tileUseCase:      tileUseCase,
		transcodeUseCase: transcodeUseCase,
		cache:            cache,
		static:           static,
	}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func loggerFrom(c *gin.Context) logger.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(logger.Logger); ok {
			return l
		}
	}
	return logger.FromContext(c.Request.Context())
}

func (h *Handler) respondContent(c *gin.Context, kind string, res *entity.Content) {
	mime := res.MIME
	if mime == "" {
		mime = mimetype.Default
	}

	if res.Compression != entity.CompressionRaw {
		c.Header("Content-Encoding", res.Compression.String())
	}
	c.Header("Vary", "Accept-Encoding")

	metrics.Requests.WithLabelValues(kind, strconv.Itoa(http.StatusOK)).Inc()
	c.Data(http.StatusOK, mime, res.Bytes)
}

func (h *Handler) respondError(c *gin.Context, l logger.Logger, kind string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		status = http.StatusMethodNotAllowed
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		l.Error("internal error", "path", c.Request.URL.Path, "error", err)
	} else {
		l.Warn("request rejected", "status", status, "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}

	metrics.Requests.WithLabelValues(kind, strconv.Itoa(status)).Inc()
	c.Data(status, textMIME, []byte(err.Error()))
}
