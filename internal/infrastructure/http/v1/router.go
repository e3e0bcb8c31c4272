package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/tileserve/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/tileserve/pkg/logger"
	"github.com/jaennil/tileserve/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	TelemetryEnabled bool
	ServiceName      string
}

// NewRouter registers the health and metrics endpoints and hands every other
// request to the content dispatcher.
func NewRouter(h *handler.Handler, l logger.Logger, opts RouterOptions) *gin.Engine {
	r := gin.New()

	// static paths are matched verbatim by the dispatcher
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(gin.Recovery())

	if opts.TelemetryEnabled {
		r.Use(telemetry.GinMiddleware(opts.ServiceName, "/api/v1/healthz", "/metrics"))
	}

	r.Use(ginZapLogger(l))

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.GET("/healthz", h.Healthz)

	// Prometheus metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(h.Serve)

	return r
}

func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("logger", l)

		start := time.Now()

		c.Next()

		latency := time.Since(start)

		l.Info("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", latency,
			"size", c.Writer.Size(),
			"encoding", c.Writer.Header().Get("Content-Encoding"),
		)
	}
}
