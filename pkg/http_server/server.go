package http_server

import (
	"context"
	"net"
	"net/http"

	"github.com/jaennil/tileserve/pkg/config"
)

// NewServer builds the listener for handler. Request contexts derive from
// ctx, so values stored in it (such as the logger) reach every handler.
func NewServer(ctx context.Context, cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}
