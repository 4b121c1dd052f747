package server

import (
	"context"
	"net/http"
	"time"
)

// NewHTTPServer wraps the gateway handler in an http.Server with sane
// timeouts. The timeouts only cover the upgrade request; established
// WebSocket connections are hijacked and unaffected.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownHTTPServer stops the gateway from accepting new upgrades, waiting
// up to timeout for in-flight requests.
func ShutdownHTTPServer(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
