package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for this project. Webhook
// ingestion answers before processing, so no handler should hold a connection
// long; the write timeout guards against a stuck channel collaborator.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}
