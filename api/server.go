package api

import (
	"net/http"
	"os"
	"time"

	"github.com/petcare/vetclinic-backend/pkg/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 120 * time.Second

	// ShutdownTimeout bounds how long in-flight requests get to finish.
	ShutdownTimeout = 15 * time.Second
)

// NewServer builds the HTTP server for handler. PORT overrides the configured
// port so platform-assigned ports work without extra config.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
