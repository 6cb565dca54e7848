package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petcare/vetclinic-backend/pkg/config"
)

func TestNewServerUsesConfiguredPort(t *testing.T) {
	t.Setenv("PORT", "")
	cfg := &config.Config{}
	cfg.App.Port = "8080"

	srv := NewServer(cfg, http.NotFoundHandler())

	require.Equal(t, ":8080", srv.Addr)
	require.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
	require.NotNil(t, srv.Handler)
}

func TestNewServerPrefersPlatformPort(t *testing.T) {
	t.Setenv("PORT", "9000")
	cfg := &config.Config{}
	cfg.App.Port = "8080"

	require.Equal(t, ":9000", NewServer(cfg, http.NotFoundHandler()).Addr)
}
