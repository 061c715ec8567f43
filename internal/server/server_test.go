package server

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-backend/internal/config"
	"tabletop-backend/internal/database"
	"tabletop-backend/internal/game"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.ConnectDB(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "save.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Prepare(db))

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second},
		WebSocket: config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024, WriteTimeout: time.Second, SendBuffer: 16},
		CORS:      config.CORSConfig{AllowOrigins: "http://localhost:3000", AllowHeaders: "Origin, Content-Type"},
		Auth:      config.AuthConfig{JWTSecret: "secret", AccessTokenExpiry: time.Hour},
		Assets:    config.AssetsConfig{Dir: t.TempDir()},
	}

	srv := New(cfg, Deps{DB: db, Hub: game.NewHub(game.Options{}), Users: database.NewStore(db)})
	srv.SetupMiddleware()
	srv.SetupRoutes()
	return srv
}

func TestHealthReportsComponents(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"].Status)
	assert.Equal(t, "not_configured", body.Checks["presence"].Status)
}

func TestRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/rooms", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/ws/game/dm/campaign", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
