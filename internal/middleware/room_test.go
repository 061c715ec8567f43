package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-backend/internal/auth"
	"tabletop-backend/internal/game"
)

func TestRoomMiddleware(t *testing.T) {
	hub := game.NewHub(game.Options{})
	summary, err := hub.CreateRoom("dm", "campaign")
	require.NoError(t, err)
	_, err = hub.ClaimInvite(summary.InvitationCode, "alice")
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager("secret", time.Hour)
	rooms := NewRoomMiddleware(hub)

	app := fiber.New()
	group := app.Group("/rooms/:creator/:room", auth.OptionalAuthMiddleware(jwtManager))
	group.Get("/", rooms.RequireMembership(), func(c *fiber.Ctx) error {
		return c.SendString(RoomKey(c).String())
	})
	group.Get("/invite", rooms.RequireOwnership(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	cases := []struct {
		name   string
		path   string
		user   string
		status int
	}{
		{"anonymous", "/rooms/dm/campaign/", "", fiber.StatusUnauthorized},
		{"creator", "/rooms/dm/campaign/", "dm", fiber.StatusOK},
		{"player", "/rooms/dm/campaign/", "alice", fiber.StatusOK},
		{"stranger", "/rooms/dm/campaign/", "bob", fiber.StatusForbidden},
		{"missing room", "/rooms/dm/other/", "dm", fiber.StatusNotFound},
		{"owner route as player", "/rooms/dm/campaign/invite", "alice", fiber.StatusForbidden},
		{"owner route as creator", "/rooms/dm/campaign/invite", "dm", fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			if tc.user != "" {
				token, err := jwtManager.GenerateAccessToken(tc.user)
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+token)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
