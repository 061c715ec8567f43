package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-backend/internal/auth"
	"tabletop-backend/internal/database"
	"tabletop-backend/internal/game"
	"tabletop-backend/internal/middleware"
	"tabletop-backend/internal/model"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[string]*model.User{}}
}

func (m *memoryUsers) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Name]; ok {
		return database.ErrUserExists
	}
	copied := *user
	m.users[user.Name] = &copied
	return nil
}

func (m *memoryUsers) FindUser(_ context.Context, name string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[name]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return user, nil
}

func (m *memoryUsers) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email != nil && *user.Email == email {
			return user, nil
		}
	}
	return nil, database.ErrUserNotFound
}

func (m *memoryUsers) PasswordHash(ctx context.Context, name string) (string, error) {
	user, err := m.FindUser(ctx, name)
	if err != nil {
		return "", err
	}
	return user.PasswordHash, nil
}

type testApp struct {
	app  *fiber.App
	hub  *game.Hub
	jwt  *auth.JWTManager
	user *memoryUsers
}

func newTestApp() *testApp {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	hub := game.NewHub(game.Options{})
	users := newMemoryUsers()

	authHandler := NewAuthHandler(users, hub.Users(), jwtManager, auth.NewGoogleAuthenticator(""), false)
	roomHandler := NewRoomHandler(hub)

	app := fiber.New()
	app.Post("/auth/register", authHandler.Register)
	app.Post("/auth/login", authHandler.Login)
	app.Post("/auth/google", authHandler.GoogleLogin)
	app.Get("/auth/me", auth.AuthMiddleware(jwtManager), authHandler.GetMe)
	api := app.Group("/api", auth.AuthMiddleware(jwtManager))
	api.Get("/rooms", roomHandler.ListRooms)
	api.Post("/rooms", roomHandler.CreateRoom)
	app.Get("/invite/:code", auth.OptionalAuthMiddleware(jwtManager), roomHandler.ClaimInvite)
	rooms := middleware.NewRoomMiddleware(hub)
	api.Get("/rooms/:creator/:room", rooms.RequireMembership(), roomHandler.GetRoom)
	api.Get("/rooms/:creator/:room/invite", rooms.RequireOwnership(), roomHandler.GetInvite)

	return &testApp{app: app, hub: hub, jwt: jwtManager, user: users}
}

func (a *testApp) do(t *testing.T, method, path, user string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := a.jwt.GenerateAccessToken(user)
		require.NoError(t, err)
		req.Header.Set("Cookie", auth.CookieName+"="+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestApp()

	resp := a.do(t, "POST", "/auth/register", "", CredentialsRequest{Username: "alice", Password: "hunter22"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.True(t, a.hub.Users().Exists("alice"))

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	resp = a.do(t, "POST", "/auth/register", "", CredentialsRequest{Username: "alice", Password: "hunter22"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = a.do(t, "POST", "/auth/login", "", CredentialsRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = a.do(t, "POST", "/auth/login", "", CredentialsRequest{Username: "alice", Password: "hunter22"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out AuthResponse
	decode(t, resp, &out)
	assert.Equal(t, "alice", out.User.Name)

	claims, err := a.jwt.ValidateAccessToken(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	resp = a.do(t, "GET", "/auth/me", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp()

	resp := a.do(t, "POST", "/auth/register", "", CredentialsRequest{Username: "a/b", Password: "hunter22"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, "POST", "/auth/register", "", CredentialsRequest{Username: "bob", Password: "123"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGoogleLoginDisabled(t *testing.T) {
	a := newTestApp()
	resp := a.do(t, "POST", "/auth/google", "", GoogleLoginRequest{IDToken: "x"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRoomLifecycle(t *testing.T) {
	a := newTestApp()

	resp := a.do(t, "POST", "/api/rooms", "", CreateRoomRequest{Name: "campaign"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = a.do(t, "POST", "/api/rooms", "dm", CreateRoomRequest{Name: "campaign"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var summary game.RoomSummary
	decode(t, resp, &summary)
	require.NotEmpty(t, summary.InvitationCode)

	resp = a.do(t, "POST", "/api/rooms", "dm", CreateRoomRequest{Name: "campaign"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = a.do(t, "POST", "/api/rooms", "dm", CreateRoomRequest{Name: "  "})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, "GET", "/invite/"+summary.InvitationCode, "", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, game.RedirectLogin, resp.Header.Get("Location"))

	resp = a.do(t, "GET", "/invite/bogus", "alice", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, game.RedirectRooms, resp.Header.Get("Location"))

	resp = a.do(t, "GET", "/invite/"+summary.InvitationCode, "alice", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/game/dm/campaign", resp.Header.Get("Location"))

	resp = a.do(t, "GET", "/api/rooms", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var rooms struct {
		Owned  []game.RoomSummary `json:"owned"`
		Joined []game.RoomSummary `json:"joined"`
	}
	decode(t, resp, &rooms)
	assert.Empty(t, rooms.Owned)
	require.Len(t, rooms.Joined, 1)
	assert.Equal(t, "campaign", rooms.Joined[0].Name)
	assert.Empty(t, rooms.Joined[0].InvitationCode)
}

func TestWSClientSendIsNonBlocking(t *testing.T) {
	client := newWSClient(nil, 1)

	assert.True(t, client.Send([]byte("a")))
	assert.False(t, client.Send([]byte("b")))

	client.close()
	assert.False(t, client.Send([]byte("c")))
	assert.Equal(t, "a", string(<-client.send))
}

func TestRoomDetailAndInvite(t *testing.T) {
	a := newTestApp()
	summary, err := a.hub.CreateRoom("dm", "campaign")
	require.NoError(t, err)
	_, err = a.hub.ClaimInvite(summary.InvitationCode, "alice")
	require.NoError(t, err)

	resp := a.do(t, "GET", "/api/rooms/dm/campaign", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var detail game.RoomDetail
	decode(t, resp, &detail)
	assert.Equal(t, []string{"alice"}, detail.Players)
	assert.Equal(t, []string{"start"}, detail.Locations)
	assert.Empty(t, detail.Online)

	resp = a.do(t, "GET", "/api/rooms/dm/campaign/invite", "alice", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = a.do(t, "GET", "/api/rooms/dm/campaign/invite", "dm", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var invite map[string]string
	decode(t, resp, &invite)
	assert.Equal(t, summary.InvitationCode, invite["code"])
}
