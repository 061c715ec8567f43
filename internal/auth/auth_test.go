package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.GenerateAccessToken("alice")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice", claims.Subject)
}

func TestAccessTokenRejections(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	other, err := NewJWTManager("other", time.Hour).GenerateAccessToken("alice")
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTManager("secret", -time.Minute).GenerateAccessToken("alice")
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = m.ValidateAccessToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newGuardedApp(m *JWTManager, guard func(*JWTManager) fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/me", guard(m), func(c *fiber.Ctx) error {
		return c.SendString(GetUsername(c))
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	app := newGuardedApp(m, AuthMiddleware)
	token, err := m.GenerateAccessToken("alice")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{name: "bearer header", header: "Bearer " + token, status: fiber.StatusOK},
		{name: "cookie", cookie: token, status: fiber.StatusOK},
		{name: "missing", status: fiber.StatusUnauthorized},
		{name: "bad scheme", header: "Token " + token, status: fiber.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.Header.Set("Cookie", CookieName+"="+tc.cookie)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestOptionalAuthMiddlewareContinues(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	app := newGuardedApp(m, OptionalAuthMiddleware)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

type hashes map[string]string

func (h hashes) PasswordHash(_ context.Context, name string) (string, error) {
	hash, ok := h[name]
	if !ok {
		return "", errors.New("not found")
	}
	return hash, nil
}

func TestPasswordVerifier(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	v := NewPasswordVerifier(hashes{"alice": hash})
	ctx := context.Background()

	assert.NoError(t, v.Verify(ctx, "alice", "hunter22"))
	assert.ErrorIs(t, v.Verify(ctx, "alice", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, v.Verify(ctx, "nobody", "hunter22"), ErrInvalidCredentials)

	_, err = HashPassword("123")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("dm_01"))
	assert.ErrorIs(t, ValidateUsername("a"), ErrInvalidUsername)
	assert.ErrorIs(t, ValidateUsername("has/slash"), ErrInvalidUsername)
}

func TestGoogleAuthenticator(t *testing.T) {
	validate := func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		if token != "good" || audience != "client" {
			return nil, errors.New("bad token")
		}
		return &idtoken.Payload{
			Subject: "123",
			Claims:  map[string]interface{}{"email": "jane.doe@example.com", "email_verified": true, "name": "Jane"},
		}, nil
	}
	g := NewGoogleAuthenticatorWithValidator("client", validate)
	require.True(t, g.Enabled())

	info, err := g.VerifyIDToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "123", info.ID)
	assert.Equal(t, "jane_doe", info.SuggestedUsername())

	_, err = g.VerifyIDToken(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)

	assert.False(t, NewGoogleAuthenticator("").Enabled())
}
