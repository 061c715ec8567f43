package handler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tabletop-backend/internal/auth"
	"tabletop-backend/internal/database"
	"tabletop-backend/internal/game"
	"tabletop-backend/internal/model"
)

// UserStore 계정 저장소
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	FindUser(ctx context.Context, name string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	PasswordHash(ctx context.Context, name string) (string, error)
}

// AuthHandler 인증 핸들러
type AuthHandler struct {
	users        UserStore
	directory    *game.Directory
	jwtManager   *auth.JWTManager
	passwords    *auth.PasswordVerifier
	googleAuth   *auth.GoogleAuthenticator
	secureCookie bool
}

// NewAuthHandler AuthHandler 생성
func NewAuthHandler(users UserStore, directory *game.Directory, jwtManager *auth.JWTManager, googleAuth *auth.GoogleAuthenticator, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		users:        users,
		directory:    directory,
		jwtManager:   jwtManager,
		passwords:    auth.NewPasswordVerifier(users),
		googleAuth:   googleAuth,
		secureCookie: secureCookie,
	}
}

// CredentialsRequest 회원가입/로그인 요청
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GoogleLoginRequest Google 로그인 요청
type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// UserResponse 사용자 응답
type UserResponse struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// AuthResponse 인증 응답
type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
}

// Register 비밀번호 계정 생성
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := auth.ValidateUsername(req.Username); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to hash password",
		})
	}

	user := model.User{Name: req.Username, PasswordHash: hash, Provider: model.ProviderLocal}
	if err := h.users.CreateUser(c.UserContext(), &user); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "username already taken"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create user",
		})
	}
	h.directory.Put(user.Name, nil)
	log.Printf("👤 [Auth] registered %s", user.Name)

	return h.issue(c, fiber.StatusCreated, &user)
}

// Login 비밀번호 로그인
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.passwords.Verify(c.UserContext(), req.Username, req.Password); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": auth.ErrInvalidCredentials.Error(),
		})
	}

	user, err := h.users.FindUser(c.UserContext(), req.Username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "database error",
		})
	}
	return h.issue(c, fiber.StatusOK, user)
}

// GoogleLogin Google OAuth 로그인
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	if !h.googleAuth.Enabled() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "google login is not configured",
		})
	}

	var req GoogleLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.IDToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id_token is required",
		})
	}

	// Google ID Token 검증
	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	googleUser, err := h.googleAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid google token",
		})
	}

	// 사용자 조회 또는 생성
	user, err := h.users.FindUserByEmail(ctx, googleUser.Email)
	if errors.Is(err, database.ErrUserNotFound) {
		user, err = h.createGoogleUser(ctx, googleUser)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create user",
		})
	}

	return h.issue(c, fiber.StatusOK, user)
}

// createGoogleUser 이메일 앞부분으로 이름을 정하고, 겹치면 접미사를 붙인다
func (h *AuthHandler) createGoogleUser(ctx context.Context, info *auth.GoogleUserInfo) (*model.User, error) {
	email := info.Email
	name := info.SuggestedUsername()
	for attempt := 0; attempt < 3; attempt++ {
		user := model.User{Name: name, Provider: model.ProviderGoogle, Email: &email}
		err := h.users.CreateUser(ctx, &user)
		if err == nil {
			h.directory.Put(user.Name, nil)
			log.Printf("👤 [Auth] registered %s via google", user.Name)
			return &user, nil
		}
		if !errors.Is(err, database.ErrUserExists) {
			return nil, err
		}
		suffix := uuid.NewString()[:6]
		if len(name) > 25 {
			name = name[:25]
		}
		name = name + "_" + suffix
	}
	return nil, database.ErrUserExists
}

// Logout 로그아웃
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   h.secureCookie,
		HTTPOnly: true,
	})

	return c.JSON(fiber.Map{
		"message": "logged out successfully",
	})
}

// GetMe 현재 사용자 정보
func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.users.FindUser(c.UserContext(), auth.GetUsername(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "user not found",
		})
	}

	return c.JSON(UserResponse{Name: user.Name, Provider: user.Provider.String()})
}

// issue 토큰 발급 + HttpOnly 쿠키 설정
func (h *AuthHandler) issue(c *fiber.Ctx, status int, user *model.User) error {
	accessToken, err := h.jwtManager.GenerateAccessToken(user.Name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate token",
		})
	}

	expiry := h.jwtManager.AccessExpiry()
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(expiry.Seconds()),
		Secure:   h.secureCookie,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Status(status).JSON(AuthResponse{
		User:        UserResponse{Name: user.Name, Provider: user.Provider.String()},
		AccessToken: accessToken,
		ExpiresIn:   int64(expiry.Seconds()),
	})
}
