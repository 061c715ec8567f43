package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CookieName 세션 쿠키 이름
const CookieName = "access_token"

// LocalsUsername 인증된 사용자 이름이 저장되는 Locals 키
const LocalsUsername = "username"

var errMissingToken = errors.New("missing authorization token")

// tokenFromRequest Authorization 헤더 또는 쿠키에서 토큰 추출
func tokenFromRequest(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		token := c.Cookies(CookieName)
		if token == "" {
			return "", errMissingToken
		}
		return token, nil
	}

	// Bearer 토큰 파싱
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}

// AuthMiddleware JWT 인증 미들웨어
func AuthMiddleware(jwtManager *JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := tokenFromRequest(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		// 토큰 검증
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "token expired",
					"code":  "TOKEN_EXPIRED",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		// 사용자 정보를 컨텍스트에 저장
		c.Locals(LocalsUsername, claims.Username)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// OptionalAuthMiddleware 선택적 인증 미들웨어 (인증 실패해도 계속 진행)
func OptionalAuthMiddleware(jwtManager *JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, err := tokenFromRequest(c); err == nil {
			if claims, err := jwtManager.ValidateAccessToken(token); err == nil {
				c.Locals(LocalsUsername, claims.Username)
				c.Locals("claims", claims)
			}
		}
		return c.Next()
	}
}

// GetUsername 인증된 사용자 이름 (없으면 빈 문자열)
func GetUsername(c *fiber.Ctx) string {
	name, _ := c.Locals(LocalsUsername).(string)
	return name
}
