package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"tabletop-backend/internal/auth"
	"tabletop-backend/internal/game"
	"tabletop-backend/internal/scene"
)

// LocalsRoomKey 확인된 방 키가 저장되는 Locals 키
const LocalsRoomKey = "roomKey"

// MembershipChecker 방 구성원 확인
type MembershipChecker interface {
	Membership(key scene.RoomKey, user string) (member, creator bool, err error)
}

// RoomMiddleware 방 권한 미들웨어
type RoomMiddleware struct {
	rooms MembershipChecker
}

// NewRoomMiddleware RoomMiddleware 생성
func NewRoomMiddleware(rooms MembershipChecker) *RoomMiddleware {
	return &RoomMiddleware{rooms: rooms}
}

// roomKeyFromContext URL 에서 방 키 추출
func roomKeyFromContext(c *fiber.Ctx) (scene.RoomKey, error) {
	key := scene.RoomKey{Creator: c.Params("creator"), Name: c.Params("room")}
	if key.Creator == "" || key.Name == "" {
		return key, fiber.NewError(fiber.StatusBadRequest, "room is required")
	}
	return key, nil
}

// RequireMembership 방 구성원(생성자 포함) 필수
func (m *RoomMiddleware) RequireMembership() fiber.Handler {
	return m.require(false)
}

// RequireOwnership 방 생성자 필수
func (m *RoomMiddleware) RequireOwnership() fiber.Handler {
	return m.require(true)
}

func (m *RoomMiddleware) require(ownerOnly bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username := auth.GetUsername(c)
		if username == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		key, err := roomKeyFromContext(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid room",
			})
		}

		member, creator, err := m.rooms.Membership(key, username)
		if errors.Is(err, game.ErrRoomNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "room not found",
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "membership check failed",
			})
		}

		if ownerOnly && !creator {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "owner permission required",
			})
		}
		if !member {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "not a room member",
			})
		}

		c.Locals(LocalsRoomKey, key)
		return c.Next()
	}
}

// RoomKey 미들웨어가 확인한 방 키
func RoomKey(c *fiber.Ctx) scene.RoomKey {
	key, _ := c.Locals(LocalsRoomKey).(scene.RoomKey)
	return key
}
