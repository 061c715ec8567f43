package handler

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"tabletop-backend/internal/auth"
	"tabletop-backend/internal/game"
	"tabletop-backend/internal/middleware"
	"tabletop-backend/internal/scene"
)

// RoomHandler 방 생성/목록/초대 핸들러
type RoomHandler struct {
	hub *game.Hub
}

// NewRoomHandler 생성자
func NewRoomHandler(hub *game.Hub) *RoomHandler {
	return &RoomHandler{hub: hub}
}

// CreateRoomRequest 방 생성 요청
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// GameURL 방 페이지 경로
func GameURL(key scene.RoomKey) string {
	return "/game/" + url.PathEscape(key.Creator) + "/" + url.PathEscape(key.Name)
}

// ListRooms 내가 만든 방과 참가한 방
func (h *RoomHandler) ListRooms(c *fiber.Ctx) error {
	owned, joined := h.hub.RoomsFor(auth.GetUsername(c))
	return c.JSON(fiber.Map{
		"owned":  owned,
		"joined": joined,
	})
}

// CreateRoom 방 생성
func (h *RoomHandler) CreateRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	summary, err := h.hub.CreateRoom(auth.GetUsername(c), req.Name)
	switch {
	case errors.Is(err, game.ErrInvalidName):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, game.ErrRoomExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create room"})
	}
	return c.Status(fiber.StatusCreated).JSON(summary)
}

// ClaimInvite 초대 링크 처리 후 방으로 이동
func (h *RoomHandler) ClaimInvite(c *fiber.Ctx) error {
	username := auth.GetUsername(c)
	if username == "" {
		return c.Redirect(game.RedirectLogin, fiber.StatusFound)
	}

	key, err := h.hub.ClaimInvite(c.Params("code"), username)
	if err != nil {
		return c.Redirect(game.RedirectRooms, fiber.StatusFound)
	}
	return c.Redirect(GameURL(key), fiber.StatusFound)
}

// GetRoom 방 상세 (구성원 전용)
func (h *RoomHandler) GetRoom(c *fiber.Ctx) error {
	detail, err := h.hub.Detail(middleware.RoomKey(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "room not found"})
	}
	return c.JSON(detail)
}

// GetInvite 초대 링크 (생성자 전용)
func (h *RoomHandler) GetInvite(c *fiber.Ctx) error {
	code, err := h.hub.InvitationCode(middleware.RoomKey(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "room not found"})
	}
	return c.JSON(fiber.Map{
		"code": code,
		"url":  "/invite/" + code,
	})
}
