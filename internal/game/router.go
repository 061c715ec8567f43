package game

import (
	"context"
	"fmt"
	"log"

	"tabletop-backend/internal/protocol"
	"tabletop-backend/internal/scene"
	"tabletop-backend/internal/session"
)

// call 이벤트 하나의 처리 문맥 (방 잠금을 잡은 상태)
type call struct {
	ctx    context.Context
	hub    *Hub
	room   *scene.Room
	sess   *session.Session
	viewer scene.Viewer
	out    *outbox
	save   bool
}

// HandleMessage 클라이언트 프레임 하나 처리
//
// 잘못된 프레임이나 권한 없는 요청은 로그만 남기고 버린다.
func (h *Hub) HandleMessage(ctx context.Context, connID string, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		log.Printf("⚠️ [Hub] dropping frame from %s: %v", connID, err)
		return
	}
	sess, ok := h.sessions.Get(connID)
	if !ok {
		log.Printf("⚠️ [Hub] %s from unknown connection %s", msg.EventName(), connID)
		return
	}

	// 사용자 단위 옵션은 방 잠금과 무관
	if m, ok := msg.(*protocol.SetClientOptions); ok {
		opts := h.users.MergeOptions(sess.Username, m.Options)
		h.saves.SaveUser(sess.Username, opts)
		return
	}

	rs, ok := h.roomState(sess.Room)
	if !ok {
		log.Printf("⚠️ [Hub] room %s gone for %s", sess.Room, connID)
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	c := &call{
		ctx:    ctx,
		hub:    h,
		room:   rs.room,
		sess:   sess,
		viewer: rs.room.Viewer(sess.Username),
		out:    &outbox{},
	}
	if err := c.dispatch(msg); err != nil {
		log.Printf("🚫 [Room %s] %s by %s rejected: %v", sess.Room, msg.EventName(), sess.Username, err)
		return
	}
	c.out.flush()
	if c.save {
		h.saves.SaveRoom(rs.room.Clone())
	}
}

func (c *call) dispatch(msg protocol.Message) error {
	switch m := msg.(type) {
	case *protocol.AddShape:
		return c.addShape(m)
	case *protocol.RemoveShape:
		return c.removeShape(m)
	case *protocol.MoveShapeOrder:
		return c.moveShapeOrder(m)
	case *protocol.ShapeMove:
		return c.shapeMove(m)
	case *protocol.UpdateShape:
		return c.updateShape(m)
	case *protocol.UpdateInitiative:
		return c.updateInitiative(m)
	case *protocol.RemoveGhostInitiative:
		return c.removeGhostInitiative(m)
	case *protocol.SetLocationOptions:
		return c.setLocationOptions(m)
	case *protocol.SetGridSize:
		return c.setGridSize(m)
	case *protocol.NewLocation:
		return c.newLocation(m)
	case *protocol.ChangeLocation:
		return c.changeLocation(m)
	case *protocol.BringPlayers:
		return c.bringPlayers(m)
	case *protocol.ShowAsset:
		return c.showAsset(m)
	case *protocol.OwnerAdd:
		return c.ownerAdd(m)
	case *protocol.OwnerUpdate:
		return c.ownerUpdate(m)
	case *protocol.OwnerDelete:
		return c.ownerDelete(m)
	case *protocol.OwnerDefault:
		return c.ownerDefault(m)
	default:
		return fmt.Errorf("%w: %s", protocol.ErrUnknownEvent, msg.EventName())
	}
}

// location 요청자가 보고 있는 위치
func (c *call) location() (*scene.Location, error) {
	loc := c.room.ActiveLocation(c.sess.Username)
	if loc == nil {
		return nil, fmt.Errorf("active location of %s: %w", c.sess.Username, scene.ErrNotFound)
	}
	return loc, nil
}

func (c *call) requireAuthority() error {
	if !c.viewer.Authority {
		return scene.ErrUnauthorized
	}
	return nil
}
