package game

import (
	"fmt"

	"tabletop-backend/internal/protocol"
	"tabletop-backend/internal/scene"
)

type accessChange func(loc *scene.Location) (*scene.Layer, *scene.Shape, error)

// changeAccess 권한 변경을 적용하고 이벤트 미러링 + 권한이 바뀐 참가자에게 재전송
func (c *call) changeAccess(event, uuid string, payload any, apply accessChange) error {
	loc, err := c.location()
	if err != nil {
		return err
	}
	_, target := loc.FindShape(uuid)
	if target == nil {
		return fmt.Errorf("shape %s: %w", uuid, scene.ErrNotFound)
	}

	before := c.accessBefore(loc.Name, target)
	layer, shape, err := apply(loc)
	if err != nil {
		return err
	}
	c.toLocation(event, loc.Name, payload)
	c.resendChanged(loc, layer, shape, before)
	return nil
}

func (c *call) ownerAdd(m *protocol.OwnerAdd) error {
	if !c.hub.users.Exists(m.User) {
		return fmt.Errorf("user %s: %w", m.User, scene.ErrNotFound)
	}
	// 생성자는 항상 전체 권한
	if m.User == c.room.Creator {
		return nil
	}
	return c.changeAccess(protocol.EventOwnerAdd, m.Shape, m, func(loc *scene.Location) (*scene.Layer, *scene.Shape, error) {
		return loc.SetOwner(m.Shape, m.Owner(), c.viewer)
	})
}

func (c *call) ownerUpdate(m *protocol.OwnerUpdate) error {
	return c.changeAccess(protocol.EventOwnerUpdate, m.Shape, m, func(loc *scene.Location) (*scene.Layer, *scene.Shape, error) {
		return loc.UpdateOwner(m.Shape, m.Owner(), c.viewer)
	})
}

func (c *call) ownerDelete(m *protocol.OwnerDelete) error {
	return c.changeAccess(protocol.EventOwnerDelete, m.Shape, m, func(loc *scene.Location) (*scene.Layer, *scene.Shape, error) {
		return loc.RemoveOwner(m.Shape, m.User, c.viewer)
	})
}

func (c *call) ownerDefault(m *protocol.OwnerDefault) error {
	return c.changeAccess(protocol.EventOwnerDefault, m.Shape, m, func(loc *scene.Location) (*scene.Layer, *scene.Shape, error) {
		return loc.SetDefaultAccess(m.Shape, m.EditAccess, m.VisionAccess, c.viewer)
	})
}
