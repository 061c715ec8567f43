package game

import (
	"fmt"

	"tabletop-backend/internal/protocol"
	"tabletop-backend/internal/scene"
)

func (c *call) setLocationOptions(m *protocol.SetLocationOptions) error {
	if err := c.requireAuthority(); err != nil {
		return err
	}
	loc, err := c.location()
	if err != nil {
		return err
	}
	loc.MergeOptions(m.Options)
	c.toLocation(protocol.EventSetLocationOptions, loc.Name, m)
	return nil
}

func (c *call) setGridSize(m *protocol.SetGridSize) error {
	if err := c.requireAuthority(); err != nil {
		return err
	}
	if m.Size <= 0 {
		return fmt.Errorf("grid size %v", m.Size)
	}
	loc, err := c.location()
	if err != nil {
		return err
	}
	grid := loc.GridLayer()
	if grid == nil {
		return fmt.Errorf("grid layer in %s: %w", loc.Name, scene.ErrNotFound)
	}
	grid.Size = m.Size
	c.toLocation(protocol.EventSetGridSize, loc.Name, m)
	return nil
}

// newLocation 생성자만 새 위치로 이동
func (c *call) newLocation(m *protocol.NewLocation) error {
	if _, err := c.room.CreateLocation(m.Name, c.viewer); err != nil {
		return err
	}
	for _, s := range c.hub.sessions.UserSessions(c.room.Key(), c.room.Creator) {
		c.hub.sendLocation(c.out, c.room, s)
	}
	c.save = true
	return nil
}

// changeLocation 모든 연결을 새 위치로
func (c *call) changeLocation(m *protocol.ChangeLocation) error {
	if _, err := c.room.ChangeLocation(m.Name, c.viewer); err != nil {
		return err
	}
	for _, s := range c.hub.sessions.InRoom(c.room.Key()) {
		c.hub.sendLocation(c.out, c.room, s)
	}
	c.save = true
	return nil
}

// bringPlayers 생성자의 시점을 참가자들에게 전달
func (c *call) bringPlayers(m *protocol.BringPlayers) error {
	if err := c.requireAuthority(); err != nil {
		return err
	}
	for _, s := range c.hub.sessions.InRoom(c.room.Key()) {
		if s.Username == c.room.Creator {
			continue
		}
		c.out.send(s.Peer, protocol.EventBringPlayers, m)
	}
	return nil
}

func (c *call) showAsset(m *protocol.ShowAsset) error {
	if err := c.requireAuthority(); err != nil {
		return err
	}
	loc, err := c.location()
	if err != nil {
		return err
	}
	c.toLocation(protocol.EventShowAsset, loc.Name, m)
	return nil
}
