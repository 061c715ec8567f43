package game

import (
	"tabletop-backend/internal/protocol"
)

type initiativeRemoval struct {
	UUID string `json:"uuid"`
}

// updateInitiative 항목을 볼 수 없는 참가자에게는 삭제로 보낸다
func (c *call) updateInitiative(m *protocol.UpdateInitiative) error {
	loc, err := c.location()
	if err != nil {
		return err
	}
	change, err := loc.UpdateInitiative(m.InitiativeUpdate, c.viewer)
	if err != nil {
		return err
	}

	removal := initiativeRemoval{UUID: m.UUID}
	for _, s := range c.audience(loc.Name) {
		v := c.room.Viewer(s.Username)
		switch {
		case change.Removed:
			c.out.send(s.Peer, protocol.EventUpdateInitiative, removal)
		case loc.CanSeeInitiative(change.Entry, v):
			c.out.send(s.Peer, protocol.EventUpdateInitiative, loc.InitiativeView(change.Entry))
		case change.WasVisible:
			c.out.send(s.Peer, protocol.EventUpdateInitiative, removal)
		}
	}
	return nil
}

func (c *call) removeGhostInitiative(m *protocol.RemoveGhostInitiative) error {
	loc, err := c.location()
	if err != nil {
		return err
	}
	if err := loc.RemoveGhostInitiative(m.UUID, c.viewer); err != nil {
		return err
	}
	c.toLocation(protocol.EventUpdateInitiative, loc.Name, m)
	return nil
}
