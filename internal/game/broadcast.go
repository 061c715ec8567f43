package game

import (
	"tabletop-backend/internal/protocol"
	"tabletop-backend/internal/scene"
	"tabletop-backend/internal/session"
)

// audience 같은 위치를 보고 있는 연결 (요청한 연결 제외)
func (c *call) audience(location string) []*session.Session {
	var out []*session.Session
	for _, s := range c.hub.sessions.InRoom(c.room.Key()) {
		if s.ID == c.sess.ID {
			continue
		}
		if c.room.ActiveLocationName(s.Username) == location {
			out = append(out, s)
		}
	}
	return out
}

// toLayer 레이어 가시성 규칙에 따라 수신자별 페이로드 전송
// 참가자는 player_visible 레이어만 받고, 생성자는 항상 받는다.
func (c *call) toLayer(event, location string, layer *scene.Layer, payload func(scene.Viewer) any) {
	for _, s := range c.audience(location) {
		v := c.room.Viewer(s.Username)
		if !v.Authority && !layer.PlayerVisible {
			continue
		}
		c.out.send(s.Peer, event, payload(v))
	}
}

// toLocation 같은 위치의 모든 수신자에게 동일 페이로드
func (c *call) toLocation(event, location string, payload any) {
	for _, s := range c.audience(location) {
		c.out.send(s.Peer, event, payload)
	}
}

// accessBefore 권한 변경 전 참가자별 권한 스냅샷
func (c *call) accessBefore(location string, shape *scene.Shape) map[string]scene.AccessState {
	before := make(map[string]scene.AccessState)
	for _, s := range c.audience(location) {
		v := c.room.Viewer(s.Username)
		if v.Authority {
			continue
		}
		before[s.Username] = shape.AccessFor(v)
	}
	return before
}

// resendChanged 권한이 바뀐 참가자에게 도형 전체와 전투 순서 재전송
func (c *call) resendChanged(loc *scene.Location, layer *scene.Layer, shape *scene.Shape, before map[string]scene.AccessState) {
	for _, s := range c.audience(loc.Name) {
		prev, ok := before[s.Username]
		if !ok {
			continue
		}
		v := c.room.Viewer(s.Username)
		if shape.AccessFor(v) == prev {
			continue
		}
		if layer.PlayerVisible {
			c.out.send(s.Peer, protocol.EventShapeSet, scene.Project(shape, v))
		}
		c.out.send(s.Peer, protocol.EventSetInitiative, loc.InitiativeFor(v))
	}
}

// sendLocation 위치 전환 시퀀스 (board init → set location → set clientOptions → setInitiative)
func (h *Hub) sendLocation(out *outbox, room *scene.Room, s *session.Session) {
	out.send(s.Peer, protocol.EventBoardInit, room.Board(s.Username))
	loc := room.ActiveLocation(s.Username)
	if loc == nil {
		return
	}
	out.send(s.Peer, protocol.EventSetLocation, loc.LocationInfo())
	out.send(s.Peer, protocol.EventSetClientOptions, h.users.Options(s.Username))
	out.send(s.Peer, protocol.EventSetInitiative, loc.InitiativeFor(room.Viewer(s.Username)))
}
