package game

import (
	"context"
	"fmt"
	"log"

	"tabletop-backend/internal/protocol"
	"tabletop-backend/internal/scene"
	"tabletop-backend/internal/session"
	"tabletop-backend/internal/storage"
)

// 부트스트랩 실패 시 이동할 경로
const (
	RedirectLogin = "/auth/login"
	RedirectRooms = "/rooms"
)

type roomInfo struct {
	Name    string `json:"name"`
	Creator string `json:"creator"`
}

// Join 연결을 방에 등록하고 초기 상태 전송
//
// 실패하면 redirect 이벤트를 보낸 뒤 에러를 반환하며,
// 호출자는 연결을 닫아야 한다.
func (h *Hub) Join(ctx context.Context, peer session.Peer, username string, key scene.RoomKey) (*session.Session, error) {
	if username == "" {
		h.redirect(peer, RedirectLogin)
		return nil, ErrNoIdentity
	}
	rs, ok := h.roomState(key)
	if !ok {
		h.redirect(peer, RedirectRooms)
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, key)
	}

	// 에셋 조회(S3 등)는 잠금 밖에서
	assets, err := h.assets.List(ctx)
	if err != nil {
		log.Printf("⚠️ [Assets] listing failed: %v", err)
		assets = storage.AssetList{storage.FilesKey: []storage.AssetFile{}}
	}

	rs.mu.Lock()
	if !rs.room.IsMember(username) {
		rs.mu.Unlock()
		h.redirect(peer, RedirectRooms)
		return nil, fmt.Errorf("%w: %s in %s", ErrNotMember, username, key)
	}
	sess, err := h.sessions.Register(peer, username, key)
	if err != nil {
		rs.mu.Unlock()
		return nil, err
	}
	out := &outbox{}
	h.bootstrap(out, rs.room, sess, assets)
	out.flush()
	rs.mu.Unlock()

	h.trackPresence(key, username)
	log.Printf("🔌 [Hub] %s joined %s (%s)", username, key, sess.ID)
	return sess, nil
}

// bootstrap 접속 직후 시퀀스
func (h *Hub) bootstrap(out *outbox, room *scene.Room, sess *session.Session, assets storage.AssetList) {
	out.send(sess.Peer, protocol.EventSetUsername, sess.Username)
	out.send(sess.Peer, protocol.EventSetRoomInfo, roomInfo{Name: room.Name, Creator: room.Creator})
	out.send(sess.Peer, protocol.EventBoardInit, room.Board(sess.Username))

	loc := room.ActiveLocation(sess.Username)
	if loc != nil {
		out.send(sess.Peer, protocol.EventSetLocation, loc.LocationInfo())
	}
	out.send(sess.Peer, protocol.EventSetClientOptions, h.users.Options(sess.Username))
	out.send(sess.Peer, protocol.EventAssetList, assets)
	if loc != nil {
		out.send(sess.Peer, protocol.EventSetInitiative, loc.InitiativeFor(room.Viewer(sess.Username)))
	}
}

// Leave 연결 해제 처리: 세션 제거, 임시 도형 정리, 방 저장
func (h *Hub) Leave(ctx context.Context, connID string) {
	sess, ok := h.sessions.Get(connID)
	if !ok {
		return
	}
	rs, ok := h.roomState(sess.Room)
	if !ok {
		h.sessions.Deregister(connID)
		return
	}

	rs.mu.Lock()
	h.sessions.Deregister(connID)
	out := &outbox{}
	// 위치별로 그 위치를 보고 있는 연결에 알린다
	for location, temps := range sess.DrainTemporaries() {
		uuids := make([]string, 0, len(temps))
		for _, t := range temps {
			uuids = append(uuids, t.UUID)
		}
		for _, s := range h.sessions.InRoom(sess.Room) {
			if rs.room.ActiveLocationName(s.Username) == location {
				out.send(s.Peer, protocol.EventClearTemporaries, uuids)
			}
		}
	}
	out.flush()
	stillOnline := len(h.sessions.UserSessions(sess.Room, sess.Username)) > 0
	snapshot := rs.room.Clone()
	rs.mu.Unlock()

	h.saves.SaveRoom(snapshot)
	if !stillOnline {
		h.trackPresence(sess.Room, sess.Username)
	}
	log.Printf("👋 [Hub] %s left %s (%s)", sess.Username, sess.Room, connID)
}

func (h *Hub) redirect(peer session.Peer, to string) {
	out := &outbox{}
	out.send(peer, protocol.EventRedirect, to)
	out.flush()
}
