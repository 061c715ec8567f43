package game

import (
	"log"

	"tabletop-backend/internal/protocol"
	"tabletop-backend/internal/session"
)

type frame struct {
	peer session.Peer
	data []byte
}

// outbox 한 이벤트 처리 동안 쌓인 전송 목록
// 방 잠금 안에서 flush 되므로 같은 방의 이벤트 순서가 유지된다.
type outbox struct {
	frames []frame
}

func (o *outbox) send(peer session.Peer, event string, data any) {
	encoded, err := protocol.Encode(event, data)
	if err != nil {
		log.Printf("❌ [Hub] %v", err)
		return
	}
	o.frames = append(o.frames, frame{peer: peer, data: encoded})
}

func (o *outbox) flush() {
	for _, f := range o.frames {
		if !f.peer.Send(f.data) {
			log.Printf("⚠️ [Hub] send buffer full, dropping frame for %s", f.peer.ID())
		}
	}
	o.frames = nil
}
