package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"tabletop-backend/internal/scene"
)

var ErrDuplicateConnection = errors.New("connection already registered")

// Peer 메시지를 받을 수 있는 연결 (웹소켓 클라이언트 등)
//
// Send 는 블로킹하지 않아야 하며, 버퍼가 가득 차면 false 를 반환한다.
type Peer interface {
	ID() string
	Send(frame []byte) bool
}

// Session 연결 하나에 대한 상태 (Thread-Safe)
type Session struct {
	ID          string
	Username    string
	Room        scene.RoomKey
	Peer        Peer
	ConnectedAt time.Time

	mu          sync.Mutex
	temporaries []temporary
}

// temporary 임시 도형과 추가된 위치
type temporary struct {
	location string
	shape    *scene.Shape
}

// New 새 세션 생성
func New(peer Peer, username string, room scene.RoomKey) *Session {
	return &Session{
		ID:          peer.ID(),
		Username:    username,
		Room:        room,
		Peer:        peer,
		ConnectedAt: time.Now(),
	}
}

// AddTemporary 연결이 끊기면 사라지는 임시 도형 등록
// location 은 도형이 추가된 위치로, 정리 알림 대상을 정한다.
func (s *Session) AddTemporary(location string, shape *scene.Shape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temporaries = append(s.temporaries, temporary{location: location, shape: shape})
}

// Temporary UUID 로 임시 도형 조회
func (s *Session) Temporary(uuid string) *scene.Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.temporaries {
		if t.shape.UUID == uuid {
			return t.shape
		}
	}
	return nil
}

// ReplaceTemporary 임시 도형 교체
func (s *Session) ReplaceTemporary(next *scene.Shape) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.temporaries {
		if t.shape.UUID == next.UUID {
			s.temporaries[i].shape = next
			return true
		}
	}
	return false
}

// RemoveTemporary 임시 도형 삭제
func (s *Session) RemoveTemporary(uuid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.temporaries {
		if t.shape.UUID == uuid {
			s.temporaries = append(s.temporaries[:i], s.temporaries[i+1:]...)
			return true
		}
	}
	return false
}

// DrainTemporaries 모든 임시 도형을 위치별로 꺼내고 비운다
func (s *Session) DrainTemporaries() map[string][]*scene.Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]*scene.Shape)
	for _, t := range s.temporaries {
		out[t.location] = append(out[t.location], t.shape)
	}
	s.temporaries = nil
	return out
}

// Registry 연결 ID → 세션 (Thread-Safe)
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byRoom   map[scene.RoomKey]map[string]*Session
}

// NewRegistry 빈 레지스트리 생성
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byRoom:   make(map[scene.RoomKey]map[string]*Session),
	}
}

// Register 연결 등록
func (r *Registry) Register(peer Peer, username string, room scene.RoomKey) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[peer.ID()]; exists {
		return nil, ErrDuplicateConnection
	}
	s := New(peer, username, room)
	r.sessions[s.ID] = s
	if r.byRoom[room] == nil {
		r.byRoom[room] = make(map[string]*Session)
	}
	r.byRoom[room][s.ID] = s
	return s, nil
}

// Deregister 연결 제거
func (r *Registry) Deregister(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	delete(r.sessions, id)
	if members := r.byRoom[s.Room]; members != nil {
		delete(members, id)
		if len(members) == 0 {
			delete(r.byRoom, s.Room)
		}
	}
	return s, true
}

// Get 연결 ID 로 세션 조회
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// InRoom 방에 연결된 세션 목록 (접속 순)
func (r *Registry) InRoom(room scene.RoomKey) []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.byRoom[room]))
	for _, s := range r.byRoom[room] {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// UserSessions 방 안의 특정 사용자 연결들
func (r *Registry) UserSessions(room scene.RoomKey, username string) []*Session {
	var out []*Session
	for _, s := range r.InRoom(room) {
		if s.Username == username {
			out = append(out, s)
		}
	}
	return out
}

// Count 전체 연결 수
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
