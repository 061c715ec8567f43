package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"tabletop-backend/internal/scene"
	"tabletop-backend/internal/session"
	"tabletop-backend/internal/storage"
)

var (
	ErrNoIdentity    = errors.New("no identity")
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomExists    = errors.New("room already exists")
	ErrNotMember     = errors.New("not a member of the room")
	ErrInvalidInvite = errors.New("invalid invitation code")
	ErrInvalidName   = errors.New("invalid room name")
)

// AssetCatalog 에셋 목록 제공자
type AssetCatalog interface {
	List(ctx context.Context) (storage.AssetList, error)
}

// Presence 접속 현황 추적 (Redis 등)
type Presence interface {
	Join(ctx context.Context, room, user string) error
	Leave(ctx context.Context, room, user string) error
}

// SaveQueue 비동기 저장 요청 (호출자는 블로킹되지 않는다)
type SaveQueue interface {
	SaveRoom(room *scene.Room)
	SaveUser(name string, options map[string]any)
}

// Options Hub 의존성
type Options struct {
	Users    *Directory
	Sessions *session.Registry
	Assets   AssetCatalog
	Saves    SaveQueue
	Presence Presence
}

// roomState 방 하나의 직렬화 단위
type roomState struct {
	mu   sync.Mutex
	room *scene.Room
}

// Hub 모든 방과 연결을 관리
//
// 방마다 mutex 하나로 변경을 직렬화하고, 같은 잠금 안에서
// 수신자별 투영과 전송 큐 적재까지 끝낸다.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[scene.RoomKey]*roomState
	invites map[string]scene.RoomKey

	sessions *session.Registry
	users    *Directory
	assets   AssetCatalog
	saves    SaveQueue
	presence Presence

	presenceMu sync.Mutex
}

// NewHub 생성자
func NewHub(opts Options) *Hub {
	h := &Hub{
		rooms:    make(map[scene.RoomKey]*roomState),
		invites:  make(map[string]scene.RoomKey),
		sessions: opts.Sessions,
		users:    opts.Users,
		assets:   opts.Assets,
		saves:    opts.Saves,
		presence: opts.Presence,
	}
	if h.sessions == nil {
		h.sessions = session.NewRegistry()
	}
	if h.users == nil {
		h.users = NewDirectory()
	}
	if h.assets == nil {
		h.assets = storage.Empty{}
	}
	if h.saves == nil {
		h.saves = discardSaves{}
	}
	if h.presence == nil {
		h.presence = nopPresence{}
	}
	return h
}

// Sessions 세션 레지스트리
func (h *Hub) Sessions() *session.Registry {
	return h.sessions
}

// Users 사용자 디렉터리
func (h *Hub) Users() *Directory {
	return h.users
}

// LoadRooms 저장소에서 읽은 방 등록
func (h *Hub) LoadRooms(rooms []*scene.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range rooms {
		h.rooms[r.Key()] = &roomState{room: r}
		h.invites[r.InvitationCode] = r.Key()
	}
	log.Printf("📦 [Hub] %d rooms loaded", len(rooms))
}

func (h *Hub) roomState(key scene.RoomKey) (*roomState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rs, ok := h.rooms[key]
	return rs, ok
}

// RoomSummary 방 목록 항목
type RoomSummary struct {
	Name           string `json:"name"`
	Creator        string `json:"creator"`
	InvitationCode string `json:"invitationCode,omitempty"`
}

// CreateRoom 새 방 생성
func (h *Hub) CreateRoom(creator, name string) (RoomSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return RoomSummary{}, ErrInvalidName
	}

	h.mu.Lock()
	key := scene.RoomKey{Creator: creator, Name: name}
	if _, exists := h.rooms[key]; exists {
		h.mu.Unlock()
		return RoomSummary{}, fmt.Errorf("%w: %s", ErrRoomExists, key)
	}
	room := scene.NewRoom(creator, name)
	h.rooms[key] = &roomState{room: room}
	h.invites[room.InvitationCode] = key
	snapshot := room.Clone()
	h.mu.Unlock()

	h.saves.SaveRoom(snapshot)
	log.Printf("🆕 [Hub] room %s created", key)
	return RoomSummary{Name: name, Creator: creator, InvitationCode: room.InvitationCode}, nil
}

// RoomsFor 사용자가 만든 방과 참가한 방
func (h *Hub) RoomsFor(user string) (owned, joined []RoomSummary) {
	owned, joined = []RoomSummary{}, []RoomSummary{}
	for _, rs := range h.allRooms() {
		rs.mu.Lock()
		r := rs.room
		switch {
		case r.Creator == user:
			owned = append(owned, RoomSummary{Name: r.Name, Creator: r.Creator, InvitationCode: r.InvitationCode})
		case r.IsMember(user):
			joined = append(joined, RoomSummary{Name: r.Name, Creator: r.Creator})
		}
		rs.mu.Unlock()
	}
	return owned, joined
}

// ClaimInvite 초대 코드로 방 참가
func (h *Hub) ClaimInvite(code, user string) (scene.RoomKey, error) {
	h.mu.RLock()
	key, ok := h.invites[code]
	h.mu.RUnlock()
	if !ok {
		return scene.RoomKey{}, ErrInvalidInvite
	}
	rs, ok := h.roomState(key)
	if !ok {
		return scene.RoomKey{}, ErrInvalidInvite
	}

	rs.mu.Lock()
	added := rs.room.AddPlayer(user)
	var snapshot *scene.Room
	if added {
		snapshot = rs.room.Clone()
	}
	rs.mu.Unlock()

	if added {
		h.saves.SaveRoom(snapshot)
		log.Printf("🎟️ [Hub] %s joined %s via invite", user, key)
	}
	return key, nil
}

// Snapshot 모든 방의 저장용 사본
func (h *Hub) Snapshot() []*scene.Room {
	var out []*scene.Room
	for _, rs := range h.allRooms() {
		rs.mu.Lock()
		out = append(out, rs.room.Clone())
		rs.mu.Unlock()
	}
	return out
}

func (h *Hub) allRooms() []*roomState {
	h.mu.RLock()
	out := make([]*roomState, 0, len(h.rooms))
	keys := make([]scene.RoomKey, 0, len(h.rooms))
	for k := range h.rooms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		out = append(out, h.rooms[k])
	}
	h.mu.RUnlock()
	return out
}

// trackPresence Redis 등 외부 I/O 는 방 잠금 밖에서 비동기로
//
// 요청 시점이 아니라 실행 시점의 연결 상태를 기록하므로
// 빠른 재접속에서 Leave 가 Join 뒤에 도착해도 결과가 맞다.
func (h *Hub) trackPresence(key scene.RoomKey, user string) {
	go func() {
		h.presenceMu.Lock()
		defer h.presenceMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		var err error
		if len(h.sessions.UserSessions(key, user)) > 0 {
			err = h.presence.Join(ctx, key.String(), user)
		} else {
			err = h.presence.Leave(ctx, key.String(), user)
		}
		if err != nil {
			log.Printf("⚠️ [Presence] %s in %s: %v", user, key, err)
		}
	}()
}

type discardSaves struct{}

func (discardSaves) SaveRoom(*scene.Room)          {}
func (discardSaves) SaveUser(string, map[string]any) {}

type nopPresence struct{}

func (nopPresence) Join(context.Context, string, string) error  { return nil }
func (nopPresence) Leave(context.Context, string, string) error { return nil }

// RoomDetail 방 상세 (구성원 전용)
type RoomDetail struct {
	Name      string   `json:"name"`
	Creator   string   `json:"creator"`
	Players   []string `json:"players"`
	Locations []string `json:"locations"`
	Online    []string `json:"online"`
}

// Membership 사용자와 방의 관계
func (h *Hub) Membership(key scene.RoomKey, user string) (member, creator bool, err error) {
	rs, ok := h.roomState(key)
	if !ok {
		return false, false, fmt.Errorf("%w: %s", ErrRoomNotFound, key)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.room.IsMember(user), rs.room.Creator == user, nil
}

// Detail 방 상세 조회
func (h *Hub) Detail(key scene.RoomKey) (RoomDetail, error) {
	rs, ok := h.roomState(key)
	if !ok {
		return RoomDetail{}, fmt.Errorf("%w: %s", ErrRoomNotFound, key)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	online := []string{}
	seen := map[string]bool{}
	for _, s := range h.sessions.InRoom(key) {
		if !seen[s.Username] {
			seen[s.Username] = true
			online = append(online, s.Username)
		}
	}
	sort.Strings(online)
	return RoomDetail{
		Name:      rs.room.Name,
		Creator:   rs.room.Creator,
		Players:   append([]string{}, rs.room.Players...),
		Locations: rs.room.LocationNames(),
		Online:    online,
	}, nil
}

// InvitationCode 초대 코드 (생성자 전용 경로에서 사용)
func (h *Hub) InvitationCode(key scene.RoomKey) (string, error) {
	rs, ok := h.roomState(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRoomNotFound, key)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.room.InvitationCode, nil
}
