package scene

import (
	"fmt"

	"github.com/google/uuid"
)

// StartLocation 새 방의 첫 위치 이름
const StartLocation = "start"

// RoomKey 방 식별자 (생성자 + 이름)
type RoomKey struct {
	Creator string
	Name    string
}

func (k RoomKey) String() string {
	return k.Creator + "/" + k.Name
}

// Room 게임 방. 생성자(DM)와 참가자, 위치 목록을 가진다
type Room struct {
	Name           string
	Creator        string
	InvitationCode string
	Players        []string
	DMLocation     string
	PlayerLocation string

	locations []*Location
}

// NewRoom 기본 위치가 있는 방 생성
func NewRoom(creator, name string) *Room {
	return &Room{
		Name:           name,
		Creator:        creator,
		InvitationCode: uuid.New().String(),
		DMLocation:     StartLocation,
		PlayerLocation: StartLocation,
		locations:      []*Location{NewLocation(StartLocation)},
	}
}

// Key 방 키
func (r *Room) Key() RoomKey {
	return RoomKey{Creator: r.Creator, Name: r.Name}
}

// Viewer 사용자 이름에 권한 여부를 붙인다
func (r *Room) Viewer(user string) Viewer {
	return Viewer{Name: user, Authority: user == r.Creator}
}

// IsMember 생성자이거나 참가자인지
func (r *Room) IsMember(user string) bool {
	if user == r.Creator {
		return true
	}
	for _, p := range r.Players {
		if p == user {
			return true
		}
	}
	return false
}

// AddPlayer 참가자 추가 (이미 멤버면 false)
func (r *Room) AddPlayer(user string) bool {
	if r.IsMember(user) {
		return false
	}
	r.Players = append(r.Players, user)
	return true
}

// Locations 위치 목록
func (r *Room) Locations() []*Location {
	return append([]*Location(nil), r.locations...)
}

// LocationNames 위치 이름 목록
func (r *Room) LocationNames() []string {
	names := make([]string, 0, len(r.locations))
	for _, l := range r.locations {
		names = append(names, l.Name)
	}
	return names
}

// Location 이름으로 위치 조회
func (r *Room) Location(name string) *Location {
	for _, l := range r.locations {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// AddLocation 위치 추가 (이름 중복 불가)
func (r *Room) AddLocation(loc *Location) error {
	if r.Location(loc.Name) != nil {
		return fmt.Errorf("location %s: %w", loc.Name, ErrDuplicate)
	}
	r.locations = append(r.locations, loc)
	return nil
}

// ActiveLocationName 사용자가 보고 있는 위치 이름
func (r *Room) ActiveLocationName(user string) string {
	if user == r.Creator {
		return r.DMLocation
	}
	return r.PlayerLocation
}

// ActiveLocation 사용자가 보고 있는 위치
func (r *Room) ActiveLocation(user string) *Location {
	return r.Location(r.ActiveLocationName(user))
}

// CreateLocation 새 위치를 만들고 생성자만 그 위치로 이동
func (r *Room) CreateLocation(name string, v Viewer) (*Location, error) {
	if !v.Authority {
		return nil, fmt.Errorf("create location %s: %w", name, ErrUnauthorized)
	}
	loc := NewLocation(name)
	if err := r.AddLocation(loc); err != nil {
		return nil, err
	}
	r.DMLocation = name
	return loc, nil
}

// ChangeLocation 생성자와 참가자 모두 같은 위치로 이동
func (r *Room) ChangeLocation(name string, v Viewer) (*Location, error) {
	if !v.Authority {
		return nil, fmt.Errorf("change location to %s: %w", name, ErrUnauthorized)
	}
	loc := r.Location(name)
	if loc == nil {
		return nil, fmt.Errorf("location %s: %w", name, ErrNotFound)
	}
	r.DMLocation = name
	r.PlayerLocation = name
	return loc, nil
}

// Clone 저장용 깊은 복사
func (r *Room) Clone() *Room {
	c := *r
	c.Players = nil
	if len(r.Players) > 0 {
		c.Players = append([]string(nil), r.Players...)
	}
	c.locations = nil
	for _, l := range r.locations {
		c.locations = append(c.locations, l.clone())
	}
	return &c
}

func cloneOptions(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneOptions(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// CloneOptions JSON 형태 옵션 깊은 복사
func CloneOptions(in map[string]any) map[string]any {
	return cloneOptions(in)
}

// MergeOptions 중첩 맵을 재귀적으로 병합 (클라이언트 옵션)
func MergeOptions(dst, patch map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range patch {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = cloneValue(v)
			continue
		}
		existing, _ := dst[k].(map[string]any)
		dst[k] = MergeOptions(existing, sub)
	}
	return dst
}
