package protocol

import (
	"encoding/json"

	"tabletop-backend/internal/scene"
)

// ShapeRef 도형 참조 (uuid + layer)
type ShapeRef struct {
	UUID  string `json:"uuid"`
	Layer string `json:"layer"`
}

type AddShape struct {
	Shape     scene.Shape `json:"shape"`
	Temporary bool        `json:"temporary"`
}

type RemoveShape struct {
	Shape     ShapeRef `json:"shape"`
	Temporary bool     `json:"temporary"`
}

// MoveShapeOrder index 가 0 이면 맨 뒤, 그 외에는 맨 앞으로
type MoveShapeOrder struct {
	Shape ShapeRef `json:"shape"`
	Index int      `json:"index"`
}

type ShapeMove struct {
	Shape     scene.Shape `json:"shape"`
	Temporary bool        `json:"temporary"`
}

type UpdateShape struct {
	Shape     scene.Shape `json:"shape"`
	Redraw    bool        `json:"redraw"`
	Temporary bool        `json:"temporary"`
}

type UpdateInitiative struct {
	scene.InitiativeUpdate
}

type RemoveGhostInitiative struct {
	UUID string `json:"ghostUuid"`
}

// SetClientOptions data 자체가 옵션 객체
type SetClientOptions struct {
	Options map[string]any
}

type SetLocationOptions struct {
	Options map[string]any
}

// SetGridSize data 는 숫자
type SetGridSize struct {
	Size float64
}

// NewLocation data 는 위치 이름 문자열
type NewLocation struct {
	Name string
}

type ChangeLocation struct {
	Name string
}

// BringPlayers 생성자의 시점 정보 그대로 전달
type BringPlayers struct {
	Raw json.RawMessage
}

type ShowAsset struct {
	Raw json.RawMessage
}

// OwnerGrant 소유권 이벤트 공통 페이로드
type OwnerGrant struct {
	Shape        string `json:"shape"`
	User         string `json:"user"`
	EditAccess   bool   `json:"edit_access"`
	VisionAccess bool   `json:"vision_access"`
}

// Owner 권한 값
func (g OwnerGrant) Owner() scene.ShapeOwner {
	return scene.ShapeOwner{User: g.User, EditAccess: g.EditAccess, VisionAccess: g.VisionAccess}
}

type OwnerAdd struct{ OwnerGrant }
type OwnerUpdate struct{ OwnerGrant }
type OwnerDelete struct{ OwnerGrant }

type OwnerDefault struct {
	Shape        string `json:"shape"`
	EditAccess   *bool  `json:"edit_access,omitempty"`
	VisionAccess *bool  `json:"vision_access,omitempty"`
}

func (*AddShape) EventName() string              { return EventAddShape }
func (*RemoveShape) EventName() string           { return EventRemoveShape }
func (*MoveShapeOrder) EventName() string        { return EventMoveShapeOrder }
func (*ShapeMove) EventName() string             { return EventShapeMove }
func (*UpdateShape) EventName() string           { return EventUpdateShape }
func (*UpdateInitiative) EventName() string      { return EventUpdateInitiative }
func (*RemoveGhostInitiative) EventName() string { return EventUpdateInitiative }
func (*SetClientOptions) EventName() string      { return EventSetClientOptions }
func (*SetLocationOptions) EventName() string    { return EventSetLocationOptions }
func (*SetGridSize) EventName() string           { return EventSetGridSize }
func (*NewLocation) EventName() string           { return EventNewLocation }
func (*ChangeLocation) EventName() string        { return EventChangeLocation }
func (*BringPlayers) EventName() string          { return EventBringPlayers }
func (*ShowAsset) EventName() string             { return EventShowAsset }
func (*OwnerAdd) EventName() string              { return EventOwnerAdd }
func (*OwnerUpdate) EventName() string           { return EventOwnerUpdate }
func (*OwnerDelete) EventName() string           { return EventOwnerDelete }
func (*OwnerDefault) EventName() string          { return EventOwnerDefault }

func (m *SetClientOptions) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.Options)
}

func (m SetClientOptions) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Options)
}

func (m *SetLocationOptions) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.Options)
}

func (m SetLocationOptions) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Options)
}

func (m *SetGridSize) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.Size)
}

func (m SetGridSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Size)
}

func (m *NewLocation) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.Name)
}

func (m *ChangeLocation) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.Name)
}

func (m *BringPlayers) UnmarshalJSON(data []byte) error {
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (m BringPlayers) MarshalJSON() ([]byte, error) {
	return m.Raw, nil
}

func (m *ShowAsset) UnmarshalJSON(data []byte) error {
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (m ShowAsset) MarshalJSON() ([]byte, error) {
	if len(m.Raw) == 0 {
		return []byte("null"), nil
	}
	return m.Raw, nil
}
