package scene

import "fmt"

// 기본 레이어 이름
const (
	LayerMap    = "map"
	LayerGrid   = "grid"
	LayerTokens = "tokens"
	LayerDM     = "dm"
	LayerFOW    = "fow"
)

const DefaultGridSize = 50

// Location 방 안의 장면. 레이어와 전투 순서를 가진다
type Location struct {
	Name    string
	Options map[string]any

	Initiative Initiative

	layers []*Layer
}

// NewLocation 기본 레이어 구성으로 위치 생성
func NewLocation(name string) *Location {
	loc := &Location{Name: name, Options: map[string]any{}}
	defaults := []Layer{
		{Name: LayerMap, PlayerVisible: true, Selectable: true},
		{Name: LayerGrid, PlayerVisible: true, Grid: true, Size: DefaultGridSize},
		{Name: LayerTokens, PlayerVisible: true, PlayerEditable: true, Selectable: true},
		{Name: LayerDM, Selectable: true},
		{Name: LayerFOW, PlayerVisible: true},
	}
	for i := range defaults {
		layer := defaults[i]
		layer.Index = i
		loc.layers = append(loc.layers, &layer)
	}
	return loc
}

// Layers index 오름차순 레이어 목록
func (l *Location) Layers() []*Layer {
	return append([]*Layer(nil), l.layers...)
}

// Layer 이름으로 레이어 조회
func (l *Location) Layer(name string) *Layer {
	for _, layer := range l.layers {
		if layer.Name == name {
			return layer
		}
	}
	return nil
}

// AddLayer 레이어 추가 (이름 중복 불가, index 는 마지막보다 커야 함)
func (l *Location) AddLayer(layer *Layer) error {
	if l.Layer(layer.Name) != nil {
		return fmt.Errorf("layer %s: %w", layer.Name, ErrDuplicate)
	}
	if n := len(l.layers); n > 0 && l.layers[n-1].Index >= layer.Index {
		return fmt.Errorf("layer %s index %d out of order", layer.Name, layer.Index)
	}
	l.layers = append(l.layers, layer)
	return nil
}

// GridLayer 그리드 레이어 (없으면 nil)
func (l *Location) GridLayer() *Layer {
	for _, layer := range l.layers {
		if layer.Grid {
			return layer
		}
	}
	return nil
}

// FindShape 모든 레이어에서 UUID 검색
func (l *Location) FindShape(uuid string) (*Layer, *Shape) {
	for _, layer := range l.layers {
		if _, s := layer.Find(uuid); s != nil {
			return layer, s
		}
	}
	return nil, nil
}

// MergeOptions 위치 옵션 얕은 병합
func (l *Location) MergeOptions(patch map[string]any) {
	if l.Options == nil {
		l.Options = map[string]any{}
	}
	for k, v := range patch {
		l.Options[k] = v
	}
}

func (l *Location) shapeOnLayer(uuid string) (*Layer, *Shape, error) {
	layer, s := l.FindShape(uuid)
	if s == nil {
		return nil, nil, fmt.Errorf("shape %s in %s: %w", uuid, l.Name, ErrNotFound)
	}
	return layer, s, nil
}

// AddShape 도형 추가. 생성자가 아니면 요청자에게 전체 권한이 부여된다
func (l *Location) AddShape(in *Shape, v Viewer) (*Layer, *Shape, error) {
	layer := l.Layer(in.Layer)
	if layer == nil {
		return nil, nil, fmt.Errorf("layer %s in %s: %w", in.Layer, l.Name, ErrNotFound)
	}
	if !layer.CanAdd(v) {
		return nil, nil, fmt.Errorf("add to layer %s: %w", layer.Name, ErrUnauthorized)
	}
	if _, existing := l.FindShape(in.UUID); existing != nil {
		return nil, nil, fmt.Errorf("shape %s: %w", in.UUID, ErrDuplicate)
	}
	s := NewOwnedShape(in, v)
	layer.Append(s)
	return layer, s, nil
}

// NewOwnedShape 클라이언트 도형을 서버 소유 사본으로 변환
func NewOwnedShape(in *Shape, v Viewer) *Shape {
	s := in.Clone()
	s.Owners = nil
	if !v.Authority {
		s.setGrant(ShapeOwner{User: v.Name, EditAccess: true, VisionAccess: true})
	}
	return s
}

// RemoveShape 도형 삭제
func (l *Location) RemoveShape(uuid string, v Viewer) (*Layer, *Shape, error) {
	layer, s, err := l.shapeOnLayer(uuid)
	if err != nil {
		return nil, nil, err
	}
	if !layer.CanEdit(s, v) {
		return nil, nil, fmt.Errorf("remove shape %s: %w", uuid, ErrUnauthorized)
	}
	layer.remove(uuid)
	return layer, s, nil
}

// MoveShape 위치와 형상만 갱신
func (l *Location) MoveShape(in *Shape, v Viewer) (*Layer, *Shape, error) {
	layer, s, err := l.shapeOnLayer(in.UUID)
	if err != nil {
		return nil, nil, err
	}
	if !layer.CanEdit(s, v) {
		return nil, nil, fmt.Errorf("move shape %s: %w", in.UUID, ErrUnauthorized)
	}
	s.MoveTo(in)
	return layer, s, nil
}

// UpdateShape 도형 속성 교체
func (l *Location) UpdateShape(in *Shape, v Viewer) (*Layer, *Shape, error) {
	layer, s, err := l.shapeOnLayer(in.UUID)
	if err != nil {
		return nil, nil, err
	}
	if !layer.CanEdit(s, v) {
		return nil, nil, fmt.Errorf("update shape %s: %w", in.UUID, ErrUnauthorized)
	}
	next := MergeUpdate(s, in, v)
	layer.replace(s.UUID, next)
	return layer, next, nil
}

// MergeUpdate 저장된 도형에 클라이언트 수정을 반영한 새 도형
//
// 소유권과 기본 권한은 유지된다. 시야 권한이 없는 요청자는
// 주석과 숨겨진 트래커/오라를 바꿀 수 없다.
func MergeUpdate(stored, in *Shape, v Viewer) *Shape {
	next := in.Clone()
	next.UUID = stored.UUID
	next.Layer = stored.Layer
	next.Owners = append([]ShapeOwner(nil), stored.Owners...)
	next.DefaultEditAccess = stored.DefaultEditAccess
	next.DefaultVisionAccess = stored.DefaultVisionAccess
	if next.Geometry == nil && stored.Geometry != nil {
		next.Type = stored.Type
		next.Geometry = stored.Geometry.cloneGeometry()
	}
	if !stored.HasVisionAccess(v) {
		next.Annotation = stored.Annotation
		next.Trackers = keepHiddenTrackers(stored.Trackers, in.Trackers)
		next.Auras = keepHiddenAuras(stored.Auras, in.Auras)
	}
	return next
}

// ReorderShape 도형을 맨 앞 또는 맨 뒤로
func (l *Location) ReorderShape(uuid string, toFront bool, v Viewer) (*Layer, error) {
	layer, s, err := l.shapeOnLayer(uuid)
	if err != nil {
		return nil, err
	}
	if !layer.CanEdit(s, v) {
		return nil, fmt.Errorf("reorder shape %s: %w", uuid, ErrUnauthorized)
	}
	return layer, layer.reorder(uuid, toFront)
}

// SetOwner 권한 추가 또는 교체
func (l *Location) SetOwner(uuid string, grant ShapeOwner, v Viewer) (*Layer, *Shape, error) {
	layer, s, err := l.shapeOnLayer(uuid)
	if err != nil {
		return nil, nil, err
	}
	if !s.CanManageOwners(v) {
		return nil, nil, fmt.Errorf("grant on %s: %w", uuid, ErrUnauthorized)
	}
	s.setGrant(grant)
	return layer, s, nil
}

// UpdateOwner 기존 권한 수정
func (l *Location) UpdateOwner(uuid string, grant ShapeOwner, v Viewer) (*Layer, *Shape, error) {
	_, s, err := l.shapeOnLayer(uuid)
	if err != nil {
		return nil, nil, err
	}
	if !s.OwnedBy(grant.User) {
		return nil, nil, fmt.Errorf("grant for %s on %s: %w", grant.User, uuid, ErrNotFound)
	}
	return l.SetOwner(uuid, grant, v)
}

// RemoveOwner 권한 제거
func (l *Location) RemoveOwner(uuid, user string, v Viewer) (*Layer, *Shape, error) {
	layer, s, err := l.shapeOnLayer(uuid)
	if err != nil {
		return nil, nil, err
	}
	if !s.CanManageOwners(v) {
		return nil, nil, fmt.Errorf("revoke on %s: %w", uuid, ErrUnauthorized)
	}
	if !s.removeGrant(user) {
		return nil, nil, fmt.Errorf("grant for %s on %s: %w", user, uuid, ErrNotFound)
	}
	return layer, s, nil
}

// SetDefaultAccess 모든 사용자에 대한 기본 권한 변경
func (l *Location) SetDefaultAccess(uuid string, edit, vision *bool, v Viewer) (*Layer, *Shape, error) {
	layer, s, err := l.shapeOnLayer(uuid)
	if err != nil {
		return nil, nil, err
	}
	if !s.CanManageOwners(v) {
		return nil, nil, fmt.Errorf("default access on %s: %w", uuid, ErrUnauthorized)
	}
	if edit != nil {
		s.DefaultEditAccess = *edit
	}
	if vision != nil {
		s.DefaultVisionAccess = *vision
	}
	return layer, s, nil
}

// UpdateInitiative 도형 편집 권한이 있어야 해당 항목을 바꿀 수 있다
func (l *Location) UpdateInitiative(u InitiativeUpdate, v Viewer) (InitiativeChange, error) {
	_, s := l.FindShape(u.UUID)
	if s == nil {
		return InitiativeChange{}, fmt.Errorf("initiative shape %s: %w", u.UUID, ErrNotFound)
	}
	if !s.HasEditAccess(v) {
		return InitiativeChange{}, fmt.Errorf("initiative %s: %w", u.UUID, ErrUnauthorized)
	}
	return l.Initiative.Apply(u)
}

// RemoveGhostInitiative 도형이 없거나 요청자가 소유한 경우에만 삭제
func (l *Location) RemoveGhostInitiative(uuid string, v Viewer) error {
	if _, s := l.FindShape(uuid); s != nil && !s.HasEditAccess(v) {
		return fmt.Errorf("initiative %s: %w", uuid, ErrUnauthorized)
	}
	if !l.Initiative.Remove(uuid) {
		return fmt.Errorf("initiative entry %s: %w", uuid, ErrNotFound)
	}
	return nil
}

// CanSeeInitiative 공개 항목이거나 시청자가 도형을 편집할 수 있으면 보인다
func (l *Location) CanSeeInitiative(e InitiativeEntry, v Viewer) bool {
	if v.Authority || e.Visible {
		return true
	}
	_, s := l.FindShape(e.UUID)
	return s != nil && s.HasEditAccess(v)
}

// InitiativeView 항목 하나의 전송 형태
func (l *Location) InitiativeView(e InitiativeEntry) InitiativeView {
	view := InitiativeView{InitiativeEntry: e, Owners: []string{}}
	if view.Effects == nil {
		view.Effects = []InitiativeEffect{}
	}
	if _, s := l.FindShape(e.UUID); s != nil {
		view.Owners = s.OwnerNames()
	}
	return view
}

// InitiativeFor 시청자에게 보이는 전투 순서
func (l *Location) InitiativeFor(v Viewer) []InitiativeView {
	out := []InitiativeView{}
	for _, e := range l.Initiative.Entries() {
		if l.CanSeeInitiative(e, v) {
			out = append(out, l.InitiativeView(e))
		}
	}
	return out
}

func (l *Location) clone() *Location {
	c := &Location{
		Name:       l.Name,
		Options:    cloneOptions(l.Options),
		Initiative: Initiative{entries: l.Initiative.Entries()},
	}
	if len(c.Initiative.entries) == 0 {
		c.Initiative.entries = nil
	}
	for _, layer := range l.layers {
		c.layers = append(c.layers, layer.clone())
	}
	return c
}
