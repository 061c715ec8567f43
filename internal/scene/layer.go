package scene

import "fmt"

// Layer 위치 안의 그리기 레이어 (index 순으로 쌓임)
type Layer struct {
	Name           string
	Index          int
	PlayerVisible  bool
	PlayerEditable bool
	Selectable     bool
	Grid           bool
	Size           float64

	shapes []*Shape
}

// Shapes 그리기 순서대로의 도형 목록 (앞쪽이 먼저 그려짐)
func (l *Layer) Shapes() []*Shape {
	return append([]*Shape(nil), l.shapes...)
}

// Len 도형 수
func (l *Layer) Len() int {
	return len(l.shapes)
}

// Append 맨 위(마지막)에 도형 추가. 저장소 복원 시에도 사용
func (l *Layer) Append(s *Shape) {
	s.Layer = l.Name
	l.shapes = append(l.shapes, s)
}

// Find UUID 로 도형 조회
func (l *Layer) Find(uuid string) (int, *Shape) {
	for i, s := range l.shapes {
		if s.UUID == uuid {
			return i, s
		}
	}
	return -1, nil
}

// CanAdd 시청자가 이 레이어에 도형을 추가할 수 있는지
func (l *Layer) CanAdd(v Viewer) bool {
	return v.Authority || l.PlayerEditable
}

// CanEdit 시청자가 이 레이어의 도형을 수정/삭제할 수 있는지
func (l *Layer) CanEdit(s *Shape, v Viewer) bool {
	if v.Authority {
		return true
	}
	return l.PlayerEditable && s.HasEditAccess(v)
}

func (l *Layer) remove(uuid string) *Shape {
	i, s := l.Find(uuid)
	if s == nil {
		return nil
	}
	l.shapes = append(l.shapes[:i], l.shapes[i+1:]...)
	return s
}

func (l *Layer) replace(uuid string, next *Shape) {
	if i, s := l.Find(uuid); s != nil {
		l.shapes[i] = next
	}
}

// reorder 도형을 맨 앞(그리기 순서 끝) 또는 맨 뒤로 이동
func (l *Layer) reorder(uuid string, toFront bool) error {
	s := l.remove(uuid)
	if s == nil {
		return fmt.Errorf("shape %s on layer %s: %w", uuid, l.Name, ErrNotFound)
	}
	if toFront {
		l.shapes = append(l.shapes, s)
	} else {
		l.shapes = append([]*Shape{s}, l.shapes...)
	}
	return nil
}

func (l *Layer) clone() *Layer {
	c := *l
	c.shapes = nil
	for _, s := range l.shapes {
		c.shapes = append(c.shapes, normalizeShape(s.Clone()))
	}
	return &c
}

// normalizeShape 빈 슬라이스를 nil 로 통일 (저장 전후 비교용)
func normalizeShape(s *Shape) *Shape {
	if len(s.Trackers) == 0 {
		s.Trackers = nil
	}
	if len(s.Auras) == 0 {
		s.Auras = nil
	}
	if len(s.Owners) == 0 {
		s.Owners = nil
	}
	if ml, ok := s.Geometry.(*MultiLine); ok && len(ml.Points) == 0 {
		ml.Points = nil
	}
	return s
}
