package scene

import (
	"encoding/json"
	"fmt"
)

// Kind 도형 종류 (클라이언트의 type_ 필드)
type Kind string

const (
	KindRect          Kind = "rect"
	KindAssetRect     Kind = "assetrect"
	KindCircle        Kind = "circle"
	KindCircularToken Kind = "circulartoken"
	KindLine          Kind = "line"
	KindMultiLine     Kind = "multiline"
	KindText          Kind = "text"
)

// Geometry 도형 종류별 속성
type Geometry interface {
	Kind() Kind
	cloneGeometry() Geometry
}

type Rect struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type AssetRect struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Src    string  `json:"src"`
}

type Circle struct {
	Radius float64 `json:"radius"`
}

type CircularToken struct {
	Radius float64 `json:"radius"`
	Text   string  `json:"text"`
	Font   string  `json:"font"`
}

type Line struct {
	X2        float64 `json:"x2"`
	Y2        float64 `json:"y2"`
	LineWidth int     `json:"line_width"`
}

type MultiLine struct {
	LineWidth int          `json:"line_width"`
	Points    [][2]float64 `json:"points"`
}

type Text struct {
	Text  string  `json:"text"`
	Font  string  `json:"font"`
	Angle float64 `json:"angle"`
}

func (*Rect) Kind() Kind          { return KindRect }
func (*AssetRect) Kind() Kind     { return KindAssetRect }
func (*Circle) Kind() Kind        { return KindCircle }
func (*CircularToken) Kind() Kind { return KindCircularToken }
func (*Line) Kind() Kind          { return KindLine }
func (*MultiLine) Kind() Kind     { return KindMultiLine }
func (*Text) Kind() Kind          { return KindText }

func (g *Rect) cloneGeometry() Geometry {
	c := *g
	return &c
}

func (g *AssetRect) cloneGeometry() Geometry {
	c := *g
	return &c
}

func (g *Circle) cloneGeometry() Geometry {
	c := *g
	return &c
}

func (g *CircularToken) cloneGeometry() Geometry {
	c := *g
	return &c
}

func (g *Line) cloneGeometry() Geometry {
	c := *g
	return &c
}

func (g *Text) cloneGeometry() Geometry {
	c := *g
	return &c
}

func (g *MultiLine) cloneGeometry() Geometry {
	c := *g
	if g.Points != nil {
		c.Points = append([][2]float64(nil), g.Points...)
	}
	return &c
}

// NewGeometry 종류에 맞는 빈 Geometry 생성
func NewGeometry(kind Kind) (Geometry, error) {
	switch kind {
	case KindRect:
		return &Rect{}, nil
	case KindAssetRect:
		return &AssetRect{}, nil
	case KindCircle:
		return &Circle{}, nil
	case KindCircularToken:
		return &CircularToken{}, nil
	case KindLine:
		return &Line{}, nil
	case KindMultiLine:
		return &MultiLine{}, nil
	case KindText:
		return &Text{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// DecodeGeometry 저장된 JSON에서 Geometry 복원
func DecodeGeometry(kind Kind, raw []byte) (Geometry, error) {
	geo, err := NewGeometry(kind)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, geo); err != nil {
			return nil, fmt.Errorf("decode %s geometry: %w", kind, err)
		}
	}
	return geo, nil
}

// Tracker 도형에 붙는 수치 표시 (HP 등)
type Tracker struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	Value    int    `json:"value"`
	MaxValue int    `json:"maxvalue"`
	Visible  bool   `json:"visible"`
}

// Aura 도형 주변 반경 표시
type Aura struct {
	UUID         string  `json:"uuid"`
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Dim          float64 `json:"dim"`
	Colour       string  `json:"colour"`
	VisionSource bool    `json:"vision_source"`
	Visible      bool    `json:"visible"`
}

// Shape 레이어 위의 도형
//
// Owners 는 서버에서만 관리되며 클라이언트가 보낸 값은 무시된다.
type Shape struct {
	UUID                string    `json:"uuid"`
	Layer               string    `json:"layer"`
	Type                Kind      `json:"type_"`
	X                   float64   `json:"x"`
	Y                   float64   `json:"y"`
	Name                string    `json:"name"`
	FillColour          string    `json:"fill_colour"`
	StrokeColour        string    `json:"stroke_colour"`
	VisionObstruction   bool      `json:"vision_obstruction"`
	MovementObstruction bool      `json:"movement_obstruction"`
	IsToken             bool      `json:"is_token"`
	Annotation          string    `json:"annotation"`
	DrawOperator        string    `json:"draw_operator,omitempty"`
	Options             string    `json:"options,omitempty"`
	DefaultEditAccess   bool      `json:"default_edit_access"`
	DefaultVisionAccess bool      `json:"default_vision_access"`
	Trackers            []Tracker `json:"trackers"`
	Auras               []Aura    `json:"auras"`

	Owners   []ShapeOwner `json:"-"`
	Geometry Geometry     `json:"-"`
}

type shapeFields Shape

// MarshalJSON Geometry 필드를 도형 객체에 평탄화
func (s Shape) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(shapeFields(s))
	if err != nil {
		return nil, err
	}
	if s.Geometry == nil {
		return base, nil
	}
	geo, err := json.Marshal(s.Geometry)
	if err != nil {
		return nil, err
	}
	return mergeObjects(base, geo)
}

// UnmarshalJSON type_ 에 따라 Geometry 를 복원
func (s *Shape) UnmarshalJSON(data []byte) error {
	var fields shapeFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	geo, err := DecodeGeometry(fields.Type, data)
	if err != nil {
		return err
	}
	*s = Shape(fields)
	s.Geometry = geo
	return nil
}

// Clone 깊은 복사
func (s *Shape) Clone() *Shape {
	c := *s
	if s.Trackers != nil {
		c.Trackers = append([]Tracker(nil), s.Trackers...)
	}
	if s.Auras != nil {
		c.Auras = append([]Aura(nil), s.Auras...)
	}
	if s.Owners != nil {
		c.Owners = append([]ShapeOwner(nil), s.Owners...)
	}
	if s.Geometry != nil {
		c.Geometry = s.Geometry.cloneGeometry()
	}
	return &c
}

// MoveTo 위치와 형상만 반영
func (s *Shape) MoveTo(in *Shape) {
	s.X = in.X
	s.Y = in.Y
	if in.Geometry != nil && in.Type == s.Type {
		s.Geometry = in.Geometry.cloneGeometry()
	}
}

func mergeObjects(objs ...[]byte) ([]byte, error) {
	merged := make(map[string]json.RawMessage)
	for _, obj := range objs {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(obj, &m); err != nil {
			return nil, err
		}
		for k, v := range m {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
