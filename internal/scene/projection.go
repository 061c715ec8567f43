package scene

import "encoding/json"

// ShapeView 특정 시청자에게 보내는 도형 형태
type ShapeView struct {
	Shape  *Shape
	Owners []string
}

// MarshalJSON 도형 필드에 owners 를 덧붙인다
func (v ShapeView) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(v.Shape)
	if err != nil {
		return nil, err
	}
	owners, err := json.Marshal(map[string][]string{"owners": v.Owners})
	if err != nil {
		return nil, err
	}
	return mergeObjects(base, owners)
}

// Project 시청자 권한에 맞춰 숨김 정보를 제거한 사본
//
// 시야 권한이 없으면 주석이 비워지고 visible 이 아닌 트래커/오라가 빠진다.
// 원본은 변경하지 않는다.
func Project(s *Shape, v Viewer) ShapeView {
	view := s.Clone()
	view.Owners = nil
	if !s.HasVisionAccess(v) {
		view.Annotation = ""
		view.Trackers = visibleTrackers(s.Trackers)
		view.Auras = visibleAuras(s.Auras)
	}
	if view.Trackers == nil {
		view.Trackers = []Tracker{}
	}
	if view.Auras == nil {
		view.Auras = []Aura{}
	}
	return ShapeView{Shape: view, Owners: s.OwnerNames()}
}

func visibleTrackers(in []Tracker) []Tracker {
	out := make([]Tracker, 0, len(in))
	for _, t := range in {
		if t.Visible {
			out = append(out, t)
		}
	}
	return out
}

func visibleAuras(in []Aura) []Aura {
	out := make([]Aura, 0, len(in))
	for _, a := range in {
		if a.Visible {
			out = append(out, a)
		}
	}
	return out
}

// keepHiddenTrackers 시야 권한 없는 사용자의 수정에서 숨겨진 트래커 보존
func keepHiddenTrackers(stored, incoming []Tracker) []Tracker {
	hidden := make(map[string]bool)
	for _, t := range stored {
		if !t.Visible {
			hidden[t.UUID] = true
		}
	}
	var out []Tracker
	for _, t := range incoming {
		if !hidden[t.UUID] {
			out = append(out, t)
		}
	}
	for _, t := range stored {
		if !t.Visible {
			out = append(out, t)
		}
	}
	return out
}

func keepHiddenAuras(stored, incoming []Aura) []Aura {
	hidden := make(map[string]bool)
	for _, a := range stored {
		if !a.Visible {
			hidden[a.UUID] = true
		}
	}
	var out []Aura
	for _, a := range incoming {
		if !hidden[a.UUID] {
			out = append(out, a)
		}
	}
	for _, a := range stored {
		if !a.Visible {
			out = append(out, a)
		}
	}
	return out
}
