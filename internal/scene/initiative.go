package scene

import (
	"fmt"
	"sort"
)

// InitiativeEffect 턴 수가 있는 상태 효과
type InitiativeEffect struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Turns int    `json:"turns"`
}

// InitiativeEntry 전투 순서 항목 (UUID 는 도형 UUID)
type InitiativeEntry struct {
	UUID       string             `json:"uuid"`
	Initiative float64            `json:"initiative"`
	Visible    bool               `json:"visible"`
	Group      bool               `json:"group"`
	Src        string             `json:"src"`
	HasImg     bool               `json:"has_img"`
	Effects    []InitiativeEffect `json:"effects"`
}

// InitiativeUpdate 클라이언트가 보낸 부분 갱신
// Initiative 값이 없으면 해당 항목 삭제를 뜻한다.
type InitiativeUpdate struct {
	UUID       string              `json:"uuid"`
	Initiative *float64            `json:"initiative,omitempty"`
	Visible    *bool               `json:"visible,omitempty"`
	Group      *bool               `json:"group,omitempty"`
	Src        *string             `json:"src,omitempty"`
	HasImg     *bool               `json:"has_img,omitempty"`
	Effects    *[]InitiativeEffect `json:"effects,omitempty"`
}

// InitiativeChange 갱신 결과
type InitiativeChange struct {
	Entry      InitiativeEntry
	Removed    bool
	WasVisible bool
}

// InitiativeView 전송용 항목 (owners 포함)
type InitiativeView struct {
	InitiativeEntry
	Owners []string `json:"owners"`
}

// Initiative 위치별 전투 순서 목록
type Initiative struct {
	entries []InitiativeEntry
}

// Entries 현재 순서대로의 사본
func (in *Initiative) Entries() []InitiativeEntry {
	out := make([]InitiativeEntry, len(in.entries))
	for i, e := range in.entries {
		out[i] = e.clone()
	}
	return out
}

// Append 순서 변경 없이 추가 (저장소 복원용)
func (in *Initiative) Append(e InitiativeEntry) {
	in.entries = append(in.entries, e.clone())
}

// Find UUID 로 조회
func (in *Initiative) Find(uuid string) (InitiativeEntry, bool) {
	for _, e := range in.entries {
		if e.UUID == uuid {
			return e.clone(), true
		}
	}
	return InitiativeEntry{}, false
}

// Apply 갱신/생성/삭제 후 내림차순 안정 정렬
func (in *Initiative) Apply(u InitiativeUpdate) (InitiativeChange, error) {
	idx := -1
	for i, e := range in.entries {
		if e.UUID == u.UUID {
			idx = i
			break
		}
	}

	if u.Initiative == nil {
		if idx < 0 {
			return InitiativeChange{}, fmt.Errorf("initiative entry %s: %w", u.UUID, ErrNotFound)
		}
		removed := in.entries[idx]
		in.entries = append(in.entries[:idx], in.entries[idx+1:]...)
		return InitiativeChange{Entry: removed, Removed: true, WasVisible: removed.Visible}, nil
	}

	var change InitiativeChange
	if idx < 0 {
		in.entries = append(in.entries, InitiativeEntry{UUID: u.UUID})
		idx = len(in.entries) - 1
	} else {
		change.WasVisible = in.entries[idx].Visible
	}
	e := &in.entries[idx]
	e.Initiative = *u.Initiative
	if u.Visible != nil {
		e.Visible = *u.Visible
	}
	if u.Group != nil {
		e.Group = *u.Group
	}
	if u.Src != nil {
		e.Src = *u.Src
	}
	if u.HasImg != nil {
		e.HasImg = *u.HasImg
	}
	if u.Effects != nil {
		e.Effects = append([]InitiativeEffect(nil), (*u.Effects)...)
	}
	change.Entry = e.clone()
	in.sort()
	return change, nil
}

// Remove 항목 삭제
func (in *Initiative) Remove(uuid string) bool {
	for i, e := range in.entries {
		if e.UUID == uuid {
			in.entries = append(in.entries[:i], in.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (in *Initiative) sort() {
	sort.SliceStable(in.entries, func(i, j int) bool {
		return in.entries[i].Initiative > in.entries[j].Initiative
	})
}

func (e InitiativeEntry) clone() InitiativeEntry {
	if len(e.Effects) == 0 {
		e.Effects = nil
	} else {
		e.Effects = append([]InitiativeEffect(nil), e.Effects...)
	}
	return e
}
