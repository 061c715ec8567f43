package scene

// ShapeOwner 도형에 대한 사용자별 권한
type ShapeOwner struct {
	User         string `json:"user"`
	EditAccess   bool   `json:"edit_access"`
	VisionAccess bool   `json:"vision_access"`
}

// Viewer 권한 판단 대상 (Authority 는 방 생성자 여부)
type Viewer struct {
	Name      string
	Authority bool
}

// Grant 사용자의 명시적 권한 조회
func (s *Shape) Grant(user string) (ShapeOwner, bool) {
	for _, o := range s.Owners {
		if o.User == user {
			return o, true
		}
	}
	return ShapeOwner{}, false
}

// HasVisionAccess 숨겨진 정보(주석, 비공개 트래커/오라)를 볼 수 있는지
func (s *Shape) HasVisionAccess(v Viewer) bool {
	if v.Authority || s.DefaultVisionAccess {
		return true
	}
	o, ok := s.Grant(v.Name)
	return ok && o.VisionAccess
}

// HasEditAccess 도형 수정 가능 여부
func (s *Shape) HasEditAccess(v Viewer) bool {
	if v.Authority || s.DefaultEditAccess {
		return true
	}
	o, ok := s.Grant(v.Name)
	return ok && o.EditAccess
}

// CanManageOwners 소유권 변경 가능 여부
// 기본 권한(default)만으로는 소유권을 바꿀 수 없다.
func (s *Shape) CanManageOwners(v Viewer) bool {
	if v.Authority {
		return true
	}
	o, ok := s.Grant(v.Name)
	return ok && o.EditAccess
}

// OwnedBy 어떤 형태로든 명시적 권한이 있는지
func (s *Shape) OwnedBy(user string) bool {
	_, ok := s.Grant(user)
	return ok
}

// OwnerNames 명시적 권한을 가진 사용자 이름 목록
func (s *Shape) OwnerNames() []string {
	names := make([]string, 0, len(s.Owners))
	for _, o := range s.Owners {
		names = append(names, o.User)
	}
	return names
}

// setGrant 권한 추가 또는 교체 (사용자당 하나)
func (s *Shape) setGrant(grant ShapeOwner) {
	for i, o := range s.Owners {
		if o.User == grant.User {
			s.Owners[i] = grant
			return
		}
	}
	s.Owners = append(s.Owners, grant)
}

func (s *Shape) removeGrant(user string) bool {
	for i, o := range s.Owners {
		if o.User == user {
			s.Owners = append(s.Owners[:i], s.Owners[i+1:]...)
			return true
		}
	}
	return false
}

// AccessState 특정 사용자 기준 권한 스냅샷
type AccessState struct {
	Edit   bool
	Vision bool
}

// AccessFor 변경 전후 비교용
func (s *Shape) AccessFor(v Viewer) AccessState {
	return AccessState{Edit: s.HasEditAccess(v), Vision: s.HasVisionAccess(v)}
}
