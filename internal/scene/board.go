package scene

// LayerView board init 에 포함되는 레이어
type LayerView struct {
	Name           string      `json:"name"`
	Index          int         `json:"index"`
	PlayerVisible  bool        `json:"player_visible"`
	PlayerEditable bool        `json:"player_editable"`
	Selectable     bool        `json:"selectable"`
	Grid           bool        `json:"grid"`
	Size           float64     `json:"size,omitempty"`
	Shapes         []ShapeView `json:"shapes"`
}

// BoardView board init 페이로드
type BoardView struct {
	Locations []string    `json:"locations"`
	Layers    []LayerView `json:"layers"`
}

// LocationView set location 페이로드
type LocationView struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options"`
}

// Board 사용자의 현재 위치를 사용자 권한으로 투영
// 참가자에게는 player_visible 이 아닌 레이어의 도형이 비어 있다.
func (r *Room) Board(user string) BoardView {
	v := r.Viewer(user)
	board := BoardView{Locations: r.LocationNames(), Layers: []LayerView{}}
	loc := r.ActiveLocation(user)
	if loc == nil {
		return board
	}
	for _, layer := range loc.layers {
		lv := LayerView{
			Name:           layer.Name,
			Index:          layer.Index,
			PlayerVisible:  layer.PlayerVisible,
			PlayerEditable: layer.PlayerEditable,
			Selectable:     layer.Selectable,
			Grid:           layer.Grid,
			Size:           layer.Size,
			Shapes:         []ShapeView{},
		}
		if v.Authority || layer.PlayerVisible {
			for _, s := range layer.shapes {
				lv.Shapes = append(lv.Shapes, Project(s, v))
			}
		}
		board.Layers = append(board.Layers, lv)
	}
	return board
}

// LocationInfo set location 페이로드
func (l *Location) LocationInfo() LocationView {
	return LocationView{Name: l.Name, Options: cloneOptions(l.Options)}
}
