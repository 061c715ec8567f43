package database

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"tabletop-backend/internal/model"
	"tabletop-backend/internal/scene"
)

func marshalJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func unmarshalOptions(raw datatypes.JSON) (map[string]any, error) {
	opts := map[string]any{}
	if len(raw) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = map[string]any{}
	}
	return opts, nil
}

// roomToModel 장면 → 테이블 행 (Position 으로 순서 보존)
func roomToModel(r *scene.Room) (*model.Room, error) {
	m := &model.Room{
		Name:           r.Name,
		CreatorName:    r.Creator,
		InvitationCode: r.InvitationCode,
		DMLocation:     r.DMLocation,
		PlayerLocation: r.PlayerLocation,
	}
	for i, p := range r.Players {
		m.Players = append(m.Players, model.RoomPlayer{UserName: p, Position: i})
	}
	for i, loc := range r.Locations() {
		ml, err := locationToModel(loc, i)
		if err != nil {
			return nil, fmt.Errorf("location %s: %w", loc.Name, err)
		}
		m.Locations = append(m.Locations, ml)
	}
	return m, nil
}

func locationToModel(loc *scene.Location, pos int) (model.Location, error) {
	opts, err := marshalJSON(loc.Options)
	if err != nil {
		return model.Location{}, err
	}
	ml := model.Location{Name: loc.Name, Position: pos, Options: opts}

	for _, layer := range loc.Layers() {
		mlayer := model.Layer{
			Name:           layer.Name,
			LayerIndex:     layer.Index,
			PlayerVisible:  layer.PlayerVisible,
			PlayerEditable: layer.PlayerEditable,
			Selectable:     layer.Selectable,
			Grid:           layer.Grid,
			Size:           layer.Size,
		}
		for i, s := range layer.Shapes() {
			ms, err := shapeToModel(s, i)
			if err != nil {
				return model.Location{}, fmt.Errorf("shape %s: %w", s.UUID, err)
			}
			mlayer.Shapes = append(mlayer.Shapes, ms)
		}
		ml.Layers = append(ml.Layers, mlayer)
	}

	for i, e := range loc.Initiative.Entries() {
		effects, err := marshalJSON(e.Effects)
		if err != nil {
			return model.Location{}, err
		}
		ml.Initiatives = append(ml.Initiatives, model.Initiative{
			Position:   i,
			UUID:       e.UUID,
			Initiative: e.Initiative,
			Visible:    e.Visible,
			IsGroup:    e.Group,
			Src:        e.Src,
			HasImg:     e.HasImg,
			Effects:    effects,
		})
	}
	return ml, nil
}

func shapeToModel(s *scene.Shape, pos int) (model.Shape, error) {
	var geometry datatypes.JSON
	if s.Geometry != nil {
		raw, err := marshalJSON(s.Geometry)
		if err != nil {
			return model.Shape{}, err
		}
		geometry = raw
	}
	ms := model.Shape{
		UUID:                s.UUID,
		Position:            pos,
		Type:                string(s.Type),
		X:                   s.X,
		Y:                   s.Y,
		Name:                s.Name,
		FillColour:          s.FillColour,
		StrokeColour:        s.StrokeColour,
		VisionObstruction:   s.VisionObstruction,
		MovementObstruction: s.MovementObstruction,
		IsToken:             s.IsToken,
		Annotation:          s.Annotation,
		DrawOperator:        s.DrawOperator,
		Options:             s.Options,
		DefaultEditAccess:   s.DefaultEditAccess,
		DefaultVisionAccess: s.DefaultVisionAccess,
		Geometry:            geometry,
	}
	for i, t := range s.Trackers {
		ms.Trackers = append(ms.Trackers, model.Tracker{
			Position: i, UUID: t.UUID, Name: t.Name, Value: t.Value, MaxValue: t.MaxValue, Visible: t.Visible,
		})
	}
	for i, a := range s.Auras {
		ms.Auras = append(ms.Auras, model.Aura{
			Position: i, UUID: a.UUID, Name: a.Name, Value: a.Value, Dim: a.Dim,
			Colour: a.Colour, VisionSource: a.VisionSource, Visible: a.Visible,
		})
	}
	for i, o := range s.Owners {
		ms.Owners = append(ms.Owners, model.ShapeOwner{
			Position: i, UserName: o.User, EditAccess: o.EditAccess, VisionAccess: o.VisionAccess,
		})
	}
	return ms, nil
}

// roomFromModel 테이블 행 → 장면 (자식은 Position 순으로 preload 되어 있어야 함)
func roomFromModel(m *model.Room) (*scene.Room, error) {
	r := &scene.Room{
		Name:           m.Name,
		Creator:        m.CreatorName,
		InvitationCode: m.InvitationCode,
		DMLocation:     m.DMLocation,
		PlayerLocation: m.PlayerLocation,
	}
	for _, p := range m.Players {
		r.Players = append(r.Players, p.UserName)
	}
	for _, ml := range m.Locations {
		loc, err := locationFromModel(&ml)
		if err != nil {
			return nil, fmt.Errorf("room %s location %s: %w", r.Key(), ml.Name, err)
		}
		if err := r.AddLocation(loc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func locationFromModel(ml *model.Location) (*scene.Location, error) {
	opts, err := unmarshalOptions(ml.Options)
	if err != nil {
		return nil, err
	}
	loc := &scene.Location{Name: ml.Name, Options: opts}

	for _, mlayer := range ml.Layers {
		layer := &scene.Layer{
			Name:           mlayer.Name,
			Index:          mlayer.LayerIndex,
			PlayerVisible:  mlayer.PlayerVisible,
			PlayerEditable: mlayer.PlayerEditable,
			Selectable:     mlayer.Selectable,
			Grid:           mlayer.Grid,
			Size:           mlayer.Size,
		}
		for _, ms := range mlayer.Shapes {
			s, err := shapeFromModel(&ms)
			if err != nil {
				return nil, fmt.Errorf("shape %s: %w", ms.UUID, err)
			}
			layer.Append(s)
		}
		if err := loc.AddLayer(layer); err != nil {
			return nil, err
		}
	}

	for _, mi := range ml.Initiatives {
		var effects []scene.InitiativeEffect
		if len(mi.Effects) > 0 {
			if err := json.Unmarshal(mi.Effects, &effects); err != nil {
				return nil, fmt.Errorf("initiative %s effects: %w", mi.UUID, err)
			}
		}
		loc.Initiative.Append(scene.InitiativeEntry{
			UUID:       mi.UUID,
			Initiative: mi.Initiative,
			Visible:    mi.Visible,
			Group:      mi.IsGroup,
			Src:        mi.Src,
			HasImg:     mi.HasImg,
			Effects:    effects,
		})
	}
	return loc, nil
}

func shapeFromModel(ms *model.Shape) (*scene.Shape, error) {
	geo, err := scene.DecodeGeometry(scene.Kind(ms.Type), ms.Geometry)
	if err != nil {
		return nil, err
	}
	s := &scene.Shape{
		UUID:                ms.UUID,
		Type:                scene.Kind(ms.Type),
		X:                   ms.X,
		Y:                   ms.Y,
		Name:                ms.Name,
		FillColour:          ms.FillColour,
		StrokeColour:        ms.StrokeColour,
		VisionObstruction:   ms.VisionObstruction,
		MovementObstruction: ms.MovementObstruction,
		IsToken:             ms.IsToken,
		Annotation:          ms.Annotation,
		DrawOperator:        ms.DrawOperator,
		Options:             ms.Options,
		DefaultEditAccess:   ms.DefaultEditAccess,
		DefaultVisionAccess: ms.DefaultVisionAccess,
		Geometry:            geo,
	}
	for _, t := range ms.Trackers {
		s.Trackers = append(s.Trackers, scene.Tracker{
			UUID: t.UUID, Name: t.Name, Value: t.Value, MaxValue: t.MaxValue, Visible: t.Visible,
		})
	}
	for _, a := range ms.Auras {
		s.Auras = append(s.Auras, scene.Aura{
			UUID: a.UUID, Name: a.Name, Value: a.Value, Dim: a.Dim,
			Colour: a.Colour, VisionSource: a.VisionSource, Visible: a.Visible,
		})
	}
	for _, o := range ms.Owners {
		s.Owners = append(s.Owners, scene.ShapeOwner{User: o.UserName, EditAccess: o.EditAccess, VisionAccess: o.VisionAccess})
	}
	return s, nil
}
