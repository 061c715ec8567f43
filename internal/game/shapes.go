package game

import (
	"fmt"

	"tabletop-backend/internal/protocol"
	"tabletop-backend/internal/scene"
	"tabletop-backend/internal/session"
)

type shapeUpdate struct {
	Shape     scene.ShapeView `json:"shape"`
	Redraw    bool            `json:"redraw"`
	Temporary bool            `json:"temporary"`
}

// findTemporary 방 안 모든 연결의 임시 도형 검색
func (c *call) findTemporary(uuid string) (*session.Session, *scene.Shape) {
	for _, s := range c.hub.sessions.InRoom(c.room.Key()) {
		if t := s.Temporary(uuid); t != nil {
			return s, t
		}
	}
	return nil, nil
}

// editableTemporary 임시 도형도 영구 도형과 같은 레이어/권한 규칙을 따른다
func (c *call) editableTemporary(loc *scene.Location, uuid string) (*session.Session, *scene.Layer, *scene.Shape, error) {
	owner, shape := c.findTemporary(uuid)
	if shape == nil {
		return nil, nil, nil, fmt.Errorf("temporary shape %s: %w", uuid, scene.ErrNotFound)
	}
	layer := loc.Layer(shape.Layer)
	if layer == nil {
		return nil, nil, nil, fmt.Errorf("layer %s: %w", shape.Layer, scene.ErrNotFound)
	}
	if !layer.CanEdit(shape, c.viewer) {
		return nil, nil, nil, fmt.Errorf("temporary shape %s: %w", uuid, scene.ErrUnauthorized)
	}
	return owner, layer, shape, nil
}

func (c *call) addShape(m *protocol.AddShape) error {
	loc, err := c.location()
	if err != nil {
		return err
	}

	var (
		layer *scene.Layer
		shape *scene.Shape
	)
	if m.Temporary {
		layer = loc.Layer(m.Shape.Layer)
		if layer == nil {
			return fmt.Errorf("layer %s: %w", m.Shape.Layer, scene.ErrNotFound)
		}
		if !layer.CanAdd(c.viewer) {
			return fmt.Errorf("add to layer %s: %w", layer.Name, scene.ErrUnauthorized)
		}
		if _, existing := c.findTemporary(m.Shape.UUID); existing != nil {
			return fmt.Errorf("temporary shape %s: %w", m.Shape.UUID, scene.ErrDuplicate)
		}
		shape = scene.NewOwnedShape(&m.Shape, c.viewer)
		c.sess.AddTemporary(loc.Name, shape)
	} else {
		layer, shape, err = loc.AddShape(&m.Shape, c.viewer)
		if err != nil {
			return err
		}
	}

	c.toLayer(protocol.EventAddShape, loc.Name, layer, func(v scene.Viewer) any {
		return scene.Project(shape, v)
	})
	return nil
}

func (c *call) removeShape(m *protocol.RemoveShape) error {
	loc, err := c.location()
	if err != nil {
		return err
	}

	var layer *scene.Layer
	if m.Temporary {
		owner, l, _, err := c.editableTemporary(loc, m.Shape.UUID)
		if err != nil {
			return err
		}
		owner.RemoveTemporary(m.Shape.UUID)
		layer = l
	} else {
		layer, _, err = loc.RemoveShape(m.Shape.UUID, c.viewer)
		if err != nil {
			return err
		}
	}

	ref := protocol.ShapeRef{UUID: m.Shape.UUID, Layer: layer.Name}
	c.toLayer(protocol.EventRemoveShape, loc.Name, layer, func(scene.Viewer) any { return ref })
	return nil
}

func (c *call) moveShapeOrder(m *protocol.MoveShapeOrder) error {
	loc, err := c.location()
	if err != nil {
		return err
	}
	layer, err := loc.ReorderShape(m.Shape.UUID, m.Index != 0, c.viewer)
	if err != nil {
		return err
	}

	payload := protocol.MoveShapeOrder{Shape: protocol.ShapeRef{UUID: m.Shape.UUID, Layer: layer.Name}, Index: m.Index}
	c.toLayer(protocol.EventMoveShapeOrder, loc.Name, layer, func(scene.Viewer) any { return payload })
	return nil
}

func (c *call) shapeMove(m *protocol.ShapeMove) error {
	loc, err := c.location()
	if err != nil {
		return err
	}

	var (
		layer *scene.Layer
		shape *scene.Shape
	)
	if m.Temporary {
		_, layer, shape, err = c.editableTemporary(loc, m.Shape.UUID)
		if err != nil {
			return err
		}
		shape.MoveTo(&m.Shape)
	} else {
		layer, shape, err = loc.MoveShape(&m.Shape, c.viewer)
		if err != nil {
			return err
		}
	}

	c.toLayer(protocol.EventShapeMove, loc.Name, layer, func(v scene.Viewer) any {
		return scene.Project(shape, v)
	})
	return nil
}

func (c *call) updateShape(m *protocol.UpdateShape) error {
	loc, err := c.location()
	if err != nil {
		return err
	}

	var (
		layer *scene.Layer
		shape *scene.Shape
	)
	if m.Temporary {
		var (
			owner  *session.Session
			stored *scene.Shape
		)
		owner, layer, stored, err = c.editableTemporary(loc, m.Shape.UUID)
		if err != nil {
			return err
		}
		shape = scene.MergeUpdate(stored, &m.Shape, c.viewer)
		owner.ReplaceTemporary(shape)
	} else {
		layer, shape, err = loc.UpdateShape(&m.Shape, c.viewer)
		if err != nil {
			return err
		}
	}

	c.toLayer(protocol.EventUpdateShape, loc.Name, layer, func(v scene.Viewer) any {
		return shapeUpdate{Shape: scene.Project(shape, v), Redraw: m.Redraw, Temporary: m.Temporary}
	})
	return nil
}
