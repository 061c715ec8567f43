package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tabletop-backend/internal/model"
	"tabletop-backend/internal/scene"
)

// Store 방/사용자 영구 저장소
type Store struct {
	db *gorm.DB
}

// NewStore 생성자
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveRoom 방 전체를 한 트랜잭션으로 교체 저장
func (s *Store) SaveRoom(ctx context.Context, room *scene.Room) error {
	m, err := roomToModel(room)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Room
		err := tx.Where("creator_name = ? AND name = ?", room.Creator, room.Name).First(&existing).Error
		switch {
		case err == nil:
			if err := deleteRoomContent(tx, existing.ID); err != nil {
				return err
			}
			if err := tx.Delete(&model.Room{}, existing.ID).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("find room %s: %w", room.Key(), err)
		}

		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("insert room %s: %w", room.Key(), err)
		}
		return nil
	})
}

// deleteRoomContent 방에 딸린 모든 행 삭제 (자식부터)
func deleteRoomContent(tx *gorm.DB, roomID int64) error {
	locationIDs := tx.Model(&model.Location{}).Select("id").Where("room_id = ?", roomID)
	layerIDs := tx.Model(&model.Layer{}).Select("id").Where("location_id IN (?)", locationIDs)
	shapeIDs := tx.Model(&model.Shape{}).Select("id").Where("layer_id IN (?)", layerIDs)

	steps := []struct {
		model any
		query string
		arg   any
	}{
		{&model.Tracker{}, "shape_id IN (?)", shapeIDs},
		{&model.Aura{}, "shape_id IN (?)", shapeIDs},
		{&model.ShapeOwner{}, "shape_id IN (?)", shapeIDs},
		{&model.Shape{}, "layer_id IN (?)", layerIDs},
		{&model.Layer{}, "location_id IN (?)", locationIDs},
		{&model.Initiative{}, "location_id IN (?)", locationIDs},
		{&model.Location{}, "room_id = ?", roomID},
		{&model.RoomPlayer{}, "room_id = ?", roomID},
	}
	for _, step := range steps {
		if err := tx.Where(step.query, step.arg).Delete(step.model).Error; err != nil {
			return fmt.Errorf("delete %T: %w", step.model, err)
		}
	}
	return nil
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// LoadRooms 저장된 모든 방 복원
func (s *Store) LoadRooms(ctx context.Context) ([]*scene.Room, error) {
	var rows []model.Room
	err := s.db.WithContext(ctx).
		Preload("Players", byPosition).
		Preload("Locations", byPosition).
		Preload("Locations.Layers", func(db *gorm.DB) *gorm.DB { return db.Order("layer_index ASC") }).
		Preload("Locations.Layers.Shapes", byPosition).
		Preload("Locations.Layers.Shapes.Trackers", byPosition).
		Preload("Locations.Layers.Shapes.Auras", byPosition).
		Preload("Locations.Layers.Shapes.Owners", byPosition).
		Preload("Locations.Initiatives", byPosition).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	rooms := make([]*scene.Room, 0, len(rows))
	for i := range rows {
		r, err := roomFromModel(&rows[i])
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, nil
}

// DeleteRoom 방 삭제
func (s *Store) DeleteRoom(ctx context.Context, key scene.RoomKey) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Room
		if err := tx.Where("creator_name = ? AND name = ?", key.Creator, key.Name).First(&existing).Error; err != nil {
			return err
		}
		if err := deleteRoomContent(tx, existing.ID); err != nil {
			return err
		}
		return tx.Delete(&model.Room{}, existing.ID).Error
	})
}

// CountRooms 저장된 방 수
func (s *Store) CountRooms(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Room{}).Count(&n).Error
	return n, err
}
