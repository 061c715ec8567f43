package model

import (
	"gorm.io/datatypes"
)

// Shape 레이어 위 도형. 종류별 속성은 Geometry JSON 에 저장
type Shape struct {
	ID                  int64  `gorm:"primaryKey;autoIncrement"`
	LayerID             int64  `gorm:"not null;index"`
	UUID                string `gorm:"type:varchar(64);not null;index"`
	Position            int    `gorm:"not null"`
	Type                string `gorm:"type:varchar(20);not null"`
	X                   float64
	Y                   float64
	Name                string `gorm:"type:varchar(255)"`
	FillColour          string `gorm:"type:varchar(50)"`
	StrokeColour        string `gorm:"type:varchar(50)"`
	VisionObstruction   bool
	MovementObstruction bool
	IsToken             bool
	Annotation          string `gorm:"type:text"`
	DrawOperator        string `gorm:"type:varchar(50)"`
	Options             string `gorm:"type:text"`
	DefaultEditAccess   bool
	DefaultVisionAccess bool
	Geometry            datatypes.JSON

	// Relations
	Trackers []Tracker    `gorm:"foreignKey:ShapeID"`
	Auras    []Aura       `gorm:"foreignKey:ShapeID"`
	Owners   []ShapeOwner `gorm:"foreignKey:ShapeID"`
}

func (Shape) TableName() string {
	return "shapes"
}

// Tracker 도형 트래커
type Tracker struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	ShapeID  int64  `gorm:"not null;index"`
	Position int    `gorm:"not null"`
	UUID     string `gorm:"type:varchar(64);not null"`
	Name     string `gorm:"type:varchar(100)"`
	Value    int
	MaxValue int
	Visible  bool
}

func (Tracker) TableName() string {
	return "trackers"
}

// Aura 도형 오라
type Aura struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ShapeID      int64  `gorm:"not null;index"`
	Position     int    `gorm:"not null"`
	UUID         string `gorm:"type:varchar(64);not null"`
	Name         string `gorm:"type:varchar(100)"`
	Value        float64
	Dim          float64
	Colour       string `gorm:"type:varchar(50)"`
	VisionSource bool
	Visible      bool
}

func (Aura) TableName() string {
	return "auras"
}

// ShapeOwner 도형 권한
type ShapeOwner struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ShapeID      int64  `gorm:"not null;index"`
	Position     int    `gorm:"not null"`
	UserName     string `gorm:"type:varchar(100);not null"`
	EditAccess   bool
	VisionAccess bool
}

func (ShapeOwner) TableName() string {
	return "shape_owners"
}
