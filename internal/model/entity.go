package model

import (
	"time"

	"gorm.io/datatypes"
)

// User 사용자 (이름이 식별자)
type User struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	PasswordHash string         `gorm:"type:varchar(255)" json:"-"`
	Provider     AuthProvider   `gorm:"type:varchar(20);default:'local'" json:"provider"`
	Email        *string        `gorm:"type:varchar(255)" json:"email,omitempty"`
	Options      datatypes.JSON `json:"options,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Room 게임 방
type Room struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	Name           string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_room_creator_name"`
	CreatorName    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_room_creator_name"`
	InvitationCode string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	DMLocation     string    `gorm:"type:varchar(100)"`
	PlayerLocation string    `gorm:"type:varchar(100)"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`

	// Relations
	Players   []RoomPlayer `gorm:"foreignKey:RoomID"`
	Locations []Location   `gorm:"foreignKey:RoomID"`
}

func (Room) TableName() string {
	return "rooms"
}

// RoomPlayer 방 참가자 (생성자 제외)
type RoomPlayer struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	RoomID   int64  `gorm:"not null;index"`
	UserName string `gorm:"type:varchar(100);not null"`
	Position int    `gorm:"not null"`
}

func (RoomPlayer) TableName() string {
	return "room_players"
}

// Location 방 안의 위치
type Location struct {
	ID       int64          `gorm:"primaryKey;autoIncrement"`
	RoomID   int64          `gorm:"not null;index"`
	Name     string         `gorm:"type:varchar(100);not null"`
	Position int            `gorm:"not null"`
	Options  datatypes.JSON

	// Relations
	Layers      []Layer      `gorm:"foreignKey:LocationID"`
	Initiatives []Initiative `gorm:"foreignKey:LocationID"`
}

func (Location) TableName() string {
	return "locations"
}

// Layer 위치의 레이어
type Layer struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	LocationID     int64  `gorm:"not null;uniqueIndex:idx_layer_location_name"`
	Name           string `gorm:"type:varchar(50);not null;uniqueIndex:idx_layer_location_name"`
	LayerIndex     int    `gorm:"not null"`
	PlayerVisible  bool
	PlayerEditable bool
	Selectable     bool
	Grid           bool
	Size           float64

	// Relations
	Shapes []Shape `gorm:"foreignKey:LayerID"`
}

func (Layer) TableName() string {
	return "layers"
}

// Initiative 전투 순서 항목
type Initiative struct {
	ID         int64          `gorm:"primaryKey;autoIncrement"`
	LocationID int64          `gorm:"not null;index"`
	Position   int            `gorm:"not null"`
	UUID       string         `gorm:"type:varchar(64);not null"`
	Initiative float64
	Visible    bool
	IsGroup    bool
	Src        string `gorm:"type:text"`
	HasImg     bool
	Effects    datatypes.JSON
}

func (Initiative) TableName() string {
	return "initiatives"
}

// SaveMeta 저장 포맷 버전 (단일 행)
type SaveMeta struct {
	ID      int64 `gorm:"primaryKey"`
	Version int   `gorm:"not null"`
}

func (SaveMeta) TableName() string {
	return "save_meta"
}

// All AutoMigrate 대상 전체
func All() []any {
	return []any{
		&User{},
		&Room{},
		&RoomPlayer{},
		&Location{},
		&Layer{},
		&Shape{},
		&Tracker{},
		&Aura{},
		&ShapeOwner{},
		&Initiative{},
		&SaveMeta{},
	}
}
