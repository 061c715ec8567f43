package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tabletop-backend/internal/model"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// CreateUser 사용자 생성
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("name = ?", user.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrUserExists, user.Name)
	}
	return s.db.WithContext(ctx).Create(user).Error
}

// FindUser 이름으로 조회
func (s *Store) FindUser(ctx context.Context, name string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// PasswordHash 로그인 검증용 해시 조회
func (s *Store) PasswordHash(ctx context.Context, name string) (string, error) {
	user, err := s.FindUser(ctx, name)
	if err != nil {
		return "", err
	}
	return user.PasswordHash, nil
}

// SaveUserOptions 클라이언트 옵션 저장
func (s *Store) SaveUserOptions(ctx context.Context, name string, options map[string]any) error {
	raw, err := json.Marshal(options)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("name = ?", name).Update("options", raw)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers 전체 사용자
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).Order("name ASC").Find(&users).Error
	return users, err
}

// UserOptions 저장된 옵션 디코딩
func UserOptions(user *model.User) map[string]any {
	opts, err := unmarshalOptions(user.Options)
	if err != nil {
		return map[string]any{}
	}
	return opts
}

// FindUserByEmail 이메일로 조회 (Google 로그인)
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
