package database

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"tabletop-backend/internal/model"
)

// SaveVersion 현재 저장 포맷 버전
const SaveVersion = 3

// ExitCodeSaveVersion 저장 포맷이 맞지 않을 때 프로세스 종료 코드
const ExitCodeSaveVersion = 2

var (
	ErrSaveVersionMissing  = errors.New("save file has no version")
	ErrSaveVersionMismatch = errors.New("save file version mismatch")
)

// CheckVersion 읽기 전용 버전 확인. 비어 있는 DB 면 fresh 가 true
func CheckVersion(db *gorm.DB) (fresh bool, err error) {
	migrator := db.Migrator()

	if !migrator.HasTable(&model.SaveMeta{}) {
		if migrator.HasTable(&model.Room{}) || migrator.HasTable(&model.User{}) {
			return false, ErrSaveVersionMissing
		}
		return true, nil
	}

	version, err := CurrentVersion(db)
	if err != nil {
		return false, err
	}
	if version != SaveVersion {
		return false, fmt.Errorf("%w: found %d, expected %d", ErrSaveVersionMismatch, version, SaveVersion)
	}
	return false, nil
}

// Prepare 저장 포맷 버전 확인 후 스키마 마이그레이션
//
// 비어 있는 DB 는 새로 만들고 현재 버전을 기록한다.
// 테이블은 있는데 버전이 없거나 다르면 아무것도 읽지 않고 에러를 반환한다.
func Prepare(db *gorm.DB) error {
	fresh, err := CheckVersion(db)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if fresh {
		if err := StampVersion(db, SaveVersion); err != nil {
			return err
		}
		log.Printf("🆕 Created new save (version %d)", SaveVersion)
	}
	return nil
}

// CurrentVersion 기록된 버전 조회
func CurrentVersion(db *gorm.DB) (int, error) {
	var meta model.SaveMeta
	if err := db.First(&meta, model.SaveMetaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrSaveVersionMissing
		}
		return 0, fmt.Errorf("read save version: %w", err)
	}
	return meta.Version, nil
}

// StampVersion 버전 기록 (관리 도구/테스트용)
func StampVersion(db *gorm.DB, version int) error {
	if err := db.AutoMigrate(&model.SaveMeta{}); err != nil {
		return err
	}
	meta := model.SaveMeta{ID: model.SaveMetaID, Version: version}
	return db.Save(&meta).Error
}

// ExitCode 에러에 맞는 프로세스 종료 코드
func ExitCode(err error) int {
	if errors.Is(err, ErrSaveVersionMissing) || errors.Is(err, ErrSaveVersionMismatch) {
		return ExitCodeSaveVersion
	}
	return 1
}
