package auth

import (
	"context"
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("username must be 2-32 letters, digits, '-' or '_'")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{2,32}$`)

// ValidateUsername 사용자 이름 규칙 확인 (방 경로에 그대로 쓰임)
func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return ErrInvalidUsername
	}
	return nil
}

// HashPassword bcrypt 해시 생성
func HashPassword(password string) (string, error) {
	if len(password) < 6 {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 해시와 비밀번호 비교
func CheckPassword(hash, password string) error {
	if hash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// CredentialStore 저장된 비밀번호 해시 조회
type CredentialStore interface {
	PasswordHash(ctx context.Context, username string) (string, error)
}

// PasswordVerifier 로그인 검증기
type PasswordVerifier struct {
	store CredentialStore
}

// NewPasswordVerifier 생성자
func NewPasswordVerifier(store CredentialStore) *PasswordVerifier {
	return &PasswordVerifier{store: store}
}

// Verify 사용자 이름/비밀번호 확인. 사용자가 없어도 같은 에러를 반환한다
func (v *PasswordVerifier) Verify(ctx context.Context, username, password string) error {
	hash, err := v.store.PasswordHash(ctx, username)
	if err != nil {
		return ErrInvalidCredentials
	}
	return CheckPassword(hash, password)
}
