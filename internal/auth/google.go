package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"google.golang.org/api/idtoken"
)

var (
	ErrInvalidGoogleToken = errors.New("invalid google id token")
	ErrEmailNotVerified   = errors.New("email not verified")
)

// GoogleUserInfo Google 사용자 정보
type GoogleUserInfo struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
}

// Validator ID 토큰 검증 함수 (idtoken.Validate 와 같은 형태)
type Validator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleAuthenticator Google OAuth 검증기
type GoogleAuthenticator struct {
	clientID string
	validate Validator
}

// NewGoogleAuthenticator GoogleAuthenticator 생성
func NewGoogleAuthenticator(clientID string) *GoogleAuthenticator {
	return &GoogleAuthenticator{
		clientID: clientID,
		validate: idtoken.Validate,
	}
}

// NewGoogleAuthenticatorWithValidator 검증 함수 교체 (테스트용)
func NewGoogleAuthenticatorWithValidator(clientID string, validate Validator) *GoogleAuthenticator {
	return &GoogleAuthenticator{clientID: clientID, validate: validate}
}

// Enabled 클라이언트 ID 가 설정되어 있는지
func (g *GoogleAuthenticator) Enabled() bool {
	return g != nil && g.clientID != ""
}

// VerifyIDToken Google ID Token 검증
func (g *GoogleAuthenticator) VerifyIDToken(ctx context.Context, idToken string) (*GoogleUserInfo, error) {
	payload, err := g.validate(ctx, idToken, g.clientID)
	if err != nil {
		return nil, ErrInvalidGoogleToken
	}

	// 이메일 확인 여부 체크
	emailVerified, _ := payload.Claims["email_verified"].(bool)
	if !emailVerified {
		return nil, ErrEmailNotVerified
	}

	email := getStringClaim(payload.Claims, "email")
	if email == "" {
		return nil, ErrInvalidGoogleToken
	}

	return &GoogleUserInfo{
		ID:            payload.Subject,
		Email:         email,
		EmailVerified: emailVerified,
		Name:          getStringClaim(payload.Claims, "name"),
	}, nil
}

var usernameInvalidChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SuggestedUsername 이메일 앞부분으로 사용자 이름 후보 생성
func (u *GoogleUserInfo) SuggestedUsername() string {
	local, _, _ := strings.Cut(u.Email, "@")
	name := usernameInvalidChars.ReplaceAllString(local, "_")
	if len(name) > 32 {
		name = name[:32]
	}
	for len(name) < 2 {
		name += "_"
	}
	return name
}

func getStringClaim(claims map[string]interface{}, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}
