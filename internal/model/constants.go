package model

// AuthProvider 계정 종류
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

func (p AuthProvider) String() string {
	return string(p)
}

// SaveMetaID save_meta 테이블의 유일한 행
const SaveMetaID = 1
