package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

var (
	// ErrMissingToken токен не передан
	ErrMissingToken = errors.New("missing authentication token")
	// ErrInvalidToken токен не совпадает с настроенным
	ErrInvalidToken = errors.New("invalid authentication token")
)

// Validator проверяет токен оператора симуляции.
// Пустой настроенный токен отключает проверку.
type Validator struct {
	digest  [sha256.Size]byte
	enabled bool
}

// NewValidator создает валидатор для статического токена
func NewValidator(token string) *Validator {
	if token == "" {
		return &Validator{}
	}
	return &Validator{digest: sha256.Sum256([]byte(token)), enabled: true}
}

// Enabled включена ли проверка
func (v *Validator) Enabled() bool {
	return v.enabled
}

// ValidateToken сравнивает токен за постоянное время
func (v *Validator) ValidateToken(token string) error {
	if !v.enabled {
		return nil
	}
	if token == "" {
		return ErrMissingToken
	}
	got := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(got[:], v.digest[:]) != 1 {
		return ErrInvalidToken
	}
	return nil
}
