package apiclient

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Роли, для которых бэкенд выдаёт отдельные токены.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Session содержит токен доступа к бэкенду и передаётся в каждый вызов явно.
type Session struct {
	Role      string
	Token     string
	Subject   string
	ExpiresAt time.Time
}

// Expired сообщает, истёк ли срок действия токена. Нулевой срок не истекает.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Claims описывает интересующие нас поля токена бэкенда.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims читает поля токена без проверки подписи: подпись проверяет бэкенд,
// нам нужны только роль и срок действия.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// NewSession создаёт сессию для токена роли role. Непрозрачные токены принимаются как есть.
func NewSession(role, token string) *Session {
	s := &Session{Role: role, Token: token}
	claims, err := ParseClaims(token)
	if err != nil {
		return s
	}
	if claims.Role != "" && role == "" {
		s.Role = claims.Role
	}
	s.Subject = claims.Subject
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s
}
