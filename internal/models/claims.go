package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Типы токенов
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims представляет стандартные поля JWT и данные пользователя.
// ID (JTI) совпадает с AccessUUID/RefreshUUID, сохраненным в Redis.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	IsAdmin   bool      `json:"is_admin"`
	TokenType string    `json:"type"`
	jwt.RegisteredClaims
}
