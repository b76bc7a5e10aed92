package models

import (
	"time"

	"github.com/google/uuid"
)

// User - пользователь сервиса вместе с полями учета дневного лимита генераций.
type User struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Email           *string    `db:"email" json:"email,omitempty"`
	PasswordHash    *string    `db:"password_hash" json:"-"` // Не отдаем хеш пароля
	DeviceID        *string    `db:"device_id" json:"deviceId,omitempty"`
	Role            string     `db:"role" json:"role"`
	IsAdmin         bool       `db:"is_admin" json:"isAdmin"`
	DailyUsageCount int        `db:"daily_usage_count" json:"dailyUsageCount"`
	LastUsageDate   time.Time  `db:"last_usage_date" json:"lastUsageDate"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
	LastLoginAt     *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
}

// IsPrivileged - пользователь не ограничен дневным лимитом.
func (u *User) IsPrivileged() bool {
	return IsPrivileged(u.Role, u.IsAdmin)
}

// UsageRecord - срез пользователя, который нужен Usage Gate.
type UsageRecord struct {
	UserID          uuid.UUID
	DailyUsageCount int
	LastUsageDate   time.Time
	IsAdmin         bool
	Role            string
}

// UsageRecord возвращает данные учета использования.
func (u *User) UsageRecord() UsageRecord {
	return UsageRecord{
		UserID:          u.ID,
		DailyUsageCount: u.DailyUsageCount,
		LastUsageDate:   u.LastUsageDate,
		IsAdmin:         u.IsAdmin,
		Role:            u.Role,
	}
}

// SameDay сравнивает календарные даты в UTC.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// UserStats - агрегаты для админки.
type UserStats struct {
	TotalUsers     int64 `json:"totalUsers"`
	TotalStories   int64 `json:"totalStories"`
	PublicStories  int64 `json:"publicStories"`
	PrivateStories int64 `json:"privateStories"`
}

// NewDeviceUser - данные для создания пользователя, привязанного к устройству.
type NewDeviceUser struct {
	Name     string `json:"name" validate:"required"`
	DeviceID string `json:"deviceId" validate:"required"`
}

var deviceUserFieldNames = map[string]string{
	"Name":     "name",
	"DeviceID": "deviceId",
}

func (n NewDeviceUser) Validate() error {
	return requiredFields(n, deviceUserFieldNames)
}
