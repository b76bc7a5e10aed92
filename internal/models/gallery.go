package models

import (
	"time"

	"github.com/google/uuid"
)

// GalleryStory - сохраненный в галерее сториборд. Likes вычисляется запросом.
type GalleryStory struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description" validate:"required"`
	Frames      []RenderedFrame `json:"frames"`
	UserName    string          `json:"userName"`
	UserID      uuid.UUID       `json:"userId"`
	Genre       string          `json:"genre"`
	Style       string          `json:"style"`
	TotalFrames int             `json:"totalFrames"`
	IsPublic    bool            `json:"isPublic"`
	CreatedAt   time.Time       `json:"createdAt"`
	Likes       int64           `json:"likes"`
}

// NewGalleryStory - данные для создания истории.
type NewGalleryStory struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Frames      []RenderedFrame `json:"frames" validate:"required,min=1"`
	UserName    string          `json:"userName" validate:"required"`
	UserID      uuid.UUID       `json:"userId" validate:"required"`
	Genre       string          `json:"genre"`
	Style       string          `json:"style"`
	IsPublic    *bool           `json:"isPublic"`
}

// Visibility возвращает флаг публичности с учетом значения по умолчанию.
func (n NewGalleryStory) Visibility() bool {
	if n.IsPublic == nil {
		return true
	}
	return *n.IsPublic
}

var galleryFieldNames = map[string]string{
	"Title":       "title",
	"Description": "description",
	"Frames":      "frames",
	"UserName":    "userName",
	"UserID":      "userId",
}

// Validate проверяет обязательные поля истории.
func (n NewGalleryStory) Validate() error {
	return requiredFields(n, galleryFieldNames)
}
