package handler

import "storyboard-server/internal/models"

// --- Request/Response Structs ---

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// authResponse - поля пользователя и токены в одном объекте.
type authResponse struct {
	*models.User
	tokenResponse
}

type updateUsageRequest struct {
	DailyUsageCount *int   `json:"dailyUsageCount"`
	LastUsageDate   string `json:"lastUsageDate"`
}

type likeRequest struct {
	UserID string `json:"userId"`
}

type updateRoleRequest struct {
	IsAdmin bool   `json:"isAdmin"`
	Role    string `json:"role"`
}

type visibilityRequest struct {
	IsPublic *bool `json:"isPublic"`
}

type usersPageResponse struct {
	Users []models.User `json:"users"`
	models.Page[models.User]
}

type storiesPageResponse struct {
	Stories []models.GalleryStory `json:"stories"`
	models.Page[models.GalleryStory]
}

type roleUpdateResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

type visibilityResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Story   *models.GalleryStory `json:"story"`
}

type healthResponse struct {
	Status string `json:"status"`
}
