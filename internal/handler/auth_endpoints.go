package handler

import (
	"net/http"
	"strings"
	"time"

	"storyboard-server/internal/middleware"
	"storyboard-server/internal/models"

	"github.com/gin-gonic/gin"
)

func newTokenResponse(td *models.TokenDetails) tokenResponse {
	expiresIn := td.AtExpires - time.Now().Unix()
	if expiresIn < 0 {
		expiresIn = 0
	}
	return tokenResponse{
		AccessToken:  td.AccessToken,
		RefreshToken: td.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	if missing := missingFields(map[string]string{"name": req.Name, "email": req.Email, "password": req.Password}, "name", "email", "password"); missing != "" {
		badRequest(c, missing)
		return
	}

	user, td, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{User: user, tokenResponse: newTokenResponse(td)})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	if missing := missingFields(map[string]string{"email": req.Email, "password": req.Password}, "email", "password"); missing != "" {
		badRequest(c, missing)
		return
	}

	user, td, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{User: user, tokenResponse: newTokenResponse(td)})
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.RefreshToken == "" {
		badRequest(c, "Missing required fields: refresh_token")
		return
	}

	td, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(td))
}

func (h *Handler) logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}
	// Тело необязательно: без refresh токена отзывается только access
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.authService.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Success: true, Message: "Logged out successfully"})
}

func (h *Handler) getProfile(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}
	user, err := h.authService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) updateProfile(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, req.Name, req.Email)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// missingFields возвращает сообщение о пустых полях в порядке order или пустую строку.
func missingFields(values map[string]string, order ...string) string {
	var missing []string
	for _, name := range order {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return "Missing required fields: " + strings.Join(missing, ", ")
}
