package handler

import (
	"errors"
	"io"
	"strconv"

	"storyboard-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// bindJSON разбирает тело запроса. При ошибке ответ уже отправлен.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			badRequest(c, "Request body required")
			return false
		}
		badRequest(c, "Invalid JSON input")
		return false
	}
	return true
}

// pathUUID читает UUID из параметра пути. Неизвестный формат трактуется как отсутствующая запись.
func pathUUID(c *gin.Context, param string, notFound error, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		handleServiceError(c, models.NewNotFoundError(notFound, message))
		return uuid.Nil, false
	}
	return id, true
}

// queryPage читает limit и offset. Нечисловые значения дают 400.
func queryPage(c *gin.Context, defaultLimit int) (int, int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil {
		badRequest(c, "Invalid pagination parameters")
		return 0, 0, false
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		badRequest(c, "Invalid pagination parameters")
		return 0, 0, false
	}
	return limit, offset, true
}
