package models

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse - ответ для операций без собственной модели (лайк, сброс лимитов, удаление).
type StatusResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	UsersAffected *int64 `json:"usersAffected,omitempty"`
	Liked         *bool  `json:"liked,omitempty"`
}

// Page - страница списка с метаданными пагинации (используется админкой).
type Page[T any] struct {
	Items   []T   `json:"-"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

// NewPage заполняет HasMore по количеству элементов и общему числу.
func NewPage[T any](items []T, total int64, limit, offset int) Page[T] {
	return Page[T]{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(items)) < total,
	}
}
