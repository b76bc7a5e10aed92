package models

import "errors"

// Базовые ошибки приложения. Сервисы оборачивают их через fmt.Errorf("%w") или AppError,
// обработчики определяют HTTP статус через errors.Is.
var (
	// Ошибки запроса
	ErrValidation = errors.New("validation error")
	ErrBadRequest = errors.New("bad request")

	// Ресурсы
	ErrNotFound       = errors.New("resource not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrStoryNotFound  = errors.New("story not found")
	ErrEmailTaken     = errors.New("user with this email already exists")
	ErrLikeExists     = errors.New("like already exists")
	ErrLikeNotFound   = errors.New("like not found")
	ErrNothingUpdated = errors.New("nothing to update")

	// Лимиты
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// Генерация и хранение
	ErrGenerationFailed = errors.New("generation failed")
	ErrStorageFailed    = errors.New("storage operation failed")

	// Аутентификация
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenMalformed     = errors.New("token is malformed")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenNotFound      = errors.New("token not found in storage")
)

// AppError несет сообщение для клиента и вид ошибки (одну из переменных выше).
// Причина, если есть, доступна через errors.Is/As, но в ответ не попадает.
type AppError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func NewValidationError(message string) error {
	return &AppError{Kind: ErrValidation, Message: message}
}

func NewNotFoundError(kind error, message string) error {
	return &AppError{Kind: kind, Message: message}
}

func NewRateLimitError(message string) error {
	return &AppError{Kind: ErrRateLimitExceeded, Message: message}
}

func NewGenerationError(message string, cause error) error {
	return &AppError{Kind: ErrGenerationFailed, Message: message, Cause: cause}
}

func NewForbiddenError(message string) error {
	return &AppError{Kind: ErrForbidden, Message: message}
}

// ClientMessage возвращает текст для тела ответа, если ошибка его несет.
func ClientMessage(err error) (string, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message, true
	}
	return "", false
}
