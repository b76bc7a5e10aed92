package models

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// DefaultFrameCount подставляется, если клиент не прислал frameCount.
const DefaultFrameCount = 4

// StoryboardRequest - входные данные генерации сториборда.
type StoryboardRequest struct {
	Prompt             string   `json:"prompt" validate:"required"`
	Genre              string   `json:"genre" validate:"required"`
	VisualStyle        string   `json:"visualStyle" validate:"required"`
	Mood               string   `json:"mood" validate:"required"`
	FrameCount         int      `json:"frameCount" validate:"min=1"`
	CameraAngles       []string `json:"cameraAngles" validate:"required,min=1"`
	IncludeDialogue    bool     `json:"includeDialogue"`
	IncludeActionNotes bool     `json:"includeActionNotes"`
	UserID             string   `json:"userId,omitempty"`
}

// NewStoryboardRequest возвращает запрос со значениями по умолчанию, в который декодируется тело.
func NewStoryboardRequest() StoryboardRequest {
	return StoryboardRequest{FrameCount: DefaultFrameCount}
}

var requestMessages = map[string]string{
	"Prompt":       "Prompt is required",
	"Genre":        "Genre is required",
	"VisualStyle":  "Visual style is required",
	"Mood":         "Mood is required",
	"FrameCount":   "Frame count must be at least 1",
	"CameraAngles": "Camera angles are required",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator возвращает общий экземпляр валидатора.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate проверяет обязательные поля. Все нарушения собираются в одно сообщение.
func (r StoryboardRequest) Validate() error {
	err := Validator().Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("Validation failed: " + err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if msg, ok := requestMessages[fe.Field()]; ok {
			msgs = append(msgs, msg)
			continue
		}
		msgs = append(msgs, fe.Field()+" is invalid")
	}
	return NewValidationError("Validation failed: " + strings.Join(msgs, "; "))
}

// requiredFields проверяет структуру и перечисляет пропущенные поля по их JSON именам.
func requiredFields(v any, names map[string]string) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("Validation failed: " + err.Error())
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		name, ok := names[fe.Field()]
		if !ok {
			name = fe.Field()
		}
		missing = append(missing, name)
	}
	return NewValidationError("Missing required fields: " + strings.Join(missing, ", "))
}

// FrameOutline - описание кадра от текстовой модели.
type FrameOutline struct {
	Description         string `json:"description"`
	DetailedDescription string `json:"detailedDescription"`
	Dialogue            string `json:"dialogue"`
	ActionNote          string `json:"actionNote"`
	CameraAngle         string `json:"cameraAngle"`
	CharacterDetails    string `json:"characterDetails"`
	EnvironmentDetails  string `json:"environmentDetails"`
}

// ImageDescription - текст сцены для генерации изображения.
func (f FrameOutline) ImageDescription() string {
	if f.DetailedDescription != "" {
		return f.DetailedDescription
	}
	return f.Description
}

// StoryboardOutline - заголовок и кадры, пустой список кадров допустим.
type StoryboardOutline struct {
	Title  string         `json:"title"`
	Frames []FrameOutline `json:"frames"`
}

// RenderedFrame - итоговый кадр с картинкой.
type RenderedFrame struct {
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	Dialogue    *string `json:"dialogue,omitempty"`
	ActionNote  *string `json:"actionNote,omitempty"`
}

// StoryboardResult - ответ генерации.
type StoryboardResult struct {
	Title  string          `json:"title"`
	Frames []RenderedFrame `json:"frames"`
}

// ImagePromptInput - данные для сборки промпта изображения одного кадра.
type ImagePromptInput struct {
	Description         string
	VisualStyle         string
	Mood                string
	FrameIndex          int
	TotalFrames         int
	StoryContext        string
	CharacterDetails    string
	// ReferenceCharacters - выдержка из персонажей первого кадра, пусто для самого первого кадра.
	ReferenceCharacters string
	EnvironmentDetails  string
}

// StoryboardGeneratedEvent публикуется после успешной генерации.
type StoryboardGeneratedEvent struct {
	StoryID           string `json:"story_id"`
	UserID            string `json:"user_id,omitempty"`
	Title             string `json:"title"`
	FrameCount        int    `json:"frame_count"`
	PlaceholderFrames int    `json:"placeholder_frames"`
	DurationMs        int64  `json:"duration_ms"`
}
