package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyboard-server/internal/config"
	"storyboard-server/internal/models"

	"github.com/goccy/go-json"
	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrOutlineParse - ответ модели не удалось разобрать как сториборд.
var ErrOutlineParse = errors.New("failed to parse storyboard outline")

const outlineSystemPrompt = "You are an expert storyboard generation assistant with deep understanding of visual storytelling and character consistency. " +
	"Your task is to generate a response strictly as a valid JSON object with two properties: 'title' (a short title of 3-4 words max based on the story) and 'frames' (an array of frame objects). " +
	"CRITICAL: Ensure visual continuity by maintaining consistent character descriptions, environmental details, and artistic elements across all frames. " +
	"Provide both simple UI descriptions and detailed descriptions for image generation. Do not include any text outside the JSON structure. " +
	"If you cannot generate valid JSON, return {\"title\": \"\", \"frames\": []}. " +
	"Ensure all properties ('description', 'detailedDescription', 'dialogue', 'actionNote', 'cameraAngle', 'characterDetails', 'environmentDetails') in each frame are present with proper quoting, even if empty."

const outlineUserPromptTemplate = `Generate a detailed storyboard with %d frames for the following story:
"%s"

Genre: %s
Visual Style: %s
Mood: %s

IMPORTANT REQUIREMENTS FOR CHARACTER CONSISTENCY:
1. Identify the main characters early and maintain their appearance throughout all frames
2. Include detailed character descriptions (age, gender, hair color/style, clothing, distinctive features)
3. For each frame, describe characters with consistent physical traits
4. Include environmental details that should remain consistent (locations, time of day, weather)
5. Specify visual continuity elements (lighting style, color palette, artistic approach)

For each frame, return a JSON object with the following properties:
- "description": A simple, clean scene description for UI display (1-2 sentences, user-friendly)
- "detailedDescription": A comprehensive scene description including character details, setting, actions, and visual elements for image generation
- "dialogue": (Optional) Dialogue, or an empty string if none
- "actionNote": (Optional) Action note including character movements and interactions, or an empty string if none
- "cameraAngle": Suggested camera angle (from: %s)
- "characterDetails": A brief description of main characters visible in this frame with their consistent physical traits
- "environmentDetails": Description of the setting, lighting, and atmosphere for visual continuity

Return the result as a single valid JSON object with two properties: 'title' (a short title of 3-4 words max based on the story) and 'frames' (an array of frame objects). Ensure all values are properly quoted and the JSON is syntactically correct.`

// TextGenerator строит план сториборда (заголовок и кадры) по описанию истории.
type TextGenerator interface {
	// Generate возвращает ошибку с models.ErrGenerationFailed при сбое модели.
	// Неразбираемый ответ ошибкой не считается: возвращается пустой план.
	Generate(ctx context.Context, req models.StoryboardRequest) (*models.StoryboardOutline, error)
}

var _ TextGenerator = (*textGeneratorImpl)(nil)

type textGeneratorImpl struct {
	model       ChatModel
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	encoder     *tiktoken.Tiktoken
	logger      *zap.Logger
}

// NewTextGenerator создает TextGenerator поверх ChatModel.
func NewTextGenerator(model ChatModel, cfg *config.Config, logger *zap.Logger) TextGenerator {
	g := &textGeneratorImpl{
		model:       model,
		modelName:   cfg.TextModel,
		maxTokens:   cfg.TextMaxTokens,
		temperature: cfg.TextTemperature,
		topP:        cfg.TextTopP,
		logger:      logger.Named("TextGenerator"),
	}
	if cfg.TokenEstimation {
		g.encoder = newEncoder(cfg.TextModel, g.logger)
	}
	return g
}

// newEncoder загружает токенизатор для оценки размера промпта.
// Неизвестная модель получает cl100k_base.
func newEncoder(modelName string, logger *zap.Logger) *tiktoken.Tiktoken {
	enc, err := tiktoken.EncodingForModel(modelName)
	if err == nil {
		return enc
	}
	enc, err = tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("Token estimation disabled: tokenizer unavailable", zap.String("model", modelName), zap.Error(err))
		return nil
	}
	return enc
}

func (g *textGeneratorImpl) Generate(ctx context.Context, req models.StoryboardRequest) (*models.StoryboardOutline, error) {
	log := g.logger.With(zap.Int("frameCount", req.FrameCount), zap.String("genre", req.Genre))

	userPrompt := BuildOutlinePrompt(req)
	if g.encoder != nil {
		tokens := len(g.encoder.Encode(outlineSystemPrompt, nil, nil)) + len(g.encoder.Encode(userPrompt, nil, nil))
		textPromptTokens.Observe(float64(tokens))
		log.Debug("Estimated prompt tokens", zap.Int("tokens", tokens))
	}

	start := time.Now()
	resp, err := g.model.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: outlineSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:        g.maxTokens,
		Temperature:      g.temperature,
		TopP:             g.topP,
		PresencePenalty:  0,
		FrequencyPenalty: 0,
	})
	duration := time.Since(start)
	textRequestDuration.Observe(duration.Seconds())

	if err != nil {
		textRequestsTotal.WithLabelValues("error").Inc()
		log.Error("Text model request failed", zap.Duration("duration", duration), zap.Error(err))
		return nil, models.NewGenerationError(fmt.Sprintf("Failed to generate storyboard: %v", err), err)
	}
	if len(resp.Choices) == 0 {
		textRequestsTotal.WithLabelValues("error").Inc()
		log.Error("Text model returned no choices", zap.Duration("duration", duration))
		return nil, models.NewGenerationError("Failed to generate storyboard: empty response", nil)
	}

	content := resp.Choices[0].Message.Content
	log.Info("Text model responded",
		zap.Duration("duration", duration),
		zap.Int("contentLength", len(content)),
		zap.Int("promptTokens", resp.Usage.PromptTokens),
		zap.Int("completionTokens", resp.Usage.CompletionTokens),
	)

	outline, err := parseOutline(content)
	if err != nil {
		// Мусор от модели не ломает запрос: пустой план обрабатывается выше как "нет кадров"
		textRequestsTotal.WithLabelValues("parse_error").Inc()
		log.Warn("Failed to parse text model response, returning empty outline", zap.Error(err), zap.String("content", truncateRunes(content, 500)))
		return &models.StoryboardOutline{Title: "", Frames: []models.FrameOutline{}}, nil
	}

	textRequestsTotal.WithLabelValues("success").Inc()
	return outline, nil
}

// BuildOutlinePrompt собирает пользовательскую инструкцию для текстовой модели.
func BuildOutlinePrompt(req models.StoryboardRequest) string {
	angles, err := json.Marshal(req.CameraAngles)
	if err != nil {
		angles = []byte("[]")
	}
	return fmt.Sprintf(outlineUserPromptTemplate, req.FrameCount, req.Prompt, req.Genre, req.VisualStyle, req.Mood, string(angles))
}

// rawFrame повторяет схему кадра в ответе модели. Указатель отличает отсутствующее поле от пустого.
type rawFrame struct {
	Description         string  `json:"description"`
	DetailedDescription *string `json:"detailedDescription"`
	Dialogue            string  `json:"dialogue"`
	ActionNote          string  `json:"actionNote"`
	CameraAngle         string  `json:"cameraAngle"`
	CharacterDetails    string  `json:"characterDetails"`
	EnvironmentDetails  string  `json:"environmentDetails"`
}

type rawOutline struct {
	Title  *string     `json:"title"`
	Frames *[]rawFrame `json:"frames"`
}

// parseOutline снимает markdown-обертку и декодирует план.
// Отсутствие title или frames считается ошибкой ErrOutlineParse.
func parseOutline(content string) (*models.StoryboardOutline, error) {
	cleaned, err := stripCodeFence(strings.TrimSpace(content))
	if err != nil {
		return nil, err
	}

	var raw rawOutline
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutlineParse, err)
	}
	if raw.Title == nil || raw.Frames == nil {
		return nil, fmt.Errorf("%w: missing title or frames", ErrOutlineParse)
	}

	outline := &models.StoryboardOutline{
		Title:  *raw.Title,
		Frames: make([]models.FrameOutline, 0, len(*raw.Frames)),
	}
	for _, f := range *raw.Frames {
		detailed := f.Description
		if f.DetailedDescription != nil {
			detailed = *f.DetailedDescription
		}
		outline.Frames = append(outline.Frames, models.FrameOutline{
			Description:         f.Description,
			DetailedDescription: detailed,
			Dialogue:            f.Dialogue,
			ActionNote:          f.ActionNote,
			CameraAngle:         f.CameraAngle,
			CharacterDetails:    f.CharacterDetails,
			EnvironmentDetails:  f.EnvironmentDetails,
		})
	}
	return outline, nil
}

// stripCodeFence вырезает JSON-объект из ответа в markdown-блоке (```json или ```).
func stripCodeFence(content string) (string, error) {
	if !strings.HasPrefix(content, "```") {
		return content, nil
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object inside code block", ErrOutlineParse)
	}
	return content[start : end+1], nil
}

// truncateRunes обрезает строку до max символов и добавляет "...".
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
