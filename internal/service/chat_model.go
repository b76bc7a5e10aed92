package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyboard-server/internal/config"

	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ChatModel - удаленная текстовая модель. Совпадает с методом *openai.Client,
// поэтому клиент OpenAI/Azure подставляется напрямую.
type ChatModel interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ImageModel - удаленная модель изображений.
type ImageModel interface {
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}

// NewChatModel создает клиент текстовой модели по TEXT_PROVIDER.
func NewChatModel(cfg *config.Config, logger *zap.Logger) (ChatModel, error) {
	httpClient := &http.Client{Timeout: cfg.TextTimeout}

	switch strings.ToLower(cfg.TextProvider) {
	case config.ProviderOpenAI:
		clientCfg := openai.DefaultConfig(cfg.TextAPIKey)
		if cfg.TextEndpoint != "" {
			clientCfg.BaseURL = cfg.TextEndpoint
		}
		clientCfg.HTTPClient = httpClient
		logger.Info("Text model client created", zap.String("provider", "openai"), zap.String("model", cfg.TextModel))
		return openai.NewClientWithConfig(clientCfg), nil

	case config.ProviderAzure:
		clientCfg := openai.DefaultAzureConfig(cfg.TextAPIKey, cfg.TextEndpoint)
		clientCfg.APIVersion = cfg.TextAPIVersion
		clientCfg.HTTPClient = httpClient
		logger.Info("Text model client created",
			zap.String("provider", "azure"),
			zap.String("endpoint", cfg.TextEndpoint),
			zap.String("model", cfg.TextModel),
		)
		return openai.NewClientWithConfig(clientCfg), nil

	case config.ProviderOllama:
		// api.NewClient ожидает адрес без суффикса /v1
		baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.TextEndpoint, "/"), "/v1")
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		parsedURL, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ollama endpoint %q: %w", baseURL, err)
		}
		logger.Info("Text model client created", zap.String("provider", "ollama"), zap.String("endpoint", baseURL), zap.String("model", cfg.TextModel))
		return &ollamaChatModel{client: api.NewClient(parsedURL, httpClient), timeout: cfg.TextTimeout}, nil

	default:
		return nil, fmt.Errorf("unsupported text provider %q", cfg.TextProvider)
	}
}

// NewImageModel создает клиент модели изображений по IMAGE_PROVIDER.
func NewImageModel(cfg *config.Config, logger *zap.Logger) (ImageModel, error) {
	// Ответ DALL-E может идти больше минуты
	httpClient := &http.Client{Timeout: 2 * time.Minute}

	switch strings.ToLower(cfg.ImageProvider) {
	case config.ProviderOpenAI:
		clientCfg := openai.DefaultConfig(cfg.ImageAPIKey)
		if cfg.ImageEndpoint != "" {
			clientCfg.BaseURL = cfg.ImageEndpoint
		}
		clientCfg.HTTPClient = httpClient
		logger.Info("Image model client created", zap.String("provider", "openai"), zap.String("model", cfg.ImageModel))
		return openai.NewClientWithConfig(clientCfg), nil

	case config.ProviderAzure:
		clientCfg := openai.DefaultAzureConfig(cfg.ImageAPIKey, cfg.ImageEndpoint)
		clientCfg.APIVersion = cfg.ImageAPIVersion
		clientCfg.HTTPClient = httpClient
		logger.Info("Image model client created", zap.String("provider", "azure"), zap.String("endpoint", cfg.ImageEndpoint), zap.String("model", cfg.ImageModel))
		return openai.NewClientWithConfig(clientCfg), nil

	default:
		return nil, fmt.Errorf("unsupported image provider %q", cfg.ImageProvider)
	}
}

// ollamaChatModel переводит запрос OpenAI в нативный API Ollama.
type ollamaChatModel struct {
	client  *api.Client
	timeout time.Duration
}

func (m *ollamaChatModel) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	messages := make([]api.Message, 0, len(request.Messages))
	for _, msg := range request.Messages {
		messages = append(messages, api.Message{Role: msg.Role, Content: msg.Content})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    request.Model,
		Messages: messages,
		Stream:   &stream,
		Format:   []byte(`"json"`),
		Options: map[string]any{
			"temperature":       request.Temperature,
			"top_p":             request.TopP,
			"num_predict":       request.MaxTokens,
			"presence_penalty":  request.PresencePenalty,
			"frequency_penalty": request.FrequencyPenalty,
		},
	}

	requestCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var last api.ChatResponse
	var content strings.Builder
	err := m.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		content.WriteString(r.Message.Content)
		last = r
		return nil
	})
	if err != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("ollama chat request failed: %w", err)
	}

	return openai.ChatCompletionResponse{
		Model: last.Model,
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content.String(),
			},
			FinishReason: openai.FinishReason(last.DoneReason),
		}},
		Usage: openai.Usage{
			PromptTokens:     last.PromptEvalCount,
			CompletionTokens: last.EvalCount,
			TotalTokens:      last.PromptEvalCount + last.EvalCount,
		},
	}, nil
}
