package service

import (
	"context"
	"sync"
	"time"

	"storyboard-server/internal/config"
	"storyboard-server/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

const testPlaceholderURL = "https://via.placeholder.com/1792x1024/cccccc/333333?text=Image+Generation+Failed"

func testConfig() *config.Config {
	return &config.Config{
		TextProvider:         config.ProviderOpenAI,
		TextModel:            "gpt-4o-mini",
		TextMaxTokens:        2048,
		TextTemperature:      0.8,
		TextTopP:             0.1,
		ImageProvider:        config.ProviderOpenAI,
		ImageModel:           "dall-e-3",
		ImageSize:            "1792x1024",
		ImageStyle:           "vivid",
		ImageQuality:         "standard",
		ImageMaxAttempts:     3,
		ImageRetryBaseDelay:  time.Minute,
		ImagePromptMaxLength: 400,
		ImageBreakerFailures: 0,
		ImageBreakerTimeout:  time.Minute,
		PlaceholderImageURL:  testPlaceholderURL,
		DailyUsageLimit:      3,
		FrameConcurrency:     3,
	}
}

func validRequest() models.StoryboardRequest {
	return models.StoryboardRequest{
		Prompt:       "A robot learns to paint",
		Genre:        "drama",
		VisualStyle:  "watercolor",
		Mood:         "hopeful",
		FrameCount:   3,
		CameraAngles: []string{"wide", "close-up", "wide"},
	}
}

// fakeChatModel возвращает заранее заданный ответ и запоминает запросы.
type fakeChatModel struct {
	mu       sync.Mutex
	content  string
	err      error
	requests []openai.ChatCompletionRequest
}

func (f *fakeChatModel) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}},
	}, nil
}

func (f *fakeChatModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// fakeImageModel отвечает по очереди из responses, последний ответ повторяется.
type fakeImageModel struct {
	mu        sync.Mutex
	responses []imageResult
	requests  []openai.ImageRequest
}

type imageResult struct {
	url string
	err error
}

func (f *fakeImageModel) CreateImage(_ context.Context, req openai.ImageRequest) (openai.ImageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	idx := len(f.requests) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	res := f.responses[idx]
	if res.err != nil {
		return openai.ImageResponse{}, res.err
	}
	return openai.ImageResponse{Data: []openai.ImageResponseDataInner{{URL: res.url}}}, nil
}

func (f *fakeImageModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
