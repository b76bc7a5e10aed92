package service

import (
	"context"
	"errors"
	"testing"

	"storyboard-server/internal/models"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const threeFrameOutline = `{
  "title": "Robot Learns Painting",
  "frames": [
    {"description": "A robot finds a brush", "detailedDescription": "A small silver robot picks up a brush in a sunny studio", "dialogue": "What is this?", "actionNote": "Robot tilts head", "cameraAngle": "wide", "characterDetails": "small silver robot with round blue eyes", "environmentDetails": "sunny art studio"},
    {"description": "The robot paints", "detailedDescription": "", "dialogue": "", "actionNote": "", "cameraAngle": "close-up", "characterDetails": "robot holding a brush", "environmentDetails": "easel by the window"},
    {"description": "The painting is done", "dialogue": "Beautiful", "actionNote": "Robot steps back", "cameraAngle": "wide", "characterDetails": "robot smiling", "environmentDetails": "studio at sunset"}
  ]
}`

func TestParseOutline(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		outline, err := parseOutline(threeFrameOutline)
		require.NoError(t, err)
		assert.Equal(t, "Robot Learns Painting", outline.Title)
		require.Len(t, outline.Frames, 3)
		assert.Equal(t, "A small silver robot picks up a brush in a sunny studio", outline.Frames[0].DetailedDescription)
		assert.Equal(t, "", outline.Frames[1].DetailedDescription, "explicit empty value is kept")
		assert.Equal(t, "The painting is done", outline.Frames[2].DetailedDescription, "missing value falls back to description")
		assert.Equal(t, "small silver robot with round blue eyes", outline.Frames[0].CharacterDetails)
	})

	t.Run("json code fence", func(t *testing.T) {
		outline, err := parseOutline("```json\n" + threeFrameOutline + "\n```")
		require.NoError(t, err)
		assert.Len(t, outline.Frames, 3)
	})

	t.Run("bare code fence", func(t *testing.T) {
		outline, err := parseOutline("```\n" + threeFrameOutline + "\n```")
		require.NoError(t, err)
		assert.Len(t, outline.Frames, 3)
	})

	t.Run("empty frames are valid", func(t *testing.T) {
		outline, err := parseOutline(`{"title": "", "frames": []}`)
		require.NoError(t, err)
		assert.Empty(t, outline.Frames)
	})

	failures := map[string]string{
		"malformed":      "Sorry, I cannot help with that.",
		"missing frames": `{"title": "Only Title"}`,
		"missing title":  `{"frames": []}`,
		"fence no json":  "```json\nnothing here\n```",
		"not an object":  `["a", "b"]`,
	}
	for name, content := range failures {
		t.Run(name, func(t *testing.T) {
			_, err := parseOutline(content)
			assert.ErrorIs(t, err, ErrOutlineParse)
		})
	}
}

func TestTextGenerator_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("success sends configured parameters", func(t *testing.T) {
		model := &fakeChatModel{content: threeFrameOutline}
		gen := NewTextGenerator(model, testConfig(), zap.NewNop())

		outline, err := gen.Generate(ctx, validRequest())
		require.NoError(t, err)
		assert.Len(t, outline.Frames, 3)

		require.Len(t, model.requests, 1)
		sent := model.requests[0]
		assert.Equal(t, "gpt-4o-mini", sent.Model)
		assert.Equal(t, 2048, sent.MaxTokens)
		assert.InDelta(t, 0.8, sent.Temperature, 0.0001)
		assert.InDelta(t, 0.1, sent.TopP, 0.0001)
		require.Len(t, sent.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, sent.Messages[0].Role)
		assert.Contains(t, sent.Messages[1].Content, `"A robot learns to paint"`)
		assert.Contains(t, sent.Messages[1].Content, `["wide","close-up","wide"]`)
		assert.Contains(t, sent.Messages[1].Content, "IMPORTANT REQUIREMENTS FOR CHARACTER CONSISTENCY")
	})

	t.Run("malformed content degrades to empty outline", func(t *testing.T) {
		gen := NewTextGenerator(&fakeChatModel{content: "not json at all"}, testConfig(), zap.NewNop())

		outline, err := gen.Generate(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, "", outline.Title)
		assert.NotNil(t, outline.Frames)
		assert.Empty(t, outline.Frames)
	})

	t.Run("transport error is a generation error", func(t *testing.T) {
		gen := NewTextGenerator(&fakeChatModel{err: errors.New("connection reset")}, testConfig(), zap.NewNop())

		outline, err := gen.Generate(ctx, validRequest())
		assert.Nil(t, outline)
		assert.ErrorIs(t, err, models.ErrGenerationFailed)
		assert.Contains(t, err.Error(), "Failed to generate storyboard")
	})
}
