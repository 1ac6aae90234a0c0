package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const enhancePrompt = "Transform the following message into a professional email. " +
	"Maintain the core message but make it more formal and well-structured. " +
	"Add appropriate greeting and closing."

// ContentEnhancer rewrites a transcript into polished prose
type ContentEnhancer interface {
	EnhanceContent(ctx context.Context, text string) (string, error)
}

// ContentService rewrites transcripts with an OpenAI chat model
type ContentService struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewContentService creates a content service. An empty baseURL uses OpenAI's API.
func NewContentService(apiKey, model, baseURL string, logger *slog.Logger) *ContentService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &ContentService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

func (s *ContentService) EnhanceContent(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", validationError("nothing to enhance")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: enhancePrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		s.logger.Error("content enhancement failed", "model", s.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrEnhanceFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrEnhanceFailed)
	}

	content := strings.TrimSpace(resp.Choices[len(resp.Choices)-1].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrEnhanceFailed)
	}
	return content, nil
}
