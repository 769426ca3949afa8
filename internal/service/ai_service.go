package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	config "github.com/socialflowhq/socialflow-api/configs"
	"github.com/socialflowhq/socialflow-api/internal/platform"
	"github.com/socialflowhq/socialflow-api/internal/transfer"
)

// AIService drafts platform-appropriate post content with a local
// Ollama model.
type AIService interface {
	GenerateContent(ctx context.Context, req *transfer.GenerateRequest) (*transfer.GeneratedContent, error)
}

type aiService struct {
	cfg    config.Config
	client *http.Client

	// overridable in tests
	baseURL string
}

func NewAIService(cfg config.Config) AIService {
	return &aiService{
		cfg:     cfg,
		client:  &http.Client{},
		baseURL: cfg.OllamaURL,
	}
}

func (s *aiService) GenerateContent(ctx context.Context, req *transfer.GenerateRequest) (*transfer.GeneratedContent, error) {
	if req == nil || req.Topic == "" {
		err := errors.New("topic cannot be empty")
		slog.Info(err.Error())
		return nil, err
	}

	p, err := platform.Parse(req.Platform)
	if err != nil {
		return nil, err
	}

	tone := req.Tone
	if tone == "" {
		tone = "friendly"
	}

	prompt := fmt.Sprintf(
		`Write a %s social media post for %s about: %s.
Respond with a JSON object containing "content" (the post text),
"hashtags" (an array of hashtag strings without the # sign) and
"call_to_action" (one short sentence).`,
		tone, p, req.Topic)

	body, err := json.Marshal(transfer.OllamaRequest{
		Model:  s.cfg.OllamaModel,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error calling ollama: %w", err)
	}
	defer resp.Body.Close()

	var ollamaResp transfer.OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding ollama response: %w", err)
	}
	if ollamaResp.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", ollamaResp.Error)
	}

	var content transfer.GeneratedContent
	if err := json.Unmarshal([]byte(ollamaResp.Response), &content); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("model returned malformed content: %w", err)
	}
	if content.Content == "" {
		return nil, errors.New("model returned empty content")
	}

	return &content, nil
}
