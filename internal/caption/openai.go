package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crosspost/internal/config"
	"crosspost/internal/logging"
)

// openAIGenerator calls any chat-completions compatible endpoint.
type openAIGenerator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func newOpenAI(cfg config.Caption, apiKey string, logger *slog.Logger) *openAIGenerator {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &openAIGenerator{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (g *openAIGenerator) Generate(ctx context.Context, sourceText, displayHandle string) string {
	text, err := g.complete(ctx, sourceText, displayHandle)
	if err != nil {
		g.logger.Warn("caption generation failed, using fallback", logging.Error(err))
		return Fallback(displayHandle)
	}
	return text
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *openAIGenerator) complete(ctx context.Context, sourceText, displayHandle string) (string, error) {
	endpoint, err := url.JoinPath(g.baseURL, "/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("caption: build url: %w", err)
	}
	encoded, err := json.Marshal(chatCompletionRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: instructionPrompt},
			{Role: "user", Content: userPrompt(sourceText, displayHandle)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("caption: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("caption: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("caption: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("caption: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("caption: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("caption: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("caption: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("caption: empty choices")
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("caption: empty content")
	}
	return content, nil
}
