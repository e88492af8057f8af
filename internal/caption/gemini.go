package caption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"crosspost/internal/config"
	"crosspost/internal/logging"
)

// geminiGenerator produces captions via the Gemini API.
type geminiGenerator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func newGemini(ctx context.Context, cfg config.Caption, apiKey string, logger *slog.Logger) (*geminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &geminiGenerator{client: client, model: model, logger: logger}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, sourceText, displayHandle string) string {
	text, err := g.complete(ctx, sourceText, displayHandle)
	if err != nil {
		g.logger.Warn("caption generation failed, using fallback", logging.Error(err))
		return Fallback(displayHandle)
	}
	return text
}

func (g *geminiGenerator) complete(ctx context.Context, sourceText, displayHandle string) (string, error) {
	prompt := instructionPrompt + "\n\n" + userPrompt(sourceText, displayHandle)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("caption: gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("caption: empty gemini response")
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			builder.WriteString(part.Text)
		}
	}
	content := strings.TrimSpace(builder.String())
	if content == "" {
		return "", errors.New("caption: empty gemini content")
	}
	return content, nil
}
