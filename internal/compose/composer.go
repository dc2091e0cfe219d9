// Package compose optionally rewrites notification drafts with a language
// model. Composition is cosmetic: any failure falls back to the plain
// rendered message upstream.
package compose

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

const systemPrompt = "Rewrite the following aircraft takeoff report as a single engaging social media post. " +
	"Keep every fact (callsign, airports, heading, times) exactly as given, stay under 280 characters, " +
	"and do not add hashtags or emoji. Reply with the post text only."

// GeminiComposer rewrites status drafts via the Gemini API.
type GeminiComposer struct {
	client *genai.Client
	model  string
	logger *logger.Logger
}

// NewGeminiComposer creates a composer for the given model.
func NewGeminiComposer(ctx context.Context, apiKey, model string, log *logger.Logger) (*GeminiComposer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiComposer{
		client: client,
		model:  model,
		logger: log.Named("composer"),
	}, nil
}

// Compose rewrites the draft. The draft is returned unchanged when the
// model produces nothing usable.
func (c *GeminiComposer) Compose(ctx context.Context, draft string) (string, error) {
	prompt := systemPrompt + "\n\n" + draft

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate composed message: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		c.logger.Warn("Composer returned empty text, keeping draft")
		return draft, nil
	}

	c.logger.Debug("Composed notification text",
		logger.Int("draft_len", len(draft)),
		logger.Int("composed_len", len(text)))

	return text, nil
}
