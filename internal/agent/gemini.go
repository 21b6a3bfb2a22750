package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"healthsync/internal/conversation"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient completes prompts through the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float64) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key must be set")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: float32(temperature),
	}, nil
}

func buildContents(req conversation.CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Context)+1)
	for _, m := range req.Context {
		var role genai.Role = genai.RoleUser
		if m.Role == conversation.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return append(contents, genai.NewContentFromText(req.UserText, genai.RoleUser))
}

func (g *GeminiClient) Complete(ctx context.Context, req conversation.CompletionRequest) (string, error) {
	temp := g.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if req.SystemPreamble != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPreamble, genai.RoleUser)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, buildContents(req), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return res.Text(), nil
}
