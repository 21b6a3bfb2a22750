package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"healthsync/internal/conversation"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.1-8b-instant"
	DefaultTemperature = 0.7
)

// GroqClient talks to an OpenAI-compatible chat completions endpoint.
type GroqClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

type GroqOptions struct {
	BaseURL string
	Model   string
	// Temperature is sent as given; 0 asks for deterministic output.
	Temperature float64
	Timeout     time.Duration
}

func NewGroqClient(apiKey string, opts GroqOptions) *GroqClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultGroqBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultGroqModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &GroqClient{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		temperature: opts.Temperature,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// buildMessages lays out the preamble, prior turns and the new user text.
func buildMessages(req conversation.CompletionRequest) []chatMessage {
	msgs := make([]chatMessage, 0, len(req.Context)+2)
	if req.SystemPreamble != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPreamble})
	}
	for _, m := range req.Context {
		role := "user"
		if m.Role == conversation.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Content})
	}
	return append(msgs, chatMessage{Role: "user", Content: req.UserText})
}

func (c *GroqClient) Complete(ctx context.Context, req conversation.CompletionRequest) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    buildMessages(req),
		Temperature: c.temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("groq API error: %s - %s", resp.Status, string(body))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode groq response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}
