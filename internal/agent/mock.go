package agent

import (
	"context"
	"strings"

	"healthsync/internal/conversation"
)

// MockClient answers locally so the server can run without an API key.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (MockClient) Complete(ctx context.Context, req conversation.CompletionRequest) (string, error) {
	if strings.Contains(req.UserText, "Possible conditions") || strings.Contains(req.UserText, "symptoms:") {
		return "- Condition 1: Common cold (mock response)\n\nI am not a doctor. Consult a healthcare professional for medical advice.", nil
	}
	return "Staying hydrated and getting regular sleep supports overall health. I am not a doctor. Consult a healthcare professional for medical advice.", nil
}
