package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthsync/internal/observability"
)

var (
	ErrCompletionFailed = errors.New("completion service failed")
	ErrEmptyCompletion  = errors.New("completion service returned empty text")
)

// SystemPreamble is sent ahead of every user text.
const SystemPreamble = `You are HealthSync, an advanced health assistant providing accurate, evidence-based health information. Offer concise, safe answers to health-related questions. For serious symptoms (e.g., chest pain combined with difficulty breathing), urge immediate medical attention. Always include: 'I am not a doctor. Consult a healthcare professional for medical advice.' For non-health questions, redirect to health topics politely. Use a friendly, empathetic tone.`

// UnavailableMessage replaces the reply when the completion service fails.
const UnavailableMessage = "Sorry, the health assistant service is unavailable right now. Please try again in a moment."

const DefaultTimeout = 30 * time.Second

type CompletionRequest struct {
	SystemPreamble string
	UserText       string
	// Context holds prior turns, oldest first. May be empty.
	Context []Message
}

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type Orchestrator struct {
	completer Completer
	timeout   time.Duration
	now       func() time.Time
}

func NewOrchestrator(c Completer, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orchestrator{
		completer: c,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Respond sends userText with the window as context and returns the new turn.
// On failure the turn carries UnavailableMessage, the window is returned
// unchanged and the error wraps ErrCompletionFailed.
func (o *Orchestrator) Respond(ctx context.Context, window Window, userText string) (Turn, Window, error) {
	userMsg := Message{Role: RoleUser, Content: userText, Timestamp: o.now()}

	reply, err := o.call(ctx, CompletionRequest{
		SystemPreamble: SystemPreamble,
		UserText:       userText,
		Context:        window.Messages(),
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Error("completion failed",
			"error", err,
			"window_turns", window.Len())
		turn := Turn{
			User:      userMsg,
			Assistant: Message{Role: RoleAssistant, Content: UnavailableMessage, Timestamp: o.now()},
		}
		return turn, window, err
	}

	turn := Turn{
		User:      userMsg,
		Assistant: Message{Role: RoleAssistant, Content: reply, Timestamp: o.now()},
	}
	return turn, window.Append(turn), nil
}

// Complete runs a single prompt without conversation context.
func (o *Orchestrator) Complete(ctx context.Context, prompt string) (string, error) {
	return o.call(ctx, CompletionRequest{
		SystemPreamble: SystemPreamble,
		UserText:       prompt,
	})
}

func (o *Orchestrator) call(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := o.now()
	text, err := o.completer.Complete(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timed out after %s: %v", ErrCompletionFailed, o.timeout, err)
		}
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, ErrEmptyCompletion)
	}

	observability.LoggerFromContext(ctx).Debug("completion done",
		"elapsed_ms", o.now().Sub(start).Milliseconds(),
		"context_messages", len(req.Context))
	return text, nil
}
