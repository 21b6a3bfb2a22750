package translate

import (
	"context"
	"errors"
	"strings"

	"healthsync/internal/observability"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

const English = "en"

// Languages maps supported codes to their display names.
var Languages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
}

func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func Supported(code string) bool {
	_, ok := Languages[Normalize(code)]
	return ok
}

// Translator is the remote translation service.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Service wraps a Translator so that no failure ever blocks the user: an
// unsupported code or a failed call returns the text untranslated.
type Service struct {
	client Translator
}

// NewService accepts a nil client, in which case every call passes through.
func NewService(client Translator) *Service {
	return &Service{client: client}
}

func (s *Service) ToEnglish(ctx context.Context, text, from string) string {
	if Normalize(from) == English {
		return text
	}
	return s.translate(ctx, text, from, English)
}

func (s *Service) FromEnglish(ctx context.Context, text, to string) string {
	return s.translate(ctx, text, to, to)
}

// translate checks userLang and asks the client for target.
func (s *Service) translate(ctx context.Context, text, userLang, target string) string {
	log := observability.LoggerFromContext(ctx)
	userLang = Normalize(userLang)
	if userLang == English || text == "" {
		return text
	}
	if !Supported(userLang) {
		log.Warn("translation skipped", "language", userLang, "error", ErrUnsupportedLanguage)
		return text
	}
	if s.client == nil {
		return text
	}

	out, err := s.client.Translate(ctx, text, Normalize(target))
	if err != nil || strings.TrimSpace(out) == "" {
		log.Warn("translation failed, passing text through", "language", userLang, "target", target, "error", err)
		return text
	}
	return out
}
