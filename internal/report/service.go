package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"healthsync/internal/bmi"
	"healthsync/internal/conversation"
	"healthsync/internal/habit"
	"healthsync/internal/observability"
)

var ErrFontUnavailable = errors.New("no font available for PDF report")

type TelegramClient interface {
	SendMessage(chatID int64, text string) error
	SendDocument(chatID int64, fileData []byte, fileName string) error
}

// Summary is the session data printed in a report.
type Summary struct {
	SessionID  string
	Language   string
	CreatedAt  time.Time
	BMI        []bmi.Record
	Habits     habit.Progress
	Transcript []conversation.Message
}

var defaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

const (
	pageBottom = 780
	lineWidth  = 500
)

type Service struct {
	tgClient    TelegramClient
	alertChatID int64
	fontPaths   []string
	now         func() time.Time
}

// NewService builds a report service. A nil client or zero chat id disables
// Telegram delivery. fontPath, when set, is tried before the DejaVu defaults.
func NewService(tg TelegramClient, alertChatID int64, fontPath string) *Service {
	paths := defaultFontPaths
	if fontPath != "" {
		paths = append([]string{fontPath}, defaultFontPaths...)
	}
	return &Service{
		tgClient:    tg,
		alertChatID: alertChatID,
		fontPaths:   paths,
		now:         time.Now,
	}
}

func (s *Service) telegramEnabled() bool {
	return s.tgClient != nil && s.alertChatID != 0
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range s.fontPaths {
		err := pdf.AddTTFFont("DejaVu", path)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrFontUnavailable, lastErr)
}

type writer struct {
	pdf *gopdf.GoPdf
}

func (w writer) font(size float64) error {
	return w.pdf.SetFont("DejaVu", "", size)
}

func (w writer) line(text string, height float64) {
	if w.pdf.GetY() > pageBottom {
		w.pdf.AddPage()
	}
	w.pdf.Cell(nil, text)
	w.pdf.Br(height)
}

// paragraph wraps text to the page width.
func (w writer) paragraph(text string) {
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			w.pdf.Br(6)
			continue
		}
		lines, err := w.pdf.SplitText(raw, lineWidth)
		if err != nil {
			lines = []string{raw}
		}
		for _, l := range lines {
			w.line(l, 12)
		}
	}
}

// Render produces the PDF bytes for a session summary.
func (s *Service) Render(ctx context.Context, sum Summary) ([]byte, error) {
	log := observability.LoggerFromContext(ctx)

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()
	if err := s.loadFont(&pdf); err != nil {
		log.Error("report font unavailable", "error", err)
		return nil, err
	}
	w := writer{pdf: &pdf}

	if err := w.font(20); err != nil {
		return nil, err
	}
	w.line("HealthSync session summary", 30)

	if err := w.font(12); err != nil {
		return nil, err
	}
	w.line(fmt.Sprintf("Date: %s", s.now().Format("02.01.2006 15:04")), 15)
	w.line(fmt.Sprintf("Session: %s", sum.SessionID), 15)
	w.line(fmt.Sprintf("Language: %s", sum.Language), 15)
	if !sum.CreatedAt.IsZero() {
		w.line(fmt.Sprintf("Started: %s", sum.CreatedAt.Format("02.01.2006 15:04")), 15)
	}
	pdf.Br(10)

	if err := w.font(14); err != nil {
		return nil, err
	}
	w.line("BMI history", 15)
	if err := w.font(11); err != nil {
		return nil, err
	}
	if len(sum.BMI) == 0 {
		w.line("- No BMI calculations.", 15)
	}
	for _, rec := range sum.BMI {
		w.line(fmt.Sprintf("- %s: %.1f kg, %.2f m, BMI %.1f (%s)",
			rec.RecordedAt.Format("02.01.2006 15:04"), rec.WeightKg, rec.HeightM, rec.Value, rec.Category), 12)
	}
	pdf.Br(10)

	if err := w.font(14); err != nil {
		return nil, err
	}
	w.line("Daily challenges", 15)
	if err := w.font(11); err != nil {
		return nil, err
	}
	w.line(fmt.Sprintf("- Water: %d/%d glasses", sum.Habits.WaterGlasses, habit.WaterGoal), 12)
	w.line(fmt.Sprintf("- Steps: %d/%d", sum.Habits.Steps, habit.StepsGoal), 12)
	pdf.Br(10)

	if err := w.font(14); err != nil {
		return nil, err
	}
	w.line("Conversation", 15)
	if err := w.font(11); err != nil {
		return nil, err
	}
	if len(sum.Transcript) == 0 {
		w.line("- No messages.", 15)
	}
	for _, m := range sum.Transcript {
		w.paragraph(fmt.Sprintf("%s: %s", speaker(m.Role), m.Content))
		pdf.Br(4)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Share renders the summary and sends it to the alert chat. It reports false
// without error when Telegram is not configured.
func (s *Service) Share(ctx context.Context, sum Summary) (bool, error) {
	if !s.telegramEnabled() {
		return false, nil
	}
	data, err := s.Render(ctx, sum)
	if err != nil {
		return false, err
	}
	fileName := fmt.Sprintf("healthsync_%s.pdf", sum.SessionID)
	if err := s.tgClient.SendDocument(s.alertChatID, data, fileName); err != nil {
		observability.LoggerFromContext(ctx).Error("telegram document failed", "session_id", sum.SessionID, "error", err)
		return false, err
	}
	return true, nil
}

// NotifyUrgent sends a text alert for a critical symptom combination.
func (s *Service) NotifyUrgent(ctx context.Context, sessionID string, symptoms []string) error {
	if !s.telegramEnabled() {
		return nil
	}
	text := fmt.Sprintf("Urgent symptom combination reported in session %s: %s", sessionID, strings.Join(symptoms, ", "))
	if err := s.tgClient.SendMessage(s.alertChatID, text); err != nil {
		observability.LoggerFromContext(ctx).Error("telegram alert failed", "session_id", sessionID, "error", err)
		return err
	}
	return nil
}

func speaker(role conversation.Role) string {
	switch role {
	case conversation.RoleUser:
		return "You"
	case conversation.RoleAssistant:
		return "HealthSync"
	default:
		return string(role)
	}
}
