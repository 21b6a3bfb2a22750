package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"healthsync/internal/bmi"
	"healthsync/internal/conversation"
	"healthsync/internal/feedback"
	"healthsync/internal/habit"
	"healthsync/internal/observability"
	"healthsync/internal/report"
	"healthsync/internal/symptom"
	"healthsync/internal/translate"
)

// BMIHint answers the "bmi" chat keyword.
const BMIHint = "To calculate your BMI, enter your weight in kilograms and your height in meters in the BMI calculator."

// Responder produces assistant replies.
type Responder interface {
	Respond(ctx context.Context, window conversation.Window, userText string) (conversation.Turn, conversation.Window, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

type Translator interface {
	ToEnglish(ctx context.Context, text, from string) string
	FromEnglish(ctx context.Context, text, to string) string
}

// ReportService renders session summaries and delivers alerts.
type ReportService interface {
	Render(ctx context.Context, sum report.Summary) ([]byte, error)
	Share(ctx context.Context, sum report.Summary) (bool, error)
	NotifyUrgent(ctx context.Context, sessionID string, symptoms []string) error
}

type ChatResult struct {
	Reply    conversation.Message `json:"reply"`
	Degraded bool                 `json:"degraded"`
}

type SymptomResult struct {
	Kind     symptom.Kind `json:"kind"`
	Message  string       `json:"message"`
	Degraded bool         `json:"degraded"`
}

type BMIResult struct {
	bmi.Result
	Message string `json:"message"`
}

type HabitResult struct {
	Progress     habit.Progress `json:"progress"`
	Achievements []string       `json:"achievements"`
}

type Service interface {
	Create(ctx context.Context, language string) (State, error)
	Get(ctx context.Context, id uuid.UUID) (State, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Chat(ctx context.Context, id uuid.UUID, text string) (ChatResult, error)
	CheckSymptoms(ctx context.Context, id uuid.UUID, labels []string) (SymptomResult, error)
	CalculateBMI(ctx context.Context, id uuid.UUID, weightKg, heightM float64) (BMIResult, error)
	UpdateHabits(ctx context.Context, id uuid.UUID, p habit.Progress) (HabitResult, error)
	SetLanguage(ctx context.Context, id uuid.UUID, code string) (State, error)
	SubmitFeedback(ctx context.Context, id uuid.UUID, rating int, comment string) (feedback.Entry, error)
	Report(ctx context.Context, id uuid.UUID) ([]byte, error)
	ShareReport(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	store      *Store
	responder  Responder
	translator Translator
	reports    ReportService
	feedback   feedback.Repository
	windowSize int
	now        func() time.Time
}

func NewService(store *Store, responder Responder, translator Translator, reports ReportService, fb feedback.Repository, windowSize int) Service {
	if windowSize <= 0 {
		windowSize = conversation.DefaultWindowSize
	}
	return &service{
		store:      store,
		responder:  responder,
		translator: translator,
		reports:    reports,
		feedback:   fb,
		windowSize: windowSize,
		now:        time.Now,
	}
}

func (s *service) message(role conversation.Role, content string) conversation.Message {
	return conversation.Message{Role: role, Content: content, Timestamp: s.now()}
}

func (s *service) Create(ctx context.Context, language string) (State, error) {
	lang := translate.Normalize(language)
	if lang == "" {
		lang = translate.English
	}
	if !translate.Supported(lang) {
		return State{}, fmt.Errorf("%w: %q", translate.ErrUnsupportedLanguage, language)
	}

	now := s.now()
	st := State{
		ID:        uuid.New(),
		Language:  lang,
		Window:    conversation.NewWindow(s.windowSize),
		History:   []conversation.Message{},
		BMI:       []bmi.Record{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.Create(st)
	observability.LoggerFromContext(ctx).Info("session created", "session_id", st.ID, "language", lang)
	return st, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (State, error) {
	return s.store.Get(id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	observability.LoggerFromContext(ctx).Info("session deleted", "session_id", id)
	return nil
}

// Chat runs one conversational turn. A completion failure is not returned as
// an error: the visible reply explains it and Degraded is set.
func (s *service) Chat(ctx context.Context, id uuid.UUID, text string) (ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatResult{}, fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	log := observability.LoggerFromContext(ctx).With("session_id", id)

	var res ChatResult
	_, err := s.store.Update(id, func(st *State) error {
		if strings.EqualFold(text, "bmi") {
			res.Reply = s.message(conversation.RoleAssistant, s.translator.FromEnglish(ctx, BMIHint, st.Language))
			return nil
		}

		englishIn := s.translator.ToEnglish(ctx, text, st.Language)
		turn, window, err := s.responder.Respond(ctx, st.Window, englishIn)
		reply := turn.Assistant.Content
		if err != nil {
			log.Warn("chat degraded", "error", err)
			res.Degraded = true
		}
		reply = s.translator.FromEnglish(ctx, reply, st.Language)

		st.Window = window
		st.History = append(st.History,
			s.message(conversation.RoleUser, text),
			s.message(conversation.RoleAssistant, reply),
		)
		res.Reply = st.History[len(st.History)-1]
		return nil
	})
	if err != nil {
		return ChatResult{}, err
	}
	return res, nil
}

func (s *service) CheckSymptoms(ctx context.Context, id uuid.UUID, labels []string) (SymptomResult, error) {
	set, err := symptom.ParseSet(labels)
	if err != nil {
		return SymptomResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	log := observability.LoggerFromContext(ctx).With("session_id", id)
	gate := symptom.Evaluate(set)

	var res SymptomResult
	_, err = s.store.Update(id, func(st *State) error {
		res.Kind = gate.Kind
		switch gate.Kind {
		case symptom.KindEmpty:
			res.Message = s.translator.FromEnglish(ctx, gate.Message, st.Language)
			return ErrEmptySelection
		case symptom.KindUrgent:
			log.Warn("urgent symptom combination", "symptoms", set.Labels(), "pairs", len(gate.Matched))
			if err := s.reports.NotifyUrgent(ctx, st.ID.String(), set.Labels()); err != nil {
				log.Error("urgent alert failed", "error", err)
			}
			res.Message = s.translator.FromEnglish(ctx, gate.Message, st.Language)
		default:
			reply, err := s.responder.Complete(ctx, gate.Prompt)
			if err != nil {
				log.Warn("symptom check degraded", "error", err)
				res.Degraded = true
				reply = conversation.UnavailableMessage
			}
			res.Message = s.translator.FromEnglish(ctx, reply, st.Language)
		}

		st.History = append(st.History,
			s.message(conversation.RoleUser, "Symptoms: "+strings.Join(set.Labels(), ", ")),
			s.message(conversation.RoleAssistant, res.Message),
		)
		return nil
	})
	if errors.Is(err, ErrEmptySelection) {
		return res, err
	}
	if err != nil {
		return SymptomResult{}, err
	}
	return res, nil
}

func (s *service) CalculateBMI(ctx context.Context, id uuid.UUID, weightKg, heightM float64) (BMIResult, error) {
	rec, err := bmi.NewRecord(weightKg, heightM, s.now())
	if err != nil {
		return BMIResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	result := rec.Result()

	var res BMIResult
	_, err = s.store.Update(id, func(st *State) error {
		msg := s.translator.FromEnglish(ctx, result.Message(), st.Language)
		st.BMI = append(st.BMI, rec)
		st.History = append(st.History,
			s.message(conversation.RoleUser, "BMI calculation"),
			s.message(conversation.RoleAssistant, msg),
		)
		res = BMIResult{Result: result, Message: msg}
		return nil
	})
	if err != nil {
		return BMIResult{}, err
	}
	return res, nil
}

func (s *service) UpdateHabits(ctx context.Context, id uuid.UUID, p habit.Progress) (HabitResult, error) {
	if err := p.Validate(); err != nil {
		return HabitResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var res HabitResult
	_, err := s.store.Update(id, func(st *State) error {
		st.Habits = p
		achievements := s.achievements(ctx, p, st.Language)
		st.Achievements = achievements
		res = HabitResult{Progress: p, Achievements: append([]string(nil), achievements...)}
		return nil
	})
	if err != nil {
		return HabitResult{}, err
	}
	return res, nil
}

func (s *service) achievements(ctx context.Context, p habit.Progress, lang string) []string {
	out := habit.Achievements(p)
	for i, a := range out {
		out[i] = s.translator.FromEnglish(ctx, a, lang)
	}
	return out
}

func (s *service) SetLanguage(ctx context.Context, id uuid.UUID, code string) (State, error) {
	lang := translate.Normalize(code)
	if !translate.Supported(lang) {
		return State{}, fmt.Errorf("%w: %q", translate.ErrUnsupportedLanguage, code)
	}
	return s.store.Update(id, func(st *State) error {
		st.Language = lang
		st.Achievements = s.achievements(ctx, st.Habits, lang)
		return nil
	})
}

func (s *service) SubmitFeedback(ctx context.Context, id uuid.UUID, rating int, comment string) (feedback.Entry, error) {
	entry, err := feedback.NewEntry(id, rating, comment)
	if err != nil {
		return feedback.Entry{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	_, err = s.store.Update(id, func(st *State) error {
		st.History = append(st.History, s.message(conversation.RoleUser, entry.Summary()))
		return nil
	})
	if err != nil {
		return feedback.Entry{}, err
	}

	if err := s.feedback.Save(ctx, &entry); err != nil {
		// The transcript already has the entry; storage is best effort.
		observability.LoggerFromContext(ctx).Error("feedback not stored", "session_id", id, "error", err)
	}
	return entry, nil
}

func (s *service) summary(id uuid.UUID) (report.Summary, error) {
	st, err := s.store.Get(id)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summary{
		SessionID:  st.ID.String(),
		Language:   st.Language,
		CreatedAt:  st.CreatedAt,
		BMI:        st.BMI,
		Habits:     st.Habits,
		Transcript: st.History,
	}, nil
}

func (s *service) Report(ctx context.Context, id uuid.UUID) ([]byte, error) {
	sum, err := s.summary(id)
	if err != nil {
		return nil, err
	}
	return s.reports.Render(ctx, sum)
}

func (s *service) ShareReport(ctx context.Context, id uuid.UUID) (bool, error) {
	sum, err := s.summary(id)
	if err != nil {
		return false, err
	}
	return s.reports.Share(ctx, sum)
}
