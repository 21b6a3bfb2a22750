package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"healthsync/internal/bmi"
	"healthsync/internal/conversation"
	"healthsync/internal/feedback"
	"healthsync/internal/habit"
	"healthsync/internal/report"
	"healthsync/internal/symptom"
	"healthsync/internal/translate"
)

type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []conversation.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req conversation.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type prefixTranslator struct{}

func (prefixTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	return target + ":" + text, nil
}

type fakeReports struct {
	alerts [][]string
	shared int
}

func (f *fakeReports) Render(ctx context.Context, sum report.Summary) ([]byte, error) {
	return []byte("%PDF-" + sum.SessionID), nil
}

func (f *fakeReports) Share(ctx context.Context, sum report.Summary) (bool, error) {
	f.shared++
	return true, nil
}

func (f *fakeReports) NotifyUrgent(ctx context.Context, sessionID string, symptoms []string) error {
	f.alerts = append(f.alerts, symptoms)
	return nil
}

type fixture struct {
	svc       Service
	completer *fakeCompleter
	reports   *fakeReports
	feedback  feedback.Repository
}

func newFixture(t *testing.T, tr translate.Translator) fixture {
	t.Helper()
	fc := &fakeCompleter{reply: "Stay hydrated."}
	fr := &fakeReports{}
	fb := feedback.NewMemoryRepository()
	svc := NewService(
		NewStore(time.Hour),
		conversation.NewOrchestrator(fc, time.Second),
		translate.NewService(tr),
		fr,
		fb,
		3,
	)
	return fixture{svc: svc, completer: fc, reports: fr, feedback: fb}
}

func TestCreateRejectsUnsupportedLanguage(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.Create(context.Background(), "de"); !errors.Is(err, translate.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
	st, err := f.svc.Create(context.Background(), "")
	if err != nil || st.Language != "en" {
		t.Fatalf("expected english default, got %+v, %v", st, err)
	}
}

func TestChatAppendsToHistoryAndWindow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	res, err := f.svc.Chat(ctx, st.ID, "How much water should I drink?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Degraded || res.Reply.Content != "Stay hydrated." {
		t.Fatalf("unexpected result %+v", res)
	}

	got, _ := f.svc.Get(ctx, st.ID)
	if len(got.History) != 2 || got.Window.Len() != 1 {
		t.Fatalf("expected 2 history messages and 1 window turn, got %d/%d", len(got.History), got.Window.Len())
	}
}

func TestChatWindowIsBounded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Chat(ctx, st.ID, "question"); err != nil {
			t.Fatalf("chat: %v", err)
		}
	}
	got, _ := f.svc.Get(ctx, st.ID)
	if got.Window.Len() != 3 {
		t.Fatalf("expected window of 3, got %d", got.Window.Len())
	}
	if len(got.History) != 10 {
		t.Fatalf("history keeps every message, got %d", len(got.History))
	}
	last := f.completer.calls[len(f.completer.calls)-1]
	if len(last.Context) != 6 {
		t.Fatalf("expected 3 prior turns as context, got %d messages", len(last.Context))
	}
}

func TestChatFailureIsVisibleAndDegraded(t *testing.T) {
	f := newFixture(t, nil)
	f.completer.err = errors.New("service down")
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	res, err := f.svc.Chat(ctx, st.ID, "hello")
	if err != nil {
		t.Fatalf("collaborator failure must not be an error: %v", err)
	}
	if !res.Degraded || res.Reply.Content != conversation.UnavailableMessage {
		t.Fatalf("expected degraded visible reply, got %+v", res)
	}
	got, _ := f.svc.Get(ctx, st.ID)
	if len(got.History) != 2 || got.Window.Len() != 0 {
		t.Fatalf("failed turn belongs in history only, got %d/%d", len(got.History), got.Window.Len())
	}
}

func TestChatBMIKeywordSkipsModel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	res, err := f.svc.Chat(ctx, st.ID, " BMI ")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Reply.Content != BMIHint || f.completer.callCount() != 0 {
		t.Fatalf("expected hint without model call, got %+v (%d calls)", res, f.completer.callCount())
	}
}

func TestChatTranslatesBothWays(t *testing.T) {
	f := newFixture(t, prefixTranslator{})
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "es")

	res, err := f.svc.Chat(ctx, st.ID, "hola")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if f.completer.calls[0].UserText != "en:hola" {
		t.Fatalf("model should see english text, got %q", f.completer.calls[0].UserText)
	}
	if res.Reply.Content != "es:Stay hydrated." {
		t.Fatalf("reply should be translated back, got %q", res.Reply.Content)
	}
	got, _ := f.svc.Get(ctx, st.ID)
	if got.History[0].Content != "hola" {
		t.Fatalf("history keeps the user's own words, got %q", got.History[0].Content)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t, nil)
	st, _ := f.svc.Create(context.Background(), "en")
	if _, err := f.svc.Chat(context.Background(), st.ID, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.Chat(context.Background(), uuid.New(), "hi"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCheckSymptoms(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		f := newFixture(t, nil)
		st, _ := f.svc.Create(ctx, "en")
		res, err := f.svc.CheckSymptoms(ctx, st.ID, nil)
		if !errors.Is(err, ErrEmptySelection) || res.Message != symptom.EmptyMessage {
			t.Fatalf("expected empty selection message, got %+v, %v", res, err)
		}
		got, _ := f.svc.Get(ctx, st.ID)
		if len(got.History) != 0 {
			t.Fatalf("empty selection must not change history")
		}
	})

	t.Run("urgent", func(t *testing.T) {
		f := newFixture(t, nil)
		st, _ := f.svc.Create(ctx, "en")
		res, err := f.svc.CheckSymptoms(ctx, st.ID, []string{"Difficulty breathing", "Chest pain", "Fever"})
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if res.Kind != symptom.KindUrgent || res.Message != symptom.UrgentMessage {
			t.Fatalf("expected urgent warning, got %+v", res)
		}
		if f.completer.callCount() != 0 {
			t.Fatal("urgent path must not call the model")
		}
		if len(f.reports.alerts) != 1 {
			t.Fatalf("expected one alert, got %d", len(f.reports.alerts))
		}
		got, _ := f.svc.Get(ctx, st.ID)
		if len(got.History) != 2 || got.History[0].Content != "Symptoms: Fever, Chest pain, Difficulty breathing" {
			t.Fatalf("unexpected history %+v", got.History)
		}
	})

	t.Run("forward", func(t *testing.T) {
		f := newFixture(t, nil)
		f.completer.reply = "- Condition 1: Flu"
		st, _ := f.svc.Create(ctx, "en")
		res, err := f.svc.CheckSymptoms(ctx, st.ID, []string{"fever", "cough"})
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if res.Kind != symptom.KindForward || res.Message != "- Condition 1: Flu" {
			t.Fatalf("unexpected result %+v", res)
		}
		if !strings.Contains(f.completer.calls[0].UserText, "Fever, Cough") {
			t.Fatalf("prompt should list the symptoms, got %q", f.completer.calls[0].UserText)
		}
	})

	t.Run("forward failure", func(t *testing.T) {
		f := newFixture(t, nil)
		f.completer.err = errors.New("down")
		st, _ := f.svc.Create(ctx, "en")
		res, err := f.svc.CheckSymptoms(ctx, st.ID, []string{"Headache"})
		if err != nil {
			t.Fatalf("collaborator failure must not be an error: %v", err)
		}
		if !res.Degraded || res.Message != conversation.UnavailableMessage {
			t.Fatalf("expected degraded visible message, got %+v", res)
		}
	})

	t.Run("unknown label", func(t *testing.T) {
		f := newFixture(t, nil)
		st, _ := f.svc.Create(ctx, "en")
		if _, err := f.svc.CheckSymptoms(ctx, st.ID, []string{"Hiccups"}); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestCalculateBMI(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	res, err := f.svc.CalculateBMI(ctx, st.ID, 70, 1.75)
	if err != nil {
		t.Fatalf("bmi: %v", err)
	}
	if res.Category != bmi.Normal || !strings.HasPrefix(res.Message, "Your BMI is 22.9 (Normal).") {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := f.svc.CalculateBMI(ctx, st.ID, 0, 1.75); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	got, _ := f.svc.Get(ctx, st.ID)
	if len(got.BMI) != 1 || len(got.History) != 2 || got.History[0].Content != "BMI calculation" {
		t.Fatalf("unexpected state %+v", got)
	}
	if got.Window.Len() != 0 {
		t.Fatal("bmi results stay out of the model context")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, "en")
	b, _ := f.svc.Create(ctx, "en")

	f.svc.Chat(ctx, a.ID, "hello")
	f.svc.CalculateBMI(ctx, a.ID, 80, 1.8)

	got, _ := f.svc.Get(ctx, b.ID)
	if len(got.History) != 0 || len(got.BMI) != 0 || got.Window.Len() != 0 {
		t.Fatalf("session b picked up state from a: %+v", got)
	}
}

func TestConcurrentChatsOnOneSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.Chat(ctx, st.ID, "hi")
		}()
	}
	wg.Wait()

	got, _ := f.svc.Get(ctx, st.ID)
	if len(got.History) != 40 {
		t.Fatalf("expected 40 messages, got %d", len(got.History))
	}
}

func TestUpdateHabits(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	res, err := f.svc.UpdateHabits(ctx, st.ID, habit.Progress{WaterGlasses: 8, Steps: 500})
	if err != nil || len(res.Achievements) != 1 {
		t.Fatalf("unexpected result %+v, %v", res, err)
	}
	if _, err := f.svc.UpdateHabits(ctx, st.ID, habit.Progress{Steps: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSetLanguage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	got, err := f.svc.SetLanguage(ctx, st.ID, "FR")
	if err != nil || got.Language != "fr" {
		t.Fatalf("unexpected %+v, %v", got, err)
	}
	if _, err := f.svc.SetLanguage(ctx, st.ID, "xx"); !errors.Is(err, translate.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestSubmitFeedback(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	if _, err := f.svc.SubmitFeedback(ctx, st.ID, 4, "very helpful"); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if _, err := f.svc.SubmitFeedback(ctx, st.ID, 9, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	got, _ := f.svc.Get(ctx, st.ID)
	if len(got.History) != 1 || got.History[0].Content != "Feedback: 4/5 - very helpful" {
		t.Fatalf("unexpected history %+v", got.History)
	}
	stored, _ := f.feedback.ListRecent(ctx, 10)
	if len(stored) != 1 || stored[0].SessionID != st.ID {
		t.Fatalf("feedback not stored: %+v", stored)
	}
}

func TestReportAndShare(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	data, err := f.svc.Report(ctx, st.ID)
	if err != nil || string(data) != "%PDF-"+st.ID.String() {
		t.Fatalf("unexpected report %q, %v", data, err)
	}
	shared, err := f.svc.ShareReport(ctx, st.ID)
	if err != nil || !shared || f.reports.shared != 1 {
		t.Fatalf("unexpected share %v, %v", shared, err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")
	if err := f.svc.Delete(ctx, st.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, st.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAchievementsFollowSessionLanguage(t *testing.T) {
	f := newFixture(t, prefixTranslator{})
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "fr")

	res, err := f.svc.UpdateHabits(ctx, st.ID, habit.Progress{WaterGlasses: 9})
	if err != nil {
		t.Fatalf("habits: %v", err)
	}
	view := mustGet(t, f.svc, st.ID).View()
	if len(view.Achievements) != 1 || view.Achievements[0] != res.Achievements[0] {
		t.Fatalf("view %v should match returned achievements %v", view.Achievements, res.Achievements)
	}
	if !strings.HasPrefix(view.Achievements[0], "fr:") {
		t.Fatalf("expected french achievement, got %q", view.Achievements[0])
	}

	if _, err := f.svc.SetLanguage(ctx, st.ID, "es"); err != nil {
		t.Fatalf("set language: %v", err)
	}
	view = mustGet(t, f.svc, st.ID).View()
	if !strings.HasPrefix(view.Achievements[0], "es:") {
		t.Fatalf("expected achievements to follow the new language, got %q", view.Achievements[0])
	}
}

func TestCalculateBMIRejectsOverflowingInput(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, "en")

	if _, err := f.svc.CalculateBMI(ctx, st.ID, 70, 1e-200); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if got := mustGet(t, f.svc, st.ID); len(got.BMI) != 0 || len(got.History) != 0 {
		t.Fatalf("rejected input must not change the session: %+v", got)
	}
}

func mustGet(t *testing.T, svc Service, id uuid.UUID) State {
	t.Helper()
	st, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return st
}
