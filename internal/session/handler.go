package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"healthsync/internal/habit"
	"healthsync/internal/observability"
	"healthsync/internal/report"
	"healthsync/internal/symptom"
	"healthsync/internal/translate"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type CreateSessionRequest struct {
	Language string `json:"language"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type SymptomsRequest struct {
	Symptoms []string `json:"symptoms"`
}

type BMIRequest struct {
	WeightKg float64 `json:"weight_kg"`
	HeightM  float64 `json:"height_m"`
}

type LanguageRequest struct {
	Language string `json:"language"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// fail maps service errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, translate.ErrUnsupportedLanguage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, report.ErrFontUnavailable):
		writeError(w, http.StatusServiceUnavailable, "report rendering is unavailable")
	default:
		observability.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	// An empty body starts an English session.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st, err := h.svc.Create(r.Context(), req.Language)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st.View())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.View())
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req ChatRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Chat(r.Context(), id, req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CheckSymptoms(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req SymptomsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.CheckSymptoms(r.Context(), id, req.Symptoms)
	if errors.Is(err, ErrEmptySelection) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   ErrEmptySelection.Error(),
			"kind":    string(res.Kind),
			"message": res.Message,
		})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CalculateBMI(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req BMIRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.CalculateBMI(r.Context(), id, req.WeightKg, req.HeightM)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) UpdateHabits(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req habit.Progress
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.UpdateHabits(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req LanguageRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := h.svc.SetLanguage(r.Context(), id, req.Language)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.View())
}

func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req FeedbackRequest
	if !decode(w, r, &req) {
		return
	}
	entry, err := h.svc.SubmitFeedback(r.Context(), id, req.Rating, req.Comment)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      entry.ID,
		"message": "Thank you for your feedback!",
	})
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	data, err := h.svc.Report(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="healthsync_%s.pdf"`, id))
	w.Write(data)
}

func (h *Handler) ShareReport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	shared, err := h.svc.ShareReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"shared": shared})
}

func (h *Handler) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"symptoms":       symptom.Vocabulary,
		"critical_pairs": symptom.CriticalPairs,
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/symptoms", h.ListSymptoms)
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/chat", h.Chat)
		r.Post("/symptoms", h.CheckSymptoms)
		r.Post("/bmi", h.CalculateBMI)
		r.Put("/habits", h.UpdateHabits)
		r.Put("/language", h.SetLanguage)
		r.Post("/feedback", h.SubmitFeedback)
		r.Get("/report", h.Report)
		r.Post("/report/share", h.ShareReport)
	})
}
