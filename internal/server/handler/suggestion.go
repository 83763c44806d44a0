package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// SuggestionService defines the methods that the suggestion handler requires
// from the service layer.
type SuggestionService interface {
	ListByDate(ctx context.Context, targetDate string) ([]domain.BetRecord, error)
	Get(ctx context.Context, id string) (domain.BetRecord, error)
	CreateAndAnalyze(ctx context.Context, targetDate string) (domain.BetRecord, error)
	Promote(ctx context.Context, id string) (domain.BetRecord, error)
}

// SuggestionHandler serves the exploratory suggestion endpoints.
type SuggestionHandler struct {
	suggestions SuggestionService
	logger      *slog.Logger
}

// NewSuggestionHandler creates a SuggestionHandler.
func NewSuggestionHandler(suggestions SuggestionService, logger *slog.Logger) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions, logger: logger}
}

// suggestionsResponse wraps the list response.
type suggestionsResponse struct {
	TargetDate  string             `json:"target_date"`
	Suggestions []domain.BetRecord `json:"suggestions"`
}

// ListSuggestions returns every suggestion for one date.
// GET /api/suggestions?date=2026-08-29
func (h *SuggestionHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	sugs, err := h.suggestions.ListByDate(r.Context(), date)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list suggestions")
		return
	}
	if sugs == nil {
		sugs = []domain.BetRecord{}
	}
	writeSuccess(w, http.StatusOK, suggestionsResponse{TargetDate: date, Suggestions: sugs})
}

// GetSuggestion returns one suggestion by id.
// GET /api/suggestions/{id}
func (h *SuggestionHandler) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing suggestion id")
		return
	}

	sug, err := h.suggestions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to load suggestion")
		return
	}
	writeSuccess(w, http.StatusOK, sug)
}

// createSuggestionRequest is the body for an on-demand suggestion run.
type createSuggestionRequest struct {
	TargetDate string `json:"target_date"`
}

// CreateSuggestion runs one suggestion pass on demand. A date with a live
// suggestion returns 409.
// POST /api/suggestions
func (h *SuggestionHandler) CreateSuggestion(w http.ResponseWriter, r *http.Request) {
	var req createSuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	date := req.TargetDate
	if date == "" {
		date = todayUTC()
	}
	if _, err := validDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "target_date must be YYYY-MM-DD")
		return
	}

	sug, err := h.suggestions.CreateAndAnalyze(r.Context(), date)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to create suggestion")
		return
	}
	writeSuccess(w, http.StatusCreated, sug)
}

// Promote converts an analyzed suggestion into a ready bet slip.
// POST /api/suggestions/{id}/promote
func (h *SuggestionHandler) Promote(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing suggestion id")
		return
	}

	rec, err := h.suggestions.Promote(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to promote suggestion")
		return
	}
	writeSuccess(w, http.StatusCreated, rec)
}
