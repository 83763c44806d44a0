package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// LearningsStore persists the lessons-learned document.
type LearningsStore interface {
	Get(ctx context.Context) (domain.LearningsRecord, error)
	Put(ctx context.Context, content string) error
}

// LearningsHandler serves the lessons-learned endpoints. The document is
// normally maintained by the learning loop; the PUT endpoint lets an operator
// seed or correct it.
type LearningsHandler struct {
	store  LearningsStore
	logger *slog.Logger
}

// NewLearningsHandler creates a LearningsHandler.
func NewLearningsHandler(store LearningsStore, logger *slog.Logger) *LearningsHandler {
	return &LearningsHandler{store: store, logger: logger}
}

// GetLearnings returns the current document; an empty one when it was never
// written.
// GET /api/learnings
func (h *LearningsHandler) GetLearnings(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeSuccess(w, http.StatusOK, domain.LearningsRecord{})
			return
		}
		writeDomainError(w, r, h.logger, err, "failed to load learnings")
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

// updateLearningsRequest is the body for rewriting the document.
type updateLearningsRequest struct {
	Content string `json:"content"`
}

// UpdateLearnings replaces the document wholesale.
// PUT /api/learnings
func (h *LearningsHandler) UpdateLearnings(w http.ResponseWriter, r *http.Request) {
	var req updateLearningsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.store.Put(r.Context(), req.Content); err != nil {
		writeDomainError(w, r, h.logger, err, "failed to save learnings")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"content": req.Content})
}
