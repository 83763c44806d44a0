package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// OddsService defines the discovery surface the odds handler needs.
type OddsService interface {
	EventsForDate(ctx context.Context, targetDate string, competitions []string) ([]domain.Event, error)
}

// OddsHandler serves the market discovery endpoint.
type OddsHandler struct {
	discovery OddsService
	logger    *slog.Logger
}

// NewOddsHandler creates an OddsHandler.
func NewOddsHandler(discovery OddsService, logger *slog.Logger) *OddsHandler {
	return &OddsHandler{discovery: discovery, logger: logger}
}

// eventsResponse wraps the discovery response.
type eventsResponse struct {
	TargetDate string         `json:"target_date"`
	Events     []domain.Event `json:"events"`
}

// ListEvents returns the priced events for one date, optionally restricted to
// a comma-separated competition list.
// GET /api/odds?date=2026-08-29&competitions=Serie A,Bundesliga
func (h *OddsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var competitions []string
	if raw := r.URL.Query().Get("competitions"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				competitions = append(competitions, c)
			}
		}
	}

	events, err := h.discovery.EventsForDate(r.Context(), date, competitions)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to discover events")
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeSuccess(w, http.StatusOK, eventsResponse{TargetDate: date, Events: events})
}
