package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// BetService defines the methods that the bet handler requires from the
// service layer.
type BetService interface {
	Get(ctx context.Context, id string) (domain.BetRecord, error)
	History(ctx context.Context, f domain.HistoryFilter) (domain.HistoryPage, error)
	CreateAutomated(ctx context.Context, source domain.BetSource, targetDate string) (domain.BetRecord, error)
	CreateManual(ctx context.Context, targetDate string, items []domain.SelectionItem) (domain.BetRecord, error)
	Approve(ctx context.Context, id string, items []domain.SelectionItem) error
	Place(ctx context.Context, id string) error
}

// BetHandler serves bet slip endpoints.
type BetHandler struct {
	bets   BetService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(bets BetService, logger *slog.Logger) *BetHandler {
	return &BetHandler{bets: bets, logger: logger}
}

// createBetRequest is the body for manual slip creation.
type createBetRequest struct {
	TargetDate string                 `json:"target_date"`
	Items      []domain.SelectionItem `json:"items"`
}

// CreateManual creates a user-built slip in ready state.
// POST /api/bets
func (h *BetHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req createBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	date, err := validDate(req.TargetDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "target_date must be YYYY-MM-DD")
		return
	}

	rec, err := h.bets.CreateManual(r.Context(), date, req.Items)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to create slip")
		return
	}
	writeSuccess(w, http.StatusCreated, rec)
}

// createAutomatedRequest is the body for triggering the automated line.
type createAutomatedRequest struct {
	TargetDate string `json:"target_date"`
}

// CreateAutomated triggers the daily automation line for a date. A date that
// already holds a live automated slip returns 409 with the existing record.
// POST /api/bets/automated
func (h *BetHandler) CreateAutomated(w http.ResponseWriter, r *http.Request) {
	var req createAutomatedRequest
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

	rec, err := h.bets.CreateAutomated(r.Context(), domain.SourceAutomatedDaily, date)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to create automated slip")
		return
	}
	writeSuccess(w, http.StatusCreated, rec)
}

// GetBet returns one slip by id.
// GET /api/bets/{id}
func (h *BetHandler) GetBet(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing bet id")
		return
	}

	rec, err := h.bets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to load slip")
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

// ListBets returns a page of slips, newest first.
// GET /api/bets?status=finished&from=2026-08-01&to=2026-08-31&limit=50&cursor=<id>
func (h *BetHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := domain.HistoryFilter{
		Status:     domain.BetStatus(q.Get("status")),
		DateFrom:   q.Get("from"),
		DateTo:     q.Get("to"),
		Limit:      queryLimit(r, 50, 200),
		StartAfter: q.Get("cursor"),
	}
	for _, d := range []string{f.DateFrom, f.DateTo} {
		if d == "" {
			continue
		}
		if _, err := validDate(d); err != nil {
			writeError(w, http.StatusBadRequest, "from/to must be YYYY-MM-DD")
			return
		}
	}

	page, err := h.bets.History(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list slips")
		return
	}
	if page.Records == nil {
		page.Records = []domain.BetRecord{}
	}
	writeSuccess(w, http.StatusOK, page)
}

// approveRequest optionally replaces the selections before approval. Totals
// are recomputed server-side.
type approveRequest struct {
	Items []domain.SelectionItem `json:"items"`
}

// Approve moves an analyzed slip to ready.
// POST /api/bets/{id}/approve
func (h *BetHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing bet id")
		return
	}

	var req approveRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	if err := h.bets.Approve(r.Context(), id, req.Items); err != nil {
		writeDomainError(w, r, h.logger, err, "failed to approve slip")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"bet_id": id})
}

// Place submits a ready slip's orders to the exchange. A concurrent trigger
// for the same slip is a safe no-op.
// POST /api/bets/{id}/place
func (h *BetHandler) Place(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing bet id")
		return
	}

	if err := h.bets.Place(r.Context(), id); err != nil {
		writeDomainError(w, r, h.logger, err, "failed to place slip")
		return
	}

	rec, err := h.bets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to load slip")
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}
