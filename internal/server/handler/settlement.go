package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// SettlementService defines the reconciliation trigger the handler needs.
type SettlementService interface {
	Reconcile(ctx context.Context) error
}

// SettlementHandler serves the manual reconciliation trigger. The same pass
// runs on a schedule; the distributed lock keeps the two from overlapping.
type SettlementHandler struct {
	settlement SettlementService
	logger     *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler.
func NewSettlementHandler(settlement SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{settlement: settlement, logger: logger}
}

// Reconcile runs one settlement pass over every open slip.
// POST /api/settlements/reconcile
func (h *SettlementHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if err := h.settlement.Reconcile(r.Context()); err != nil {
		writeDomainError(w, r, h.logger, err, "reconciliation failed")
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}
