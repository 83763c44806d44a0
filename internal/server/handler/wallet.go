package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// WalletService defines the wallet surface the handler needs.
type WalletService interface {
	Balance(ctx context.Context) (domain.WalletRecord, error)
	Sync(ctx context.Context) (domain.WalletRecord, error)
	Budget(ctx context.Context) (budget, starting float64, err error)
}

// WalletHandler serves balance endpoints.
type WalletHandler struct {
	wallet WalletService
	logger *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallet WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{wallet: wallet, logger: logger}
}

// GetWallet returns the local balance snapshot.
// GET /api/wallet
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.wallet.Balance(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to load wallet")
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

// SyncWallet refreshes the snapshot from the exchange and reports the budget
// a new automated slip would receive.
// POST /api/wallet/sync
func (h *WalletHandler) SyncWallet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.wallet.Sync(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to sync wallet")
		return
	}

	budget, _, err := h.wallet.Budget(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to compute budget")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"wallet": rec,
		"budget": budget,
	})
}
