package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// SettingsStore persists the automated-betting settings document.
type SettingsStore interface {
	Get(ctx context.Context) (domain.Settings, error)
	Put(ctx context.Context, s domain.Settings) error
}

// SettingsHandler serves the automated-betting settings endpoints.
type SettingsHandler struct {
	store    SettingsStore
	defaults domain.Settings
	logger   *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler. defaults fill the response
// when no settings document has been written yet.
func NewSettingsHandler(store SettingsStore, defaults domain.Settings, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, defaults: defaults, logger: logger}
}

// GetSettings returns the persisted settings, or the config defaults when the
// document does not exist yet.
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Get(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeSuccess(w, http.StatusOK, h.defaults)
			return
		}
		writeDomainError(w, r, h.logger, err, "failed to load settings")
		return
	}
	writeSuccess(w, http.StatusOK, s)
}

// UpdateSettings overwrites the settings document.
// PUT /api/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if s.BankrollPercent <= 0 || s.BankrollPercent > 100 {
		writeError(w, http.StatusUnprocessableEntity, "bankroll_percent must be in (0,100]")
		return
	}
	if s.MaxBankroll <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "max_bankroll must be positive")
		return
	}
	if s.RiskAppetite < 1.0 || s.RiskAppetite > 5.0 {
		writeError(w, http.StatusUnprocessableEntity, "risk_appetite must be in [1.0,5.0]")
		return
	}
	if s.MinStake < 0 || s.MinProfit < 0 {
		writeError(w, http.StatusUnprocessableEntity, "min_stake and min_profit must not be negative")
		return
	}

	if err := h.store.Put(r.Context(), s); err != nil {
		writeDomainError(w, r, h.logger, err, "failed to save settings")
		return
	}
	writeSuccess(w, http.StatusOK, s)
}
