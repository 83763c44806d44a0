package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/betbot/internal/config"
	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/platform/betfair"
)

// FundsSource is the slice of the exchange API that wallet syncing needs.
type FundsSource interface {
	GetAccountFunds(ctx context.Context) (betfair.AccountFunds, error)
}

// WalletService keeps the local balance snapshot in step with the exchange
// and derives the betting budget from it.
type WalletService struct {
	funds    FundsSource
	store    domain.WalletStore
	settings domain.SettingsStore
	betting  config.BettingConfig
	logger   *slog.Logger
}

// NewWalletService creates a WalletService.
func NewWalletService(funds FundsSource, store domain.WalletStore, settings domain.SettingsStore, betting config.BettingConfig, logger *slog.Logger) *WalletService {
	return &WalletService{
		funds:    funds,
		store:    store,
		settings: settings,
		betting:  betting,
		logger:   logger.With("component", "wallet"),
	}
}

// Sync pulls the account funds from the exchange and overwrites the local
// snapshot.
func (s *WalletService) Sync(ctx context.Context) (domain.WalletRecord, error) {
	funds, err := s.funds.GetAccountFunds(ctx)
	if err != nil {
		return domain.WalletRecord{}, fmt.Errorf("wallet: account funds: %w", err)
	}
	info := betfair.ToBalanceInfo(funds)

	currency := "GBP"
	if existing, err := s.store.Get(ctx); err == nil && existing.Currency != "" {
		currency = existing.Currency
	}

	rec := domain.WalletRecord{
		Amount:   info.AvailableBalance,
		Currency: currency,
		Exposure: info.Exposure,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return domain.WalletRecord{}, fmt.Errorf("wallet: persist snapshot: %w", err)
	}

	s.logger.Info("wallet synced", "amount", rec.Amount, "exposure", rec.Exposure)
	return rec, nil
}

// Balance returns the local snapshot, syncing first when none exists yet.
func (s *WalletService) Balance(ctx context.Context) (domain.WalletRecord, error) {
	rec, err := s.store.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.Sync(ctx)
		}
		return domain.WalletRecord{}, err
	}
	return rec, nil
}

// EffectiveSettings returns the persisted settings with config defaults
// filling any fields that were never set.
func (s *WalletService) EffectiveSettings(ctx context.Context) (domain.Settings, error) {
	defaults := domain.Settings{
		BankrollPercent:  s.betting.BankrollPercent,
		MaxBankroll:      s.betting.MaxBankroll,
		RiskAppetite:     s.betting.RiskAppetite,
		UseReliableTeams: s.betting.UseReliableTeams,
		MinStake:         s.betting.MinStake,
		MinProfit:        s.betting.MinProfit,
	}

	stored, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return defaults, nil
		}
		return domain.Settings{}, fmt.Errorf("wallet: load settings: %w", err)
	}

	if stored.BankrollPercent <= 0 {
		stored.BankrollPercent = defaults.BankrollPercent
	}
	if stored.MaxBankroll <= 0 {
		stored.MaxBankroll = defaults.MaxBankroll
	}
	if stored.RiskAppetite <= 0 {
		stored.RiskAppetite = defaults.RiskAppetite
	}
	if stored.MinStake <= 0 {
		stored.MinStake = defaults.MinStake
	}
	if stored.MinProfit <= 0 {
		stored.MinProfit = defaults.MinProfit
	}
	return stored, nil
}

// Budget returns the amount available for a new automated slip and the fresh
// starting balance it was derived from. The budget is a configured percentage
// of the balance, hard-capped by the maximum bankroll.
func (s *WalletService) Budget(ctx context.Context) (budget, starting float64, err error) {
	rec, err := s.Sync(ctx)
	if err != nil {
		return 0, 0, err
	}

	settings, err := s.EffectiveSettings(ctx)
	if err != nil {
		return 0, 0, err
	}

	budget = rec.Amount * settings.BankrollPercent / 100
	if budget > settings.MaxBankroll {
		budget = settings.MaxBankroll
	}
	return domain.Round2(budget), rec.Amount, nil
}
