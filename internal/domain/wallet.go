package domain

import "time"

// WalletRecord is the singleton balance snapshot. It is overwritten, never
// merged, on every sync: there is no history, only the current state.
type WalletRecord struct {
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Exposure  float64   `json:"exposure"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BalanceInfo is the exchange's account funds response.
type BalanceInfo struct {
	AvailableBalance   float64 `json:"available_balance"`
	Exposure           float64 `json:"exposure"`
	ExposureLimit      float64 `json:"exposure_limit"`
	RetainedCommission float64 `json:"retained_commission"`
	DiscountRate       float64 `json:"discount_rate"`
	PointsBalance      int     `json:"points_balance"`
}

// LearningsRecord is the singleton lessons-learned document. The learning
// loop replaces Content wholesale each run; there is no append path.
type LearningsRecord struct {
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settings is the persisted automated-betting configuration. Absent fields
// fall back to config defaults when loaded.
type Settings struct {
	BankrollPercent  float64 `json:"bankroll_percent"`
	MaxBankroll      float64 `json:"max_bankroll"`
	RiskAppetite     float64 `json:"risk_appetite"`
	UseReliableTeams bool    `json:"use_reliable_teams"`
	MinStake         float64 `json:"min_stake"`
	MinProfit        float64 `json:"min_profit"`
}
