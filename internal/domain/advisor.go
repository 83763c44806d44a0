package domain

// RecommendationPick names the event, market, and selection a recommendation
// points at. Names must match the discovery payload verbatim: downstream
// re-attaches recommendations to events by exact string identity.
type RecommendationPick struct {
	EventName  string `json:"event_name"`
	MarketName string `json:"market_name"`
	OptionName string `json:"option_name"`
}

// Recommendation is a single wager proposed by the advisor.
type Recommendation struct {
	Pick        RecommendationPick `json:"pick"`
	MarketID    string             `json:"market_id"`
	SelectionID int64              `json:"selection_id"`
	Stake       float64            `json:"stake"`
	Odds        float64            `json:"odds"`
	Side        BetSide            `json:"side"`
	Reasoning   string             `json:"reasoning"`
}

// PotentialProfit is the net win if the recommendation settles in our favour.
func (r Recommendation) PotentialProfit() float64 {
	return r.Stake * (r.Odds - 1)
}

// AgentResponse is the advisor's structured answer for one analysis prompt.
type AgentResponse struct {
	Recommendations  []Recommendation `json:"recommendations"`
	OverallReasoning string           `json:"overall_reasoning"`
}

// BetOrder is one order submitted to the exchange.
type BetOrder struct {
	MarketID    string  `json:"market_id"`
	SelectionID int64   `json:"selection_id"`
	Stake       float64 `json:"stake"`
	Odds        float64 `json:"odds"`
	Side        BetSide `json:"side"`
}
