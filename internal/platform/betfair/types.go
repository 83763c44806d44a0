package betfair

import "time"

// Wire types for the Betfair Exchange API (API-NG). Field names follow the
// exchange's JSON contract exactly.

// EventType is a top-level sport category.
type EventType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EventTypeResult pairs an event type with its live market count.
type EventTypeResult struct {
	EventType   EventType `json:"eventType"`
	MarketCount int       `json:"marketCount"`
}

// Competition is a league or tournament.
type Competition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CompetitionResult pairs a competition with its live market count.
type CompetitionResult struct {
	Competition       Competition `json:"competition"`
	MarketCount       int         `json:"marketCount"`
	CompetitionRegion string      `json:"competitionRegion,omitempty"`
}

// TimeRange bounds a filter by ISO-8601 timestamps.
type TimeRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// MarketFilter narrows catalogue queries.
type MarketFilter struct {
	TextQuery       string     `json:"textQuery,omitempty"`
	EventTypeIDs    []string   `json:"eventTypeIds,omitempty"`
	CompetitionIDs  []string   `json:"competitionIds,omitempty"`
	MarketIDs       []string   `json:"marketIds,omitempty"`
	MarketTypeCodes []string   `json:"marketTypeCodes,omitempty"`
	MarketStartTime *TimeRange `json:"marketStartTime,omitempty"`
}

// RunnerCatalog describes one selection within a market catalogue entry.
type RunnerCatalog struct {
	SelectionID  int64   `json:"selectionId"`
	RunnerName   string  `json:"runnerName"`
	Handicap     float64 `json:"handicap,omitempty"`
	SortPriority int     `json:"sortPriority,omitempty"`
}

// MarketEvent is the event metadata attached to a catalogue entry.
type MarketEvent struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	CountryCode string     `json:"countryCode,omitempty"`
	Timezone    string     `json:"timezone,omitempty"`
	OpenDate    *time.Time `json:"openDate,omitempty"`
}

// MarketCatalogue is one market returned by listMarketCatalogue.
type MarketCatalogue struct {
	MarketID        string          `json:"marketId"`
	MarketName      string          `json:"marketName"`
	MarketStartTime *time.Time      `json:"marketStartTime,omitempty"`
	TotalMatched    float64         `json:"totalMatched,omitempty"`
	Competition     *Competition    `json:"competition,omitempty"`
	Event           *MarketEvent    `json:"event,omitempty"`
	Runners         []RunnerCatalog `json:"runners,omitempty"`
}

// PriceSize is one rung of the exchange ladder.
type PriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// ExchangePrices carries the best available prices for a runner.
type ExchangePrices struct {
	AvailableToBack []PriceSize `json:"availableToBack,omitempty"`
	AvailableToLay  []PriceSize `json:"availableToLay,omitempty"`
}

// RunnerBook is one selection's live prices within a market book.
type RunnerBook struct {
	SelectionID     int64           `json:"selectionId"`
	Status          string          `json:"status"`
	LastPriceTraded *float64        `json:"lastPriceTraded,omitempty"`
	EX              *ExchangePrices `json:"ex,omitempty"`
}

// MarketBook is one market returned by listMarketBook.
type MarketBook struct {
	MarketID     string       `json:"marketId"`
	Status       string       `json:"status"`
	TotalMatched float64      `json:"totalMatched,omitempty"`
	Runners      []RunnerBook `json:"runners,omitempty"`
}

// LimitOrder is the price/size pair of a limit instruction.
type LimitOrder struct {
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	PersistenceType string  `json:"persistenceType"`
}

// PlaceInstruction is one order within a placeOrders call.
type PlaceInstruction struct {
	OrderType   string      `json:"orderType"`
	SelectionID int64       `json:"selectionId"`
	Side        string      `json:"side"`
	LimitOrder  *LimitOrder `json:"limitOrder,omitempty"`
}

// InstructionReport is the exchange's verdict on one instruction.
type InstructionReport struct {
	Status              string           `json:"status"`
	ErrorCode           string           `json:"errorCode,omitempty"`
	BetID               string           `json:"betId,omitempty"`
	Instruction         PlaceInstruction `json:"instruction"`
	AveragePriceMatched float64          `json:"averagePriceMatched,omitempty"`
	SizeMatched         float64          `json:"sizeMatched,omitempty"`
	PlacedDate          *time.Time       `json:"placedDate,omitempty"`
}

// PlaceExecutionReport is the full response of one placeOrders call.
type PlaceExecutionReport struct {
	Status             string              `json:"status"`
	MarketID           string              `json:"marketId"`
	ErrorCode          string              `json:"errorCode,omitempty"`
	InstructionReports []InstructionReport `json:"instructionReports,omitempty"`
}

// ClearedOrder is one settled order from listClearedOrders.
type ClearedOrder struct {
	BetID          string     `json:"betId"`
	MarketID       string     `json:"marketId"`
	SelectionID    int64      `json:"selectionId"`
	Side           string     `json:"side"`
	BetOutcome     string     `json:"betOutcome"`
	Profit         float64    `json:"profit"`
	PriceRequested float64    `json:"priceRequested,omitempty"`
	PriceMatched   float64    `json:"priceMatched,omitempty"`
	SizeSettled    float64    `json:"sizeSettled,omitempty"`
	SettledDate    *time.Time `json:"settledDate,omitempty"`
}

// ClearedOrderSummaryReport is the listClearedOrders response page.
type ClearedOrderSummaryReport struct {
	ClearedOrders []ClearedOrder `json:"clearedOrders"`
	MoreAvailable bool           `json:"moreAvailable"`
}

// AccountFunds is the getAccountFunds response.
type AccountFunds struct {
	AvailableToBetBalance float64 `json:"availableToBetBalance"`
	Exposure              float64 `json:"exposure"`
	ExposureLimit         float64 `json:"exposureLimit"`
	RetainedCommission    float64 `json:"retainedCommission"`
	DiscountRate          float64 `json:"discountRate"`
	PointsBalance         int     `json:"pointsBalance"`
	Wallet                string  `json:"wallet,omitempty"`
}

// apiError is the API-NG exception envelope.
type apiError struct {
	Detail struct {
		APINGException struct {
			ErrorCode string `json:"errorCode"`
		} `json:"APINGException"`
	} `json:"detail"`
	Code string `json:"faultstring,omitempty"`
}

// Market type codes requested during discovery. MATCH_ODDS is the headline
// market; the goals markets give the advisor alternatives when the match odds
// carry no value.
var DiscoveryMarketTypes = []string{"MATCH_ODDS", "OVER_UNDER_25", "BOTH_TEAMS_TO_SCORE"}
