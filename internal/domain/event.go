package domain

import "time"

// Competition identifies the league or cup a fixture belongs to.
type Competition struct {
	Name string `json:"name"`
}

// Selection is one bettable outcome inside a market, with the best available
// back price at discovery time. Odds is nil when the order book had no
// available back offers.
type Selection struct {
	Name        string   `json:"name"`
	Odds        *float64 `json:"odds"`
	SelectionID int64    `json:"selection_id"`
}

// MarketOption is one market (Match Odds, Over/Under, ...) attached to an
// event. The exchange calls the outcomes "runners"; the frontend calls them
// options, so the JSON key is "options".
type MarketOption struct {
	Name       string      `json:"name"`
	MarketID   string      `json:"market_id"`
	Selections []Selection `json:"options"`
}

// Event is one real-world fixture with every discovered market nested under
// it. Discovery groups raw exchange markets by (name, time, competition) so a
// fixture appears exactly once regardless of how many markets it carries.
type Event struct {
	ProviderEventID string         `json:"provider_event_id,omitempty"`
	Name            string         `json:"name"`
	Time            *time.Time     `json:"time"`
	Competition     Competition    `json:"competition"`
	Options         []MarketOption `json:"options"`
}

// EventRef is the denormalized fixture snapshot stored on a SelectionItem.
// It is copied at analysis time so later catalogue changes never retroactively
// alter what a historical bet displays.
type EventRef struct {
	Name        string      `json:"name"`
	Time        *time.Time  `json:"time"`
	Competition Competition `json:"competition"`
}

// Ref returns the denormalized snapshot of the event.
func (e Event) Ref() EventRef {
	return EventRef{
		Name:        e.Name,
		Time:        e.Time,
		Competition: e.Competition,
	}
}
