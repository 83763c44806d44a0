// Package service implements the betting workflows on top of the domain
// stores and platform clients.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/betbot/internal/config"
	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/platform/betfair"
)

// marketBookBatch caps one listMarketBook call; the exchange weighs requests
// by market count.
const marketBookBatch = 25

// MarketSource is the slice of the exchange API that discovery needs.
type MarketSource interface {
	ListEventTypes(ctx context.Context, filter betfair.MarketFilter) ([]betfair.EventTypeResult, error)
	ListCompetitions(ctx context.Context, filter betfair.MarketFilter) ([]betfair.CompetitionResult, error)
	ListMarketCatalogue(ctx context.Context, filter betfair.MarketFilter) ([]betfair.MarketCatalogue, error)
	ListMarketBook(ctx context.Context, marketIDs []string) ([]betfair.MarketBook, error)
}

// DiscoveryService finds upcoming fixtures with live markets and prices.
type DiscoveryService struct {
	source  MarketSource
	cache   domain.DiscoveryCache
	betting config.BettingConfig
	logger  *slog.Logger
}

// NewDiscoveryService creates a DiscoveryService.
func NewDiscoveryService(source MarketSource, cache domain.DiscoveryCache, betting config.BettingConfig, logger *slog.Logger) *DiscoveryService {
	return &DiscoveryService{
		source:  source,
		cache:   cache,
		betting: betting,
		logger:  logger.With("component", "discovery"),
	}
}

// EventsForDate returns the priced events for one UTC calendar date across
// the given competitions (the configured trusted leagues when empty). Results
// are cached for a short TTL keyed by date and competition set.
func (s *DiscoveryService) EventsForDate(ctx context.Context, targetDate string, competitions []string) ([]domain.Event, error) {
	if len(competitions) == 0 {
		competitions = s.betting.Competitions
	}

	cacheKey := targetDate + "|" + strings.Join(competitions, ",")
	if s.cache != nil {
		if events, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
			return events, nil
		}
	}

	from, to, err := utcDayBounds(targetDate)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	sportID, err := s.resolveSport(ctx)
	if err != nil {
		return nil, err
	}

	compIDs, err := s.resolveCompetitions(ctx, sportID, competitions)
	if err != nil {
		return nil, err
	}
	if len(compIDs) == 0 {
		s.logger.Warn("no competitions resolved", "wanted", competitions)
		return nil, nil
	}

	catalogues, err := s.source.ListMarketCatalogue(ctx, betfair.MarketFilter{
		EventTypeIDs:    []string{sportID},
		CompetitionIDs:  compIDs,
		MarketTypeCodes: betfair.DiscoveryMarketTypes,
		MarketStartTime: &betfair.TimeRange{
			From: from.Format(time.RFC3339),
			To:   to.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: list market catalogue: %w", err)
	}
	if len(catalogues) == 0 {
		return nil, nil
	}

	books, err := s.fetchBooks(ctx, catalogues)
	if err != nil {
		return nil, err
	}

	events := betfair.GroupEvents(catalogues, books, s.betting.MinLiquidity)
	s.logger.Info("discovery complete",
		"date", targetDate, "markets", len(catalogues), "events", len(events))

	if s.cache != nil && len(events) > 0 {
		if err := s.cache.Set(ctx, cacheKey, events); err != nil {
			s.logger.Warn("cache write failed", "error", err)
		}
	}
	return events, nil
}

// resolveSport maps the configured sport name to its exchange event type id.
func (s *DiscoveryService) resolveSport(ctx context.Context) (string, error) {
	types, err := s.source.ListEventTypes(ctx, betfair.MarketFilter{})
	if err != nil {
		return "", fmt.Errorf("discovery: list event types: %w", err)
	}
	for _, t := range types {
		if strings.EqualFold(t.EventType.Name, s.betting.Sport) {
			return t.EventType.ID, nil
		}
	}
	return "", fmt.Errorf("discovery: sport %q not found on exchange", s.betting.Sport)
}

// resolveCompetitions maps configured competition names to exchange ids. An
// exact case-insensitive match wins; otherwise every partial match is taken
// with a warning, since exchange naming drifts season to season and a league
// may be split across similarly named competitions.
func (s *DiscoveryService) resolveCompetitions(ctx context.Context, sportID string, wanted []string) ([]string, error) {
	results, err := s.source.ListCompetitions(ctx, betfair.MarketFilter{
		EventTypeIDs: []string{sportID},
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: list competitions: %w", err)
	}

	var ids []string
	for _, name := range wanted {
		exact := ""
		for _, r := range results {
			if strings.EqualFold(r.Competition.Name, name) {
				exact = r.Competition.ID
				break
			}
		}
		if exact != "" {
			ids = append(ids, exact)
			continue
		}

		matched := false
		for _, r := range results {
			if strings.Contains(strings.ToLower(r.Competition.Name), strings.ToLower(name)) {
				ids = append(ids, r.Competition.ID)
				matched = true
				s.logger.Warn("competition matched partially",
					"wanted", name, "matched", r.Competition.Name)
			}
		}
		if !matched {
			s.logger.Warn("competition not found", "wanted", name)
		}
	}
	return ids, nil
}

// fetchBooks loads market books in batches.
func (s *DiscoveryService) fetchBooks(ctx context.Context, catalogues []betfair.MarketCatalogue) ([]betfair.MarketBook, error) {
	ids := make([]string, 0, len(catalogues))
	for _, c := range catalogues {
		ids = append(ids, c.MarketID)
	}

	var books []betfair.MarketBook
	for start := 0; start < len(ids); start += marketBookBatch {
		end := start + marketBookBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := s.source.ListMarketBook(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("discovery: list market book: %w", err)
		}
		books = append(books, batch...)
	}
	return books, nil
}

// utcDayBounds returns the [start, end) instants of one UTC calendar date.
func utcDayBounds(targetDate string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", targetDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid target date %q", targetDate)
	}
	return day, day.AddDate(0, 0, 1), nil
}
