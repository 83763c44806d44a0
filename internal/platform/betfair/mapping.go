package betfair

import (
	"sort"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// GroupEvents assembles discovery output into domain events. Catalogue
// entries are grouped by their exchange event id; each becomes one market
// option carrying the runners with their best available back price from the
// matching book. Markets whose matched volume is below minLiquidity are
// dropped, and an event with no surviving market is dropped with it.
func GroupEvents(catalogues []MarketCatalogue, books []MarketBook, minLiquidity float64) []domain.Event {
	bookByMarket := make(map[string]MarketBook, len(books))
	for _, b := range books {
		bookByMarket[b.MarketID] = b
	}

	type slot struct {
		event domain.Event
		order int
	}
	byEvent := make(map[string]*slot)
	next := 0

	for _, cat := range catalogues {
		if cat.Event == nil {
			continue
		}

		book, ok := bookByMarket[cat.MarketID]
		if !ok || book.TotalMatched < minLiquidity {
			continue
		}

		priceBySelection := make(map[int64]*float64, len(book.Runners))
		for _, r := range book.Runners {
			if r.EX != nil && len(r.EX.AvailableToBack) > 0 {
				p := r.EX.AvailableToBack[0].Price
				priceBySelection[r.SelectionID] = &p
			}
		}

		selections := make([]domain.Selection, 0, len(cat.Runners))
		for _, runner := range cat.Runners {
			selections = append(selections, domain.Selection{
				Name:        runner.RunnerName,
				SelectionID: runner.SelectionID,
				Odds:        priceBySelection[runner.SelectionID],
			})
		}

		option := domain.MarketOption{
			Name:       cat.MarketName,
			MarketID:   cat.MarketID,
			Selections: selections,
		}

		s, ok := byEvent[cat.Event.ID]
		if !ok {
			compName := ""
			if cat.Competition != nil {
				compName = cat.Competition.Name
			}
			s = &slot{
				event: domain.Event{
					ProviderEventID: cat.Event.ID,
					Name:            cat.Event.Name,
					Time:            cat.Event.OpenDate,
					Competition:     domain.Competition{Name: compName},
				},
				order: next,
			}
			next++
			byEvent[cat.Event.ID] = s
		}
		s.event.Options = append(s.event.Options, option)
	}

	slots := make([]*slot, 0, len(byEvent))
	for _, s := range byEvent {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].order < slots[j].order })

	events := make([]domain.Event, 0, len(slots))
	for _, s := range slots {
		events = append(events, s.event)
	}
	return events
}

// ToInstruction converts a domain order into an exchange limit instruction.
// Orders persist after the market goes in-play (LAPSE would void them at the
// off, losing the position the advisor priced).
func ToInstruction(o domain.BetOrder) PlaceInstruction {
	return PlaceInstruction{
		OrderType:   "LIMIT",
		SelectionID: o.SelectionID,
		Side:        string(o.Side),
		LimitOrder: &LimitOrder{
			Size:            o.Stake,
			Price:           o.Odds,
			PersistenceType: "PERSIST",
		},
	}
}

// ToPlacementResults flattens an execution report into per-order domain
// results. Orders are identified by (market_id, selection_id); list position
// carries no meaning.
func ToPlacementResults(report PlaceExecutionReport) []domain.PlacementResult {
	results := make([]domain.PlacementResult, 0, len(report.InstructionReports))
	for _, ir := range report.InstructionReports {
		results = append(results, domain.PlacementResult{
			MarketID:            report.MarketID,
			SelectionID:         ir.Instruction.SelectionID,
			Status:              ir.Status,
			BetID:               ir.BetID,
			AveragePriceMatched: ir.AveragePriceMatched,
			SizeMatched:         ir.SizeMatched,
			ErrorCode:           ir.ErrorCode,
		})
	}
	return results
}

// ToSettlement converts a cleared order into a domain settlement.
func ToSettlement(o ClearedOrder) domain.Settlement {
	return domain.Settlement{
		BetID:          o.BetID,
		MarketID:       o.MarketID,
		SelectionID:    o.SelectionID,
		Status:         o.BetOutcome,
		Profit:         o.Profit,
		Side:           domain.BetSide(o.Side),
		PriceRequested: o.PriceRequested,
		PriceMatched:   o.PriceMatched,
		SizeSettled:    o.SizeSettled,
		SettledAt:      o.SettledDate,
	}
}

// ToBalanceInfo converts account funds into the domain balance snapshot.
// Exposure is reported negative by the exchange; the domain keeps it as a
// positive amount at risk.
func ToBalanceInfo(f AccountFunds) domain.BalanceInfo {
	exposure := f.Exposure
	if exposure < 0 {
		exposure = -exposure
	}
	return domain.BalanceInfo{
		AvailableBalance:   f.AvailableToBetBalance,
		Exposure:           exposure,
		ExposureLimit:      f.ExposureLimit,
		RetainedCommission: f.RetainedCommission,
		DiscountRate:       f.DiscountRate,
		PointsBalance:      f.PointsBalance,
	}
}
