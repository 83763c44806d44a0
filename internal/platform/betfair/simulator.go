package betfair

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Simulator stands in for the live exchange's order placement in local runs.
// Discovery still hits the real API; placement returns synthetic success
// reports with mock bet ids so the downstream lifecycle can be exercised
// without money at risk.
type Simulator struct {
	log *slog.Logger
}

// NewSimulator creates a Simulator.
func NewSimulator(log *slog.Logger) *Simulator {
	return &Simulator{log: log.With("component", "betfair-sim")}
}

// PlaceOrders accepts every instruction and fabricates a matched report.
func (s *Simulator) PlaceOrders(ctx context.Context, marketID string, instructions []PlaceInstruction) (PlaceExecutionReport, error) {
	reports := make([]InstructionReport, 0, len(instructions))
	for _, ins := range instructions {
		ir := InstructionReport{
			Status:      "SUCCESS",
			BetID:       "sim-" + uuid.NewString(),
			Instruction: ins,
		}
		if ins.LimitOrder != nil {
			ir.AveragePriceMatched = ins.LimitOrder.Price
			ir.SizeMatched = ins.LimitOrder.Size
		}
		reports = append(reports, ir)
	}

	s.log.Info("simulated placement", "market", marketID, "orders", len(reports))
	return PlaceExecutionReport{
		Status:             "SUCCESS",
		MarketID:           marketID,
		InstructionReports: reports,
	}, nil
}
