package games

import (
	"github.com/shopspring/decimal"

	"fairbet/models"
)

// Slots maps each draw onto one of NumOutcomes reel results with a fixed
// multiplier table. The outcome code reported per round is the multiplier's
// integer part.
type Slots struct {
	NumOutcomes uint32            `json:"num_outcomes"`
	Multipliers []decimal.Decimal `json:"multipliers"`
}

func (g *Slots) Play(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	if g.NumOutcomes == 0 || int(g.NumOutcomes) > len(g.Multipliers) {
		return nil
	}

	totalProfit := decimal.Zero
	totalValue := decimal.Zero
	games := uint64(0)

	outcomes := make([]uint64, 0, len(randomNumbers))
	profits := make([]decimal.Decimal, 0, len(randomNumbers))
	for _, number := range randomNumbers {
		slot := number % uint64(g.NumOutcomes)
		multiplier := g.Multipliers[slot]
		outcomes = append(outcomes, uint64(multiplier.IntPart()))

		if multiplier.IsZero() {
			totalValue = totalValue.Sub(bet.Amount)
			profits = append(profits, decimal.Zero)
		} else {
			profit := bet.Amount.Mul(multiplier)
			totalProfit = totalProfit.Add(profit)
			totalValue = totalValue.Add(profit)
			profits = append(profits, profit)
		}

		games++

		if stopHit(bet, totalValue) {
			break
		}
	}

	return &models.GameResult{
		TotalProfit: refundUnplayed(totalProfit, bet, games),
		Outcomes:    outcomes,
		Profits:     profits,
		NumGames:    uint32(games),
		Data:        bet.Data,
		Finished:    true,
	}
}

func (g *Slots) NumbersPerBet() uint64 {
	return 1
}
