package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// RocketData is the per-bet payload: the cashout multiplier.
type RocketData struct {
	Multiplier decimal.Decimal `json:"multiplier"`
}

// Rocket is the roll-over-only dice variant used by the crash-style games.
type Rocket struct{}

func (g *Rocket) Play(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	var data RocketData
	if err := json.Unmarshal([]byte(bet.Data), &data); err != nil {
		return nil
	}
	if data.Multiplier.GreaterThan(diceUpperBoundary) || data.Multiplier.LessThan(diceLowerBoundary) {
		return nil
	}

	totalProfit := decimal.Zero
	totalValue := decimal.Zero
	games := uint64(0)

	numberToRoll := hundred.Sub(ninetyNine.Div(data.Multiplier))
	profit := bet.Amount.Mul(data.Multiplier)

	outcomes := make([]uint64, 0, len(randomNumbers))
	profits := make([]decimal.Decimal, 0, len(randomNumbers))
	for _, number := range randomNumbers {
		roll, outcome := rollOutcome(number)
		outcomes = append(outcomes, outcome)

		if roll.GreaterThanOrEqual(numberToRoll) {
			totalProfit = totalProfit.Add(profit)
			totalValue = totalValue.Add(profit)
			profits = append(profits, profit)
		} else {
			totalValue = totalValue.Sub(bet.Amount)
			profits = append(profits, decimal.Zero)
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

func (g *Rocket) NumbersPerBet() uint64 {
	return 1
}
