package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// RaceData is the per-bet payload: the car the player backs.
type RaceData struct {
	Car uint64 `json:"car"`
}

// Race is a pick-one-of-N game: the winner is the draw modulo CarsAmount.
type Race struct {
	ProfitCoef decimal.Decimal `json:"profit_coef"`
	CarsAmount uint64          `json:"cars_amount"`
}

func (g *Race) Play(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	var data RaceData
	if err := json.Unmarshal([]byte(bet.Data), &data); err != nil {
		return nil
	}
	if g.CarsAmount == 0 || data.Car >= g.CarsAmount {
		return nil
	}

	totalProfit := decimal.Zero
	totalValue := decimal.Zero
	games := uint64(0)

	profit := bet.Amount.Mul(g.ProfitCoef)

	outcomes := make([]uint64, 0, len(randomNumbers))
	profits := make([]decimal.Decimal, 0, len(randomNumbers))
	for _, number := range randomNumbers {
		winner := number % g.CarsAmount
		outcomes = append(outcomes, winner)

		if data.Car == winner {
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

func (g *Race) NumbersPerBet() uint64 {
	return 1
}
