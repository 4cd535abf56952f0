package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// CoinFlipData is the per-bet payload: which side the player backs.
type CoinFlipData struct {
	IsHeads bool `json:"is_heads"`
}

// CoinFlip pays ProfitCoef times the wager on a correct call. Side 1 is
// heads.
type CoinFlip struct {
	ProfitCoef decimal.Decimal `json:"profit_coef"`
}

func (g *CoinFlip) Play(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	var data CoinFlipData
	if err := json.Unmarshal([]byte(bet.Data), &data); err != nil {
		return nil
	}

	totalProfit := decimal.Zero
	totalValue := decimal.Zero
	games := uint64(0)

	profit := bet.Amount.Mul(g.ProfitCoef)

	outcomes := make([]uint64, 0, len(randomNumbers))
	profits := make([]decimal.Decimal, 0, len(randomNumbers))
	for _, number := range randomNumbers {
		side := number % 2
		outcomes = append(outcomes, side)

		if (data.IsHeads && side == 1) || (!data.IsHeads && side == 0) {
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

func (g *CoinFlip) NumbersPerBet() uint64 {
	return 1
}
