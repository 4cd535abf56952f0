package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// RPSData is the per-bet payload: 0 rock, 1 paper, 2 scissors.
type RPSData struct {
	Action uint32 `json:"action"`
}

// RPS pays ProfitCoef on a win and DrawCoef on a draw.
type RPS struct {
	ProfitCoef decimal.Decimal `json:"profit_coef"`
	DrawCoef   decimal.Decimal `json:"draw_coef"`
}

const (
	rpsLoss = 0
	rpsWin  = 1
	rpsDraw = 2
)

func rpsOutcome(player, house uint32) int {
	if player == house {
		return rpsDraw
	}
	// rock beats scissors, paper beats rock, scissors beat paper
	if (player == 0 && house == 2) || (player == 1 && house == 0) || (player == 2 && house == 1) {
		return rpsWin
	}
	return rpsLoss
}

func (g *RPS) Play(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	var data RPSData
	if err := json.Unmarshal([]byte(bet.Data), &data); err != nil {
		return nil
	}
	if data.Action > 2 {
		return nil
	}

	totalProfit := decimal.Zero
	totalValue := decimal.Zero
	games := uint64(0)

	profit := bet.Amount.Mul(g.ProfitCoef)
	draw := bet.Amount.Mul(g.DrawCoef)

	outcomes := make([]uint64, 0, len(randomNumbers))
	profits := make([]decimal.Decimal, 0, len(randomNumbers))
	for _, number := range randomNumbers {
		action := uint32(number % 3)
		outcomes = append(outcomes, uint64(action))

		switch rpsOutcome(data.Action, action) {
		case rpsDraw:
			totalProfit = totalProfit.Add(draw)
			totalValue = totalValue.Add(draw)
			profits = append(profits, draw)
		case rpsWin:
			totalProfit = totalProfit.Add(profit)
			totalValue = totalValue.Add(profit)
			profits = append(profits, profit)
		default:
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

func (g *RPS) NumbersPerBet() uint64 {
	return 1
}
