package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// WheelData is the per-bet payload: risk level and sector-count index. The
// wheel has (NumSectors+1)*10 physical sectors.
type WheelData struct {
	Risk       uint32 `json:"risk"`
	NumSectors uint32 `json:"num_sectors"`
}

// Wheel pays per-sector multipliers from a [risk][sectorCount][sector]
// table.
type Wheel struct {
	Multipliers   [][][]decimal.Decimal `json:"multipliers"`
	MaxRisk       uint32                `json:"max_risk"`
	MaxNumSectors uint32                `json:"max_num_sectors"`
}

func (g *Wheel) Play(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	var data WheelData
	if err := json.Unmarshal([]byte(bet.Data), &data); err != nil {
		return nil
	}
	if data.Risk > g.MaxRisk || data.NumSectors > g.MaxNumSectors {
		return nil
	}
	if int(data.Risk) >= len(g.Multipliers) || int(data.NumSectors) >= len(g.Multipliers[data.Risk]) {
		return nil
	}

	multipliers := g.Multipliers[data.Risk][data.NumSectors]
	numSectors := uint64(data.NumSectors+1) * 10
	if uint64(len(multipliers)) < numSectors {
		return nil
	}

	totalProfit := decimal.Zero
	totalValue := decimal.Zero
	games := uint64(0)

	outcomes := make([]uint64, 0, len(randomNumbers))
	profits := make([]decimal.Decimal, 0, len(randomNumbers))
	for _, number := range randomNumbers {
		sector := number % numSectors
		outcomes = append(outcomes, sector)

		multiplier := multipliers[sector]
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

func (g *Wheel) NumbersPerBet() uint64 {
	return 1
}
