package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// PlinkoData is the per-bet payload: board size and risk level.
type PlinkoData struct {
	NumRows uint64 `json:"num_rows"`
	Risk    uint64 `json:"risk"`
}

// PlinkoReturnData echoes the board configuration plus every ball path for
// client replay.
type PlinkoReturnData struct {
	NumRows uint64    `json:"num_rows"`
	Risk    uint64    `json:"risk"`
	Paths   [][]uint8 `json:"paths"`
}

// Plinko consumes one draw per ball, reading its bits as left/right pegs.
// Multipliers are indexed [risk][numRows-8][slot] for 8..16 rows.
type Plinko struct {
	Multipliers [3][9][]decimal.Decimal `json:"multipliers"`
}

// drop plays one ball and returns its landing multiplier and path.
func (g *Plinko) drop(rng, numRows, risk uint64) (decimal.Decimal, []uint8, bool) {
	path := make([]uint8, 0, numRows)

	mask := uint64(0x8000000000000000)
	ended := int8(0)
	for i := uint64(0); i < numRows; i++ {
		if rng&mask > 0 {
			ended++
			path = append(path, 1)
		} else {
			ended--
			path = append(path, 0)
		}
		mask >>= 1
	}

	slot := uint8(ended+int8(numRows)) >> 1
	slots := g.Multipliers[risk][numRows-8]
	if int(slot) >= len(slots) {
		return decimal.Zero, nil, false
	}
	return slots[slot], path, true
}

func (g *Plinko) Play(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	var data PlinkoData
	if err := json.Unmarshal([]byte(bet.Data), &data); err != nil {
		return nil
	}
	if data.NumRows < 8 || data.NumRows > 16 {
		return nil
	}
	if data.Risk >= 3 {
		return nil
	}

	totalProfit := decimal.Zero
	totalValue := decimal.Zero
	games := uint64(0)

	outcomes := make([]uint64, 0, len(randomNumbers))
	paths := make([][]uint8, 0, len(randomNumbers))
	profits := make([]decimal.Decimal, 0, len(randomNumbers))
	for _, number := range randomNumbers {
		multiplier, path, ok := g.drop(number, data.NumRows, data.Risk)
		if !ok {
			return nil
		}
		payout := bet.Amount.Mul(multiplier)

		paths = append(paths, path)
		profits = append(profits, payout)
		outcomes = append(outcomes, number)
		games++

		totalProfit = totalProfit.Add(payout)
		totalValue = totalValue.Add(payout).Sub(bet.Amount)

		if stopHit(bet, totalValue) {
			break
		}
	}

	returnData, err := json.Marshal(PlinkoReturnData{
		NumRows: data.NumRows,
		Risk:    data.Risk,
		Paths:   paths,
	})
	if err != nil {
		return nil
	}

	return &models.GameResult{
		TotalProfit: refundUnplayed(totalProfit, bet, games),
		Outcomes:    outcomes,
		Profits:     profits,
		NumGames:    uint32(games),
		Data:        string(returnData),
		Finished:    true,
	}
}

func (g *Plinko) NumbersPerBet() uint64 {
	return 1
}
