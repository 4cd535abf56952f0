package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// Draws are remapped into the publicly documented roll range so players can
// reproduce the roll from a raw 64-bit draw.
var (
	diceLowerBoundary = decimal.RequireFromString("1.0421")
	diceUpperBoundary = decimal.RequireFromString("99.9999")
	diceOutcomeMult   = decimal.NewFromInt(10000)
	u64UpperBoundary  = decimal.NewFromUint64(^uint64(0))
	hundred           = decimal.NewFromInt(100)
	ninetyNine        = decimal.NewFromInt(99)
)

// remap linearly maps number from [from, to] onto [mapFrom, mapTo].
func remap(number, from, to, mapFrom, mapTo decimal.Decimal) decimal.Decimal {
	return number.Sub(from).Div(to.Sub(from)).Mul(mapTo.Sub(mapFrom)).Add(mapFrom)
}

// rollOutcome remaps a raw draw into the roll range and encodes it as a
// fixed-point outcome code.
func rollOutcome(number uint64) (decimal.Decimal, uint64) {
	roll := remap(decimal.NewFromUint64(number), decimal.Zero, u64UpperBoundary, diceLowerBoundary, diceUpperBoundary)
	return roll, uint64(roll.Mul(diceOutcomeMult).IntPart())
}

// DiceData is the per-bet payload: the target multiplier and roll
// direction.
type DiceData struct {
	Multiplier decimal.Decimal `json:"multiplier"`
	RollOver   bool            `json:"roll_over"`
}

// Dice is a threshold-roll game. Rolling over wins when the remapped draw
// reaches 100 - 99/multiplier; rolling under wins when it stays at or below
// 99/multiplier. Either way the win pays wager times multiplier.
type Dice struct{}

func (g *Dice) Play(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	var data DiceData
	if err := json.Unmarshal([]byte(bet.Data), &data); err != nil {
		return nil
	}
	if data.Multiplier.GreaterThan(diceUpperBoundary) || data.Multiplier.LessThan(diceLowerBoundary) {
		return nil
	}

	totalProfit := decimal.Zero
	totalValue := decimal.Zero
	games := uint64(0)

	threshold := ninetyNine.Div(data.Multiplier)
	if data.RollOver {
		threshold = hundred.Sub(threshold)
	}
	profit := bet.Amount.Mul(data.Multiplier)

	outcomes := make([]uint64, 0, len(randomNumbers))
	profits := make([]decimal.Decimal, 0, len(randomNumbers))
	for _, number := range randomNumbers {
		roll, outcome := rollOutcome(number)
		outcomes = append(outcomes, outcome)

		won := roll.GreaterThanOrEqual(threshold)
		if !data.RollOver {
			won = roll.LessThanOrEqual(threshold)
		}

		if won {
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

func (g *Dice) NumbersPerBet() uint64 {
	return 1
}
