package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// Engine is a stateless game: a single call settles every requested round.
type Engine interface {
	// Play settles the bet against the supplied draws. A nil result means
	// the bet is rejected (malformed data or out-of-range configuration)
	// and no state changes.
	Play(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult

	// NumbersPerBet is the number of draws consumed per round.
	NumbersPerBet() uint64
}

// StatefulEngine is a multi-turn game: start, then repeated continues until
// a terminal result.
type StatefulEngine interface {
	StartPlaying(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult
	ContinuePlaying(state *models.GameState, req *models.ContinueGame, randomNumbers []uint64) *models.GameResult
	NumbersPerBet() uint64
}

// ParseStateless resolves a stateless engine by game name, deserializing
// the game's parameter blob. A nil engine with nil error means the name is
// not a stateless game.
func ParseStateless(name, params string) (Engine, error) {
	switch name {
	case "CoinFlip":
		return unmarshalEngine[CoinFlip](params)
	case "Dice":
		return unmarshalEngine[Dice](params)
	case "Rocket", "Crash":
		return unmarshalEngine[Rocket](params)
	case "RPS":
		return unmarshalEngine[RPS](params)
	case "Race", "Thimbles":
		return unmarshalEngine[Race](params)
	case "Wheel":
		return unmarshalEngine[Wheel](params)
	case "Slots":
		return unmarshalEngine[Slots](params)
	case "Plinko", "CarRace":
		return unmarshalEngine[Plinko](params)
	}
	return nil, nil
}

// ParseStateful resolves a stateful engine by game name. A nil engine with
// nil error means the name is not a stateful game.
func ParseStateful(name, params string) (StatefulEngine, error) {
	switch name {
	case "Mines":
		return unmarshalStateful[Mines](params)
	case "Poker":
		return unmarshalStateful[Poker](params)
	case "Apples":
		return unmarshalStateful[Apples](params)
	}
	return nil, nil
}

func unmarshalEngine[T any, PT interface {
	Engine
	*T
}](params string) (Engine, error) {
	game := PT(new(T))
	if err := json.Unmarshal([]byte(params), game); err != nil {
		return nil, err
	}
	return game, nil
}

func unmarshalStateful[T any, PT interface {
	StatefulEngine
	*T
}](params string) (StatefulEngine, error) {
	game := PT(new(T))
	if err := json.Unmarshal([]byte(params), game); err != nil {
		return nil, err
	}
	return game, nil
}

// stopHit reports whether the running net value crossed a configured
// stop-win or stop-loss threshold.
func stopHit(bet *models.PropagatedBet, totalValue decimal.Decimal) bool {
	return (!bet.StopWin.IsZero() && totalValue.GreaterThanOrEqual(bet.StopWin)) ||
		(!bet.StopLoss.IsZero() && totalValue.LessThanOrEqual(bet.StopLoss))
}

// refundUnplayed credits the wager of rounds skipped by an early stop back
// as additional profit.
func refundUnplayed(totalProfit decimal.Decimal, bet *models.PropagatedBet, played uint64) decimal.Decimal {
	if played == bet.NumGames {
		return totalProfit
	}
	remaining := decimal.NewFromInt(int64(bet.NumGames - played))
	return totalProfit.Add(bet.Amount.Mul(remaining))
}
