package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Game is a configured game definition. Parameters is an opaque JSON blob
// deserialized by the matching engine variant (payout tables, coefficients,
// limits).
type Game struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Parameters string `json:"parameters"`
}

// User is the subset of the platform user the settlement core needs.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// UserSeed is a player-controlled client seed. The newest row for a user is
// the active one.
type UserSeed struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	UserSeed string `json:"user_seed"`
}

// ServerSeed is platform-controlled entropy. The active seed for a user is
// unique and unrevealed; revealing retires it and a fresh one is minted.
type ServerSeed struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	ServerSeed string `json:"server_seed"`
	Revealed   bool   `json:"revealed"`
}

// Bet is a settled wager as persisted and fanned out to subscribers.
type Bet struct {
	ID           int64           `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Amount       decimal.Decimal `json:"amount"`
	Profit       decimal.Decimal `json:"profit"`
	NumGames     int32           `json:"num_games"`
	Outcomes     string          `json:"outcomes"`
	Profits      string          `json:"profits"`
	BetInfo      string          `json:"bet_info"`
	State        *string         `json:"state,omitempty"`
	UUID         string          `json:"uuid"`
	GameID       int64           `json:"game_id"`
	UserID       int64           `json:"user_id"`
	CoinID       int64           `json:"coin_id"`
	UserSeedID   int64           `json:"userseed_id"`
	ServerSeedID int64           `json:"serverseed_id"`
}

// BetExpanded carries the username alongside the bet for live feeds.
type BetExpanded struct {
	Bet
	Username string `json:"username"`
}

// GameState is the persisted continuation of an in-progress stateful game,
// keyed by (game, user, coin). At most one live row per key.
type GameState struct {
	ID           int64           `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Amount       decimal.Decimal `json:"amount"`
	BetInfo      string          `json:"bet_info"`
	State        string          `json:"state"`
	UUID         string          `json:"uuid"`
	GameID       int64           `json:"game_id"`
	UserID       int64           `json:"user_id"`
	CoinID       int64           `json:"coin_id"`
	UserSeedID   int64           `json:"userseed_id"`
	ServerSeedID int64           `json:"serverseed_id"`
}

// GameResult is the outcome of one engine invocation. Non-terminal results
// carry Finished=false and a state blob the caller must persist.
type GameResult struct {
	TotalProfit decimal.Decimal
	Outcomes    []uint64
	Profits     []decimal.Decimal
	NumGames    uint32
	Data        string
	Finished    bool
}

// PropagatedBet is a bet request on its way through the pipeline. Data is a
// game-specific JSON blob interpreted by the engine variant.
type PropagatedBet struct {
	GameID   int64           `json:"game_id"`
	Amount   decimal.Decimal `json:"amount"`
	CoinID   int64           `json:"coin_id"`
	UserID   int64           `json:"user_id"`
	UUID     string          `json:"uuid"`
	Data     string          `json:"data"`
	StopLoss decimal.Decimal `json:"stop_loss"`
	StopWin  decimal.Decimal `json:"stop_win"`
	NumGames uint64          `json:"num_games"`
}

// ContinueGame advances an in-progress stateful game.
type ContinueGame struct {
	GameID int64           `json:"game_id"`
	CoinID int64           `json:"coin_id"`
	UserID int64           `json:"user_id"`
	UUID   string          `json:"uuid"`
	Amount decimal.Decimal `json:"amount"`
	Data   string          `json:"data"`
}

// EngineBet is one unit of work on the shared bet queue. Exactly one of
// NewBet or Continue is set.
type EngineBet struct {
	NewBet   *PropagatedBet
	Continue *ContinueGame
}
