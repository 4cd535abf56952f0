package db

import (
	"context"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// Store is the persistence contract the settlement pipeline runs against.
// Balance mutations are conditional: the boolean reports whether a row was
// actually changed, and a false decrease means the bet must not proceed.
type Store interface {
	GetAmount(ctx context.Context, userID, coinID int64) (decimal.Decimal, bool, error)
	DecreaseBalance(ctx context.Context, userID, coinID int64, amount decimal.Decimal) (bool, error)
	IncreaseBalance(ctx context.Context, userID, coinID int64, amount decimal.Decimal) (bool, error)

	FetchAllGames(ctx context.Context) ([]*models.Game, error)
	GetGame(ctx context.Context, id int64) (*models.Game, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)

	GetCurrentUserSeed(ctx context.Context, userID int64) (*models.UserSeed, error)
	NewUserSeed(ctx context.Context, userID int64, seed string) error
	GetCurrentServerSeed(ctx context.Context, userID int64) (*models.ServerSeed, error)
	RevealServerSeed(ctx context.Context, userID int64) error
	NewServerSeed(ctx context.Context, userID int64, seed string) error

	GetGameState(ctx context.Context, gameID, userID, coinID int64) (*models.GameState, error)
	InsertGameState(ctx context.Context, state *models.GameState) error
	UpdateGameState(ctx context.Context, gameID, userID, coinID int64, state string) error
	RemoveGameState(ctx context.Context, gameID, userID, coinID int64) error

	PlaceBet(ctx context.Context, bet *models.Bet) error
}
