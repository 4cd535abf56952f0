package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fairbet/models"
)

// Postgres implements Store on top of a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres connects the pool and makes sure the schema exists.
func NewPostgres(ctx context.Context, databaseURL string, logger *log.Logger) (*Postgres, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pg := &Postgres{pool: pool, logger: logger}
	if err := pg.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("postgres connected")
	return pg, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// HealthCheck pings the database.
func (p *Postgres) HealthCheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// InitSchema creates the tables if they don't exist.
func (p *Postgres) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS balances (
		user_id BIGINT NOT NULL REFERENCES users(id),
		coin_id BIGINT NOT NULL,
		amount NUMERIC NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, coin_id)
	);

	CREATE TABLE IF NOT EXISTS games (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		parameters TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_seeds (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		user_seed TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_user_seeds_user_id ON user_seeds(user_id, id DESC);

	CREATE TABLE IF NOT EXISTS server_seeds (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		server_seed TEXT NOT NULL,
		revealed BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_server_seeds_active ON server_seeds(user_id) WHERE NOT revealed;

	CREATE TABLE IF NOT EXISTS game_states (
		id BIGSERIAL,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		amount NUMERIC NOT NULL,
		bet_info TEXT NOT NULL,
		state TEXT NOT NULL,
		uuid TEXT NOT NULL,
		game_id BIGINT NOT NULL REFERENCES games(id),
		user_id BIGINT NOT NULL REFERENCES users(id),
		coin_id BIGINT NOT NULL,
		userseed_id BIGINT NOT NULL REFERENCES user_seeds(id),
		serverseed_id BIGINT NOT NULL REFERENCES server_seeds(id),
		PRIMARY KEY (game_id, user_id, coin_id)
	);

	CREATE TABLE IF NOT EXISTS bets (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		amount NUMERIC NOT NULL,
		profit NUMERIC NOT NULL,
		num_games INT NOT NULL,
		outcomes TEXT NOT NULL,
		profits TEXT NOT NULL,
		bet_info TEXT NOT NULL,
		state TEXT,
		uuid TEXT NOT NULL,
		game_id BIGINT NOT NULL REFERENCES games(id),
		user_id BIGINT NOT NULL REFERENCES users(id),
		coin_id BIGINT NOT NULL,
		userseed_id BIGINT NOT NULL REFERENCES user_seeds(id),
		serverseed_id BIGINT NOT NULL REFERENCES server_seeds(id)
	);

	CREATE INDEX IF NOT EXISTS idx_bets_game_id ON bets(game_id, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_bets_user_id ON bets(user_id, timestamp DESC);
	`

	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

/* =========================
   BALANCES
========================= */

// GetAmount fetches a (user, coin) balance. The boolean reports whether the
// row exists.
func (p *Postgres) GetAmount(ctx context.Context, userID, coinID int64) (decimal.Decimal, bool, error) {
	query := `SELECT amount FROM balances WHERE user_id = $1 AND coin_id = $2`

	var amount decimal.Decimal
	err := p.pool.QueryRow(ctx, query, userID, coinID).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get balance: %w", err)
	}

	return amount, true, nil
}

// DecreaseBalance withdraws the wager. The update only touches a row whose
// balance still covers the amount; a false return means the bet must not
// proceed.
func (p *Postgres) DecreaseBalance(ctx context.Context, userID, coinID int64, amount decimal.Decimal) (bool, error) {
	query := `
		UPDATE balances
		SET amount = amount - $3
		WHERE user_id = $1 AND coin_id = $2 AND amount >= $3
	`

	result, err := p.pool.Exec(ctx, query, userID, coinID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to decrease balance: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// IncreaseBalance credits a payout.
func (p *Postgres) IncreaseBalance(ctx context.Context, userID, coinID int64, amount decimal.Decimal) (bool, error) {
	query := `
		UPDATE balances
		SET amount = amount + $3
		WHERE user_id = $1 AND coin_id = $2
	`

	result, err := p.pool.Exec(ctx, query, userID, coinID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to increase balance: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

/* =========================
   GAMES & USERS
========================= */

// FetchAllGames loads every configured game definition.
func (p *Postgres) FetchAllGames(ctx context.Context) ([]*models.Game, error) {
	query := `SELECT id, name, parameters FROM games ORDER BY id`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		var game models.Game
		if err := rows.Scan(&game.ID, &game.Name, &game.Parameters); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, &game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

// GetGame fetches one game definition, nil if absent.
func (p *Postgres) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	query := `SELECT id, name, parameters FROM games WHERE id = $1`

	var game models.Game
	err := p.pool.QueryRow(ctx, query, id).Scan(&game.ID, &game.Name, &game.Parameters)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return &game, nil
}

// GetUser fetches one user, nil if absent.
func (p *Postgres) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username FROM users WHERE id = $1`

	var user models.User
	err := p.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

/* =========================
   SEEDS
========================= */

// GetCurrentUserSeed returns the newest client seed for a user, nil if the
// user never set one.
func (p *Postgres) GetCurrentUserSeed(ctx context.Context, userID int64) (*models.UserSeed, error) {
	query := `
		SELECT id, user_id, user_seed FROM user_seeds
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var seed models.UserSeed
	err := p.pool.QueryRow(ctx, query, userID).Scan(&seed.ID, &seed.UserID, &seed.UserSeed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user seed: %w", err)
	}

	return &seed, nil
}

// NewUserSeed activates a new client seed.
func (p *Postgres) NewUserSeed(ctx context.Context, userID int64, seed string) error {
	query := `INSERT INTO user_seeds (user_id, user_seed) VALUES ($1, $2)`

	if _, err := p.pool.Exec(ctx, query, userID, seed); err != nil {
		return fmt.Errorf("failed to insert user seed: %w", err)
	}
	return nil
}

// GetCurrentServerSeed returns the active (unrevealed) server seed, nil if
// none exists.
func (p *Postgres) GetCurrentServerSeed(ctx context.Context, userID int64) (*models.ServerSeed, error) {
	query := `
		SELECT id, user_id, server_seed, revealed FROM server_seeds
		WHERE user_id = $1 AND NOT revealed
		LIMIT 1
	`

	var seed models.ServerSeed
	err := p.pool.QueryRow(ctx, query, userID).Scan(&seed.ID, &seed.UserID, &seed.ServerSeed, &seed.Revealed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server seed: %w", err)
	}

	return &seed, nil
}

// RevealServerSeed retires the active server seed. The row is kept so
// players can verify past draws.
func (p *Postgres) RevealServerSeed(ctx context.Context, userID int64) error {
	query := `UPDATE server_seeds SET revealed = TRUE WHERE user_id = $1 AND NOT revealed`

	if _, err := p.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to reveal server seed: %w", err)
	}
	return nil
}

// NewServerSeed activates a new server seed.
func (p *Postgres) NewServerSeed(ctx context.Context, userID int64, seed string) error {
	query := `INSERT INTO server_seeds (user_id, server_seed) VALUES ($1, $2)`

	if _, err := p.pool.Exec(ctx, query, userID, seed); err != nil {
		return fmt.Errorf("failed to insert server seed: %w", err)
	}
	return nil
}

/* =========================
   GAME STATES
========================= */

// GetGameState fetches the live continuation row for (game, user, coin),
// nil if there is none.
func (p *Postgres) GetGameState(ctx context.Context, gameID, userID, coinID int64) (*models.GameState, error) {
	query := `
		SELECT id, timestamp, amount, bet_info, state, uuid,
		       game_id, user_id, coin_id, userseed_id, serverseed_id
		FROM game_states
		WHERE game_id = $1 AND user_id = $2 AND coin_id = $3
	`

	var state models.GameState
	err := p.pool.QueryRow(ctx, query, gameID, userID, coinID).Scan(
		&state.ID,
		&state.Timestamp,
		&state.Amount,
		&state.BetInfo,
		&state.State,
		&state.UUID,
		&state.GameID,
		&state.UserID,
		&state.CoinID,
		&state.UserSeedID,
		&state.ServerSeedID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}

	return &state, nil
}

// InsertGameState creates the continuation row. Fails if one already exists
// for the key.
func (p *Postgres) InsertGameState(ctx context.Context, state *models.GameState) error {
	query := `
		INSERT INTO game_states
		(amount, bet_info, state, uuid, game_id, user_id, coin_id, userseed_id, serverseed_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := p.pool.Exec(
		ctx,
		query,
		state.Amount,
		state.BetInfo,
		state.State,
		state.UUID,
		state.GameID,
		state.UserID,
		state.CoinID,
		state.UserSeedID,
		state.ServerSeedID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert game state: %w", err)
	}
	return nil
}

// UpdateGameState overwrites the state blob of a live continuation row.
func (p *Postgres) UpdateGameState(ctx context.Context, gameID, userID, coinID int64, state string) error {
	query := `
		UPDATE game_states
		SET state = $4
		WHERE game_id = $1 AND user_id = $2 AND coin_id = $3
	`

	if _, err := p.pool.Exec(ctx, query, gameID, userID, coinID, state); err != nil {
		return fmt.Errorf("failed to update game state: %w", err)
	}
	return nil
}

// RemoveGameState deletes a finished continuation row.
func (p *Postgres) RemoveGameState(ctx context.Context, gameID, userID, coinID int64) error {
	query := `DELETE FROM game_states WHERE game_id = $1 AND user_id = $2 AND coin_id = $3`

	if _, err := p.pool.Exec(ctx, query, gameID, userID, coinID); err != nil {
		return fmt.Errorf("failed to remove game state: %w", err)
	}
	return nil
}

/* =========================
   BETS
========================= */

// PlaceBet records a settled bet.
func (p *Postgres) PlaceBet(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets
		(timestamp, amount, profit, num_games, outcomes, profits, bet_info, state,
		 uuid, game_id, user_id, coin_id, userseed_id, serverseed_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := p.pool.Exec(
		ctx,
		query,
		bet.Timestamp,
		bet.Amount,
		bet.Profit,
		bet.NumGames,
		bet.Outcomes,
		bet.Profits,
		bet.BetInfo,
		bet.State,
		bet.UUID,
		bet.GameID,
		bet.UserID,
		bet.CoinID,
		bet.UserSeedID,
		bet.ServerSeedID,
	)
	if err != nil {
		return fmt.Errorf("failed to place bet: %w", err)
	}
	return nil
}
