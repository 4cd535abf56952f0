package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"fairbet/config"
	"fairbet/crypto"
	"fairbet/db"
	"fairbet/games"
	"fairbet/models"
	"fairbet/ws"
)

// Worker settles stateless bets from the shared queue. Work for stateful
// games and continuations is forwarded to the stateful worker's queue.
type Worker struct {
	store      db.Store
	redis      *db.RedisService
	engines    map[int64]games.Engine
	rx         <-chan models.EngineBet
	statefulTx chan<- models.EngineBet
	managerTx  chan<- ws.ManagerEvent
	logger     *log.Logger
}

func NewWorker(
	id int,
	store db.Store,
	redis *db.RedisService,
	gameDefs []*models.Game,
	rx <-chan models.EngineBet,
	statefulTx chan<- models.EngineBet,
	managerTx chan<- ws.ManagerEvent,
	logger *log.Logger,
) *Worker {
	w := &Worker{
		store:      store,
		redis:      redis,
		engines:    make(map[int64]games.Engine),
		rx:         rx,
		statefulTx: statefulTx,
		managerTx:  managerTx,
		logger:     logger.WithPrefix("engine").With("worker", id),
	}

	for _, def := range gameDefs {
		engine, err := games.ParseStateless(def.Name, def.Parameters)
		if err != nil {
			w.logger.Error("bad game parameters", "game", def.Name, "err", err)
			continue
		}
		if engine != nil {
			w.engines[def.ID] = engine
		}
	}

	return w
}

// Run consumes the queue until the context is done. A single bad bet is
// logged and skipped; only losing the manager channel ends the worker.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case work := <-w.rx:
			if work.NewBet != nil {
				if engine, ok := w.engines[work.NewBet.GameID]; ok {
					if err := w.processBet(ctx, engine, work.NewBet); err != nil {
						return err
					}
					continue
				}
			}

			// Stateful game or a continuation.
			select {
			case w.statefulTx <- work:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (w *Worker) processBet(ctx context.Context, engine games.Engine, bet *models.PropagatedBet) error {
	if bet.NumGames == 0 || bet.NumGames > config.MaxNumGames {
		w.logger.Warn("round count out of range", "num_games", bet.NumGames)
		return nil
	}

	amount, ok, err := w.store.GetAmount(ctx, bet.UserID, bet.CoinID)
	if err != nil {
		w.logger.Error("fetch balance", "user", bet.UserID, "err", err)
		return nil
	}
	if !ok || bet.Amount.GreaterThan(amount) {
		return nil
	}

	userSeed, serverSeed, ok := w.fetchSeeds(ctx, bet.UserID)
	if !ok {
		return nil
	}

	timestamp := time.Now()
	draws := crypto.GenerateRandomNumbers(
		userSeed.UserSeed,
		serverSeed.ServerSeed,
		uint64(timestamp.UnixMilli()),
		engine.NumbersPerBet()*bet.NumGames,
	)

	result := engine.Play(bet, draws)
	if result == nil {
		w.logger.Warn("bet rejected by engine", "game", bet.GameID, "user", bet.UserID)
		return nil
	}

	wager := bet.Amount.Mul(decimal.NewFromInt(int64(result.NumGames)))
	applied, err := w.store.DecreaseBalance(ctx, bet.UserID, bet.CoinID, wager)
	if err != nil {
		w.logger.Error("decrease balance", "user", bet.UserID, "err", err)
		return nil
	}
	if !applied {
		return nil
	}

	if applied, err := w.store.IncreaseBalance(ctx, bet.UserID, bet.CoinID, result.TotalProfit); err != nil || !applied {
		w.logger.Error("increase balance", "user", bet.UserID, "err", err)
		return nil
	}

	record := buildBet(bet, result, timestamp, userSeed.ID, serverSeed.ID, nil)
	if err := w.store.PlaceBet(ctx, record); err != nil {
		w.logger.Error("place bet", "err", err)
	}

	user, err := w.store.GetUser(ctx, bet.UserID)
	if err != nil || user == nil {
		w.logger.Error("fetch user", "user", bet.UserID, "err", err)
		return nil
	}

	expanded := &models.BetExpanded{Bet: *record, Username: user.Username}
	if err := w.propagate(ctx, ws.PropagateBet{Bet: expanded}); err != nil {
		return err
	}

	w.redis.PushRecentBet(ctx, expanded)
	return nil
}

func (w *Worker) fetchSeeds(ctx context.Context, userID int64) (*models.UserSeed, *models.ServerSeed, bool) {
	return fetchSeeds(ctx, w.store, w.logger, userID)
}

func (w *Worker) propagate(ctx context.Context, event ws.ManagerEvent) error {
	return propagate(ctx, w.managerTx, event)
}

// fetchSeeds loads the active seed pair. A user without seeds cannot bet.
func fetchSeeds(ctx context.Context, store db.Store, logger *log.Logger, userID int64) (*models.UserSeed, *models.ServerSeed, bool) {
	userSeed, err := store.GetCurrentUserSeed(ctx, userID)
	if err != nil || userSeed == nil {
		logger.Error("fetch user seed", "user", userID, "err", err)
		return nil, nil, false
	}

	serverSeed, err := store.GetCurrentServerSeed(ctx, userID)
	if err != nil || serverSeed == nil {
		logger.Error("fetch server seed", "user", userID, "err", err)
		return nil, nil, false
	}

	return userSeed, serverSeed, true
}

// propagate blocks until the manager takes the event. The only way the
// send fails is shutdown, which is fatal for the calling worker.
func propagate(ctx context.Context, tx chan<- ws.ManagerEvent, event ws.ManagerEvent) error {
	select {
	case tx <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildBet assembles the persisted record for a settled bet.
func buildBet(
	bet *models.PropagatedBet,
	result *models.GameResult,
	timestamp time.Time,
	userSeedID, serverSeedID int64,
	state *string,
) *models.Bet {
	return &models.Bet{
		Timestamp:    timestamp,
		Amount:       bet.Amount,
		Profit:       result.TotalProfit,
		NumGames:     int32(result.NumGames),
		Outcomes:     encodeOutcomes(result.Outcomes),
		Profits:      encodeProfits(result.Profits),
		BetInfo:      result.Data,
		State:        state,
		UUID:         bet.UUID,
		GameID:       bet.GameID,
		UserID:       bet.UserID,
		CoinID:       bet.CoinID,
		UserSeedID:   userSeedID,
		ServerSeedID: serverSeedID,
	}
}

func encodeOutcomes(outcomes []uint64) string {
	if outcomes == nil {
		outcomes = []uint64{}
	}
	raw, _ := json.Marshal(outcomes)
	return string(raw)
}

func encodeProfits(profits []decimal.Decimal) string {
	if profits == nil {
		profits = []decimal.Decimal{}
	}
	raw, _ := json.Marshal(profits)
	return string(raw)
}
