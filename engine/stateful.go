package engine

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"fairbet/crypto"
	"fairbet/db"
	"fairbet/games"
	"fairbet/models"
	"fairbet/ws"
)

// StatefulWorker settles multi-turn games. It runs as a single consumer so
// the start/continue sequence of one continuation key is never interleaved.
type StatefulWorker struct {
	store     db.Store
	redis     *db.RedisService
	engines   map[int64]games.StatefulEngine
	rx        <-chan models.EngineBet
	managerTx chan<- ws.ManagerEvent
	logger    *log.Logger
}

func NewStatefulWorker(
	store db.Store,
	redis *db.RedisService,
	gameDefs []*models.Game,
	rx <-chan models.EngineBet,
	managerTx chan<- ws.ManagerEvent,
	logger *log.Logger,
) *StatefulWorker {
	w := &StatefulWorker{
		store:     store,
		redis:     redis,
		engines:   make(map[int64]games.StatefulEngine),
		rx:        rx,
		managerTx: managerTx,
		logger:    logger.WithPrefix("stateful-engine"),
	}

	for _, def := range gameDefs {
		engine, err := games.ParseStateful(def.Name, def.Parameters)
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

func (w *StatefulWorker) Run(ctx context.Context) error {
	w.logger.Info("starting")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case work := <-w.rx:
			var err error
			switch {
			case work.NewBet != nil:
				err = w.startGame(ctx, work.NewBet)
			case work.Continue != nil:
				err = w.continueGame(ctx, work.Continue)
			}
			if err != nil {
				return err
			}
		}
	}
}

func (w *StatefulWorker) startGame(ctx context.Context, bet *models.PropagatedBet) error {
	engine, ok := w.engines[bet.GameID]
	if !ok {
		w.logger.Warn("unknown game", "game", bet.GameID)
		return nil
	}

	// One live continuation per (game, user, coin).
	existing, err := w.store.GetGameState(ctx, bet.GameID, bet.UserID, bet.CoinID)
	if err != nil {
		w.logger.Error("fetch game state", "err", err)
		return nil
	}
	if existing != nil {
		w.logger.Warn("state already exists", "game", bet.GameID, "user", bet.UserID)
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

	userSeed, serverSeed, ok := fetchSeeds(ctx, w.store, w.logger, bet.UserID)
	if !ok {
		return nil
	}

	timestamp := time.Now()
	draws := crypto.GenerateRandomNumbers(
		userSeed.UserSeed,
		serverSeed.ServerSeed,
		uint64(timestamp.UnixMilli()),
		engine.NumbersPerBet(),
	)

	result := engine.StartPlaying(bet, draws)
	if result == nil {
		w.logger.Warn("bet rejected by engine", "game", bet.GameID, "user", bet.UserID)
		return nil
	}

	applied, err := w.store.DecreaseBalance(ctx, bet.UserID, bet.CoinID, bet.Amount)
	if err != nil {
		w.logger.Error("decrease balance", "user", bet.UserID, "err", err)
		return nil
	}
	if !applied {
		return nil
	}

	if result.Finished {
		return w.finalize(ctx, bet.GameID, bet.UserID, bet.CoinID, buildBet(
			bet, result, timestamp, userSeed.ID, serverSeed.ID, &result.Data,
		), result, false)
	}

	state := &models.GameState{
		Timestamp:    timestamp,
		Amount:       bet.Amount,
		BetInfo:      bet.Data,
		State:        result.Data,
		UUID:         bet.UUID,
		GameID:       bet.GameID,
		UserID:       bet.UserID,
		CoinID:       bet.CoinID,
		UserSeedID:   userSeed.ID,
		ServerSeedID: serverSeed.ID,
	}
	if err := w.store.InsertGameState(ctx, state); err != nil {
		w.logger.Error("insert game state", "err", err)
		return nil
	}

	return propagate(ctx, w.managerTx, ws.PropagateState{State: state})
}

func (w *StatefulWorker) continueGame(ctx context.Context, cont *models.ContinueGame) error {
	engine, ok := w.engines[cont.GameID]
	if !ok {
		w.logger.Warn("unknown game", "game", cont.GameID)
		return nil
	}

	state, err := w.store.GetGameState(ctx, cont.GameID, cont.UserID, cont.CoinID)
	if err != nil {
		w.logger.Error("fetch game state", "err", err)
		return nil
	}
	if state == nil {
		w.logger.Warn("state not found", "game", cont.GameID, "user", cont.UserID)
		return nil
	}

	userSeed, serverSeed, ok := fetchSeeds(ctx, w.store, w.logger, cont.UserID)
	if !ok {
		return nil
	}

	timestamp := time.Now()
	draws := crypto.GenerateRandomNumbers(
		userSeed.UserSeed,
		serverSeed.ServerSeed,
		uint64(timestamp.UnixMilli()),
		engine.NumbersPerBet(),
	)

	result := engine.ContinuePlaying(state, cont, draws)
	if result == nil {
		w.logger.Warn("continue rejected by engine", "game", cont.GameID, "user", cont.UserID)
		return nil
	}

	if result.Finished {
		record := &models.Bet{
			Timestamp:    timestamp,
			Amount:       state.Amount,
			Profit:       result.TotalProfit,
			NumGames:     int32(result.NumGames),
			Outcomes:     encodeOutcomes(result.Outcomes),
			Profits:      encodeProfits(result.Profits),
			BetInfo:      state.BetInfo,
			State:        &result.Data,
			UUID:         cont.UUID,
			GameID:       cont.GameID,
			UserID:       cont.UserID,
			CoinID:       cont.CoinID,
			UserSeedID:   userSeed.ID,
			ServerSeedID: serverSeed.ID,
		}
		return w.finalize(ctx, cont.GameID, cont.UserID, cont.CoinID, record, result, true)
	}

	if err := w.store.UpdateGameState(ctx, cont.GameID, cont.UserID, cont.CoinID, result.Data); err != nil {
		w.logger.Error("update game state", "err", err)
		return nil
	}

	state.Timestamp = timestamp
	state.State = result.Data
	return propagate(ctx, w.managerTx, ws.PropagateState{State: state})
}

// finalize settles a terminal result: credit the payout, record the bet
// and fan it out. removeState clears the continuation row first.
func (w *StatefulWorker) finalize(
	ctx context.Context,
	gameID, userID, coinID int64,
	record *models.Bet,
	result *models.GameResult,
	removeState bool,
) error {
	if removeState {
		if err := w.store.RemoveGameState(ctx, gameID, userID, coinID); err != nil {
			w.logger.Error("remove game state", "err", err)
		}
	}

	if applied, err := w.store.IncreaseBalance(ctx, userID, coinID, result.TotalProfit); err != nil || !applied {
		w.logger.Error("increase balance", "user", userID, "err", err)
	}

	if err := w.store.PlaceBet(ctx, record); err != nil {
		w.logger.Error("place bet", "err", err)
	}

	user, err := w.store.GetUser(ctx, userID)
	if err != nil || user == nil {
		w.logger.Error("fetch user", "user", userID, "err", err)
		return nil
	}

	expanded := &models.BetExpanded{Bet: *record, Username: user.Username}
	if err := propagate(ctx, w.managerTx, ws.PropagateBet{Bet: expanded}); err != nil {
		return err
	}

	w.redis.PushRecentBet(ctx, expanded)
	return nil
}
