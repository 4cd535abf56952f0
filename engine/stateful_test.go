package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairbet/games"
	"fairbet/models"
	"fairbet/ws"
)

func pokerDef(t *testing.T) *models.Game {
	t.Helper()
	deck := make([]games.Card, 0, 52)
	for suit := uint8(0); suit < 4; suit++ {
		for number := uint8(1); number <= 13; number++ {
			deck = append(deck, games.Card{Number: number, Suit: suit})
		}
	}
	var multipliers [10]decimal.Decimal
	for i := range multipliers {
		multipliers[i] = decimal.NewFromInt(int64(i * 10))
	}
	params, err := json.Marshal(games.Poker{InitialDeck: deck, Multipliers: multipliers})
	require.NoError(t, err)
	return &models.Game{ID: 3, Name: "Poker", Parameters: string(params)}
}

func minesDef(t *testing.T) *models.Game {
	t.Helper()
	mults := make([]decimal.Decimal, 24)
	for i := range mults {
		mults[i] = decimal.NewFromInt(int64(i + 2))
	}
	params, err := json.Marshal(games.Mines{
		Multipliers: map[uint64][]decimal.Decimal{1: mults},
		MaxReveal:   []uint32{0, 24},
	})
	require.NoError(t, err)
	return &models.Game{ID: 4, Name: "Mines", Parameters: string(params)}
}

func newStatefulTestWorker(store *fakeStore, defs []*models.Game) (*StatefulWorker, chan models.EngineBet, chan ws.ManagerEvent) {
	rx := make(chan models.EngineBet, 8)
	managerTx := make(chan ws.ManagerEvent, 8)
	w := NewStatefulWorker(store, nil, defs, rx, managerTx, testLogger())
	return w, rx, managerTx
}

func TestStatefulStartInsertsState(t *testing.T) {
	store := newFakeStore()
	store.addUser(7, "alice", 1, "100")

	w, _, managerTx := newStatefulTestWorker(store, []*models.Game{pokerDef(t)})

	bet := &models.PropagatedBet{
		GameID: 3,
		Amount: decimal.RequireFromString("10"),
		CoinID: 1,
		UserID: 7,
		UUID:   "conn-1",
		Data:   `{}`,
	}
	require.NoError(t, w.startGame(context.Background(), bet))

	// The wager is taken up front; nothing is paid out until the hand
	// settles.
	assert.True(t, store.balances[balanceKey{7, 1}].Equal(decimal.RequireFromString("90")))
	assert.Equal(t, 1, store.decreases)
	assert.Zero(t, store.increases)
	assert.Empty(t, store.bets)

	state := store.states[stateKey{3, 7, 1}]
	require.NotNil(t, state)
	assert.Equal(t, "conn-1", state.UUID)
	assert.Equal(t, int64(107), state.UserSeedID)
	assert.Equal(t, int64(207), state.ServerSeedID)
	assert.True(t, state.Amount.Equal(bet.Amount))

	var hand games.PokerState
	require.NoError(t, json.Unmarshal([]byte(state.State), &hand))

	require.Len(t, managerTx, 1)
	event := <-managerTx
	propagated, ok := event.(ws.PropagateState)
	require.True(t, ok)
	assert.Equal(t, state, propagated.State)
}

func TestStatefulStartRejectsExistingState(t *testing.T) {
	store := newFakeStore()
	store.addUser(7, "alice", 1, "100")
	store.states[stateKey{3, 7, 1}] = &models.GameState{GameID: 3, UserID: 7, CoinID: 1}

	w, _, managerTx := newStatefulTestWorker(store, []*models.Game{pokerDef(t)})

	bet := &models.PropagatedBet{
		GameID: 3,
		Amount: decimal.RequireFromString("10"),
		CoinID: 1,
		UserID: 7,
		Data:   `{}`,
	}
	require.NoError(t, w.startGame(context.Background(), bet))

	assert.Zero(t, store.decreases)
	assert.Empty(t, managerTx)
	assert.True(t, store.balances[balanceKey{7, 1}].Equal(decimal.RequireFromString("100")))
}

func TestStatefulStartUnknownGameIsDropped(t *testing.T) {
	store := newFakeStore()
	store.addUser(7, "alice", 1, "100")

	w, _, managerTx := newStatefulTestWorker(store, []*models.Game{pokerDef(t)})

	bet := &models.PropagatedBet{
		GameID: 42,
		Amount: decimal.RequireFromString("10"),
		CoinID: 1,
		UserID: 7,
	}
	require.NoError(t, w.startGame(context.Background(), bet))

	assert.Zero(t, store.decreases)
	assert.Empty(t, managerTx)
}

func TestStatefulContinueFinalizesCashout(t *testing.T) {
	store := newFakeStore()
	store.addUser(7, "alice", 1, "100")

	minesState := games.MinesState{
		GameNum:           1,
		CurrentMultiplier: decimal.NewFromInt(2),
	}
	minesState.State[0] = true
	rawState, err := json.Marshal(&minesState)
	require.NoError(t, err)

	store.states[stateKey{4, 7, 1}] = &models.GameState{
		Amount:  decimal.RequireFromString("10"),
		BetInfo: `{"num_mines":1}`,
		State:   string(rawState),
		GameID:  4,
		UserID:  7,
		CoinID:  1,
	}

	w, _, managerTx := newStatefulTestWorker(store, []*models.Game{minesDef(t)})

	cont := &models.ContinueGame{
		GameID: 4,
		CoinID: 1,
		UserID: 7,
		UUID:   "conn-2",
		Data:   `{}`,
	}
	require.NoError(t, w.continueGame(context.Background(), cont))

	// Cashout pays the earned multiplier and retires the continuation.
	assert.True(t, store.balances[balanceKey{7, 1}].Equal(decimal.RequireFromString("120")))
	assert.Empty(t, store.states)

	require.Len(t, store.bets, 1)
	record := store.bets[0]
	assert.True(t, record.Amount.Equal(decimal.RequireFromString("10")))
	assert.True(t, record.Profit.Equal(decimal.RequireFromString("20")))
	assert.Equal(t, "conn-2", record.UUID)
	assert.Equal(t, `{"num_mines":1}`, record.BetInfo)
	require.NotNil(t, record.State)
	assert.Equal(t, int64(107), record.UserSeedID)
	assert.Equal(t, int64(207), record.ServerSeedID)

	require.Len(t, managerTx, 1)
	event := <-managerTx
	propagated, ok := event.(ws.PropagateBet)
	require.True(t, ok)
	assert.Equal(t, "alice", propagated.Bet.Username)
}

func TestStatefulContinueWithoutStateIsDropped(t *testing.T) {
	store := newFakeStore()
	store.addUser(7, "alice", 1, "100")

	w, _, managerTx := newStatefulTestWorker(store, []*models.Game{minesDef(t)})

	cont := &models.ContinueGame{GameID: 4, CoinID: 1, UserID: 7, Data: `{}`}
	require.NoError(t, w.continueGame(context.Background(), cont))

	assert.Zero(t, store.increases)
	assert.Empty(t, store.bets)
	assert.Empty(t, managerTx)
}

func TestStatefulRunConsumesQueue(t *testing.T) {
	store := newFakeStore()
	store.addUser(7, "alice", 1, "100")

	w, rx, managerTx := newStatefulTestWorker(store, []*models.Game{pokerDef(t)})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	rx <- models.EngineBet{NewBet: &models.PropagatedBet{
		GameID: 3,
		Amount: decimal.RequireFromString("10"),
		CoinID: 1,
		UserID: 7,
		UUID:   "conn-1",
		Data:   `{}`,
	}}

	event := <-managerTx
	_, ok := event.(ws.PropagateState)
	assert.True(t, ok)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}
