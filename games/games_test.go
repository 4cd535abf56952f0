package games

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairbet/models"
)

func testBet(amount string, numGames uint64, data string) *models.PropagatedBet {
	return &models.PropagatedBet{
		Amount:   decimal.RequireFromString(amount),
		NumGames: numGames,
		Data:     data,
	}
}

func TestParseStateless(t *testing.T) {
	engine, err := ParseStateless("CoinFlip", `{"profit_coef":"2"}`)
	require.NoError(t, err)
	require.NotNil(t, engine)
	assert.Equal(t, uint64(1), engine.NumbersPerBet())

	engine, err = ParseStateless("Plinko", `{"multipliers":[]}`)
	require.NoError(t, err)
	require.NotNil(t, engine)

	engine, err = ParseStateless("Mines", `{}`)
	require.NoError(t, err)
	assert.Nil(t, engine)

	engine, err = ParseStateless("NoSuchGame", `{}`)
	require.NoError(t, err)
	assert.Nil(t, engine)

	_, err = ParseStateless("CoinFlip", `not json`)
	assert.Error(t, err)
}

func TestParseStateful(t *testing.T) {
	engine, err := ParseStateful("Mines", `{"multipliers":{},"max_reveal":[]}`)
	require.NoError(t, err)
	require.NotNil(t, engine)
	assert.Equal(t, uint64(25), engine.NumbersPerBet())

	engine, err = ParseStateful("CoinFlip", `{}`)
	require.NoError(t, err)
	assert.Nil(t, engine)
}

func TestCoinFlipSingleRound(t *testing.T) {
	game := &CoinFlip{ProfitCoef: decimal.RequireFromString("2")}

	// Even draw lands tails, an is_heads bet loses.
	result := game.Play(testBet("10", 1, `{"is_heads":true}`), []uint64{2})
	require.NotNil(t, result)
	assert.True(t, result.TotalProfit.IsZero())
	assert.Equal(t, []uint64{0}, result.Outcomes)
	assert.Equal(t, uint32(1), result.NumGames)
	assert.True(t, result.Finished)

	result = game.Play(testBet("10", 1, `{"is_heads":true}`), []uint64{3})
	require.NotNil(t, result)
	assert.True(t, result.TotalProfit.Equal(decimal.RequireFromString("20")))
	assert.Equal(t, []uint64{1}, result.Outcomes)
}

func TestCoinFlipRejectsBadData(t *testing.T) {
	game := &CoinFlip{ProfitCoef: decimal.RequireFromString("2")}
	assert.Nil(t, game.Play(testBet("10", 1, `not json`), []uint64{1}))
}

func TestStopWinEndsEarlyAndRefundsRemainder(t *testing.T) {
	game := &CoinFlip{ProfitCoef: decimal.RequireFromString("2")}

	bet := testBet("10", 5, `{"is_heads":true}`)
	bet.StopWin = decimal.RequireFromString("20")

	result := game.Play(bet, []uint64{1, 1, 1, 1, 1})
	require.NotNil(t, result)

	// One round pushes the running value to the stop-win threshold; the
	// wager of the four unplayed rounds comes back on top of the win.
	assert.Equal(t, uint32(1), result.NumGames)
	assert.Len(t, result.Outcomes, 1)
	assert.True(t, result.TotalProfit.Equal(decimal.RequireFromString("60")))
}

func TestStopLossEndsEarlyAndRefundsRemainder(t *testing.T) {
	game := &CoinFlip{ProfitCoef: decimal.RequireFromString("2")}

	bet := testBet("10", 3, `{"is_heads":true}`)
	bet.StopLoss = decimal.RequireFromString("-10")

	result := game.Play(bet, []uint64{0, 0, 0})
	require.NotNil(t, result)

	assert.Equal(t, uint32(1), result.NumGames)
	assert.True(t, result.TotalProfit.Equal(decimal.RequireFromString("20")))
}

func TestNoStopPlaysEveryRound(t *testing.T) {
	game := &CoinFlip{ProfitCoef: decimal.RequireFromString("2")}

	result := game.Play(testBet("10", 4, `{"is_heads":true}`), []uint64{1, 0, 1, 0})
	require.NotNil(t, result)

	assert.Equal(t, uint32(4), result.NumGames)
	assert.True(t, result.TotalProfit.Equal(decimal.RequireFromString("40")))
	assert.Equal(t, []uint64{1, 0, 1, 0}, result.Outcomes)
}
