package games

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairbet/models"
)

func fullDeck() []Card {
	deck := make([]Card, 0, 52)
	for suit := uint8(0); suit < 4; suit++ {
		for number := uint8(1); number <= 13; number++ {
			deck = append(deck, Card{Number: number, Suit: suit})
		}
	}
	return deck
}

func testPoker() *Poker {
	game := &Poker{InitialDeck: fullDeck()}
	for i := range game.Multipliers {
		game.Multipliers[i] = decimal.NewFromInt(int64(i * 10))
	}
	return game
}

func hand(cards ...Card) [5]Card {
	var out [5]Card
	copy(out[:], cards)
	return out
}

func TestDetermineHand(t *testing.T) {
	tests := []struct {
		name     string
		cards    [5]Card
		category int
	}{
		{
			"royal flush",
			hand(Card{10, 0}, Card{11, 0}, Card{12, 0}, Card{13, 0}, Card{1, 0}),
			pokerRoyalFlush,
		},
		{
			"straight flush",
			hand(Card{5, 1}, Card{6, 1}, Card{7, 1}, Card{8, 1}, Card{9, 1}),
			pokerStraightFlush,
		},
		{
			"four of a kind",
			hand(Card{7, 0}, Card{7, 1}, Card{7, 2}, Card{7, 3}, Card{2, 0}),
			pokerFourOfAKind,
		},
		{
			"full house",
			hand(Card{4, 0}, Card{4, 1}, Card{4, 2}, Card{9, 0}, Card{9, 1}),
			pokerFullHouse,
		},
		{
			"flush",
			hand(Card{2, 2}, Card{5, 2}, Card{8, 2}, Card{11, 2}, Card{13, 2}),
			pokerFlush,
		},
		{
			"ace low straight",
			hand(Card{1, 0}, Card{2, 1}, Card{3, 2}, Card{4, 3}, Card{5, 0}),
			pokerStraight,
		},
		{
			"ace high straight",
			hand(Card{10, 0}, Card{11, 1}, Card{12, 2}, Card{13, 3}, Card{1, 0}),
			pokerStraight,
		},
		{
			"three of a kind",
			hand(Card{6, 0}, Card{6, 1}, Card{6, 2}, Card{2, 0}, Card{9, 3}),
			pokerThreeOfAKind,
		},
		{
			"two pair",
			hand(Card{3, 0}, Card{3, 1}, Card{8, 0}, Card{8, 1}, Card{12, 2}),
			pokerTwoPair,
		},
		{
			"pair of jacks",
			hand(Card{11, 0}, Card{11, 1}, Card{2, 0}, Card{5, 1}, Card{9, 2}),
			pokerPairJacks,
		},
		{
			"pair of aces",
			hand(Card{1, 0}, Card{1, 1}, Card{2, 0}, Card{5, 1}, Card{9, 2}),
			pokerPairJacks,
		},
		{
			"pair of tens pays nothing",
			hand(Card{10, 0}, Card{10, 1}, Card{2, 0}, Card{5, 1}, Card{9, 2}),
			pokerNothing,
		},
		{
			"high card",
			hand(Card{2, 0}, Card{5, 1}, Card{8, 2}, Card{11, 3}, Card{13, 0}),
			pokerNothing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, determineHand(tt.cards))
		})
	}
}

func TestPokerStartDealsFiveDistinctCards(t *testing.T) {
	game := testPoker()

	result := game.StartPlaying(testBet("10", 1, ``), []uint64{0, 13, 26, 39, 4})
	require.NotNil(t, result)
	assert.False(t, result.Finished)
	assert.True(t, result.TotalProfit.IsZero())

	var state PokerState
	require.NoError(t, json.Unmarshal([]byte(result.Data), &state))

	seen := make(map[Card]bool)
	for _, card := range state.CardsInHand {
		assert.False(t, seen[card])
		seen[card] = true
	}
}

func TestPokerContinueKeepsHand(t *testing.T) {
	game := testPoker()

	state := PokerState{CardsInHand: hand(Card{11, 0}, Card{11, 1}, Card{2, 0}, Card{5, 1}, Card{9, 2})}
	raw, err := json.Marshal(&state)
	require.NoError(t, err)

	gs := &models.GameState{
		Amount: decimal.RequireFromString("10"),
		State:  string(raw),
	}
	result := game.ContinuePlaying(gs, &models.ContinueGame{Data: `{}`}, nil)
	require.NotNil(t, result)
	assert.True(t, result.Finished)
	assert.Equal(t, []uint64{uint64(pokerPairJacks)}, result.Outcomes)
	assert.True(t, result.TotalProfit.Equal(decimal.RequireFromString("100")))
}

func TestPokerContinueReplacesFlaggedCards(t *testing.T) {
	game := testPoker()

	state := PokerState{CardsInHand: hand(Card{11, 0}, Card{11, 1}, Card{2, 0}, Card{5, 1}, Card{9, 2})}
	raw, err := json.Marshal(&state)
	require.NoError(t, err)

	gs := &models.GameState{
		Amount: decimal.RequireFromString("10"),
		State:  string(raw),
	}
	result := game.ContinuePlaying(gs, &models.ContinueGame{Data: `{"to_replace":[false,false,true,true,true]}`}, []uint64{0, 0, 0, 1, 2})
	require.NotNil(t, result)
	assert.True(t, result.Finished)

	var final PokerState
	require.NoError(t, json.Unmarshal([]byte(result.Data), &final))
	assert.Equal(t, Card{11, 0}, final.CardsInHand[0])
	assert.Equal(t, Card{11, 1}, final.CardsInHand[1])
	for i := 2; i < 5; i++ {
		assert.NotEqual(t, state.CardsInHand[i], final.CardsInHand[i])
	}
}

func TestPokerContinueRejectsBadData(t *testing.T) {
	game := testPoker()
	gs := &models.GameState{State: `{}`}
	assert.Nil(t, game.ContinuePlaying(gs, &models.ContinueGame{Data: `not json`}, nil))
}
