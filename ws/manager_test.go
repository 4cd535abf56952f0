package ws

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairbet/models"
)

func testManager() *Manager {
	games := []*models.Game{
		{ID: 1, Name: "CoinFlip"},
		{ID: 2, Name: "Dice"},
	}
	return NewManager(games, log.New(io.Discard))
}

func register(t *testing.T, m *Manager, id string, buffer int) chan FeedEvent {
	t.Helper()
	feed := make(chan FeedEvent, buffer)
	require.NoError(t, m.processEvent(SubscribeFeed{ID: id, Feed: feed}))
	return feed
}

func TestManagerFanOut(t *testing.T) {
	m := testManager()
	feed := register(t, m, "conn-1", 4)
	require.NoError(t, m.processEvent(SubscribeChannel{ID: "conn-1", Channel: Channel{GameID: 1}}))

	bet := &models.BetExpanded{Bet: models.Bet{GameID: 1}, Username: "alice"}
	require.NoError(t, m.processEvent(PropagateBet{Bet: bet}))

	require.Len(t, feed, 1)
	event := <-feed
	assert.Equal(t, bet, event.Bet)

	// Not subscribed to game 2.
	require.NoError(t, m.processEvent(PropagateBet{Bet: &models.BetExpanded{Bet: models.Bet{GameID: 2}}}))
	assert.Empty(t, feed)
}

func TestManagerAllBetsChannel(t *testing.T) {
	m := testManager()
	feed := register(t, m, "conn-1", 4)
	require.NoError(t, m.processEvent(SubscribeChannel{ID: "conn-1", Channel: AllBets}))

	require.NoError(t, m.processEvent(PropagateBet{Bet: &models.BetExpanded{Bet: models.Bet{GameID: 1}}}))
	require.NoError(t, m.processEvent(PropagateBet{Bet: &models.BetExpanded{Bet: models.Bet{GameID: 2}}}))

	assert.Len(t, feed, 2)
}

func TestManagerUnsubscribeStopsDelivery(t *testing.T) {
	m := testManager()
	feed := register(t, m, "conn-1", 4)
	require.NoError(t, m.processEvent(SubscribeChannel{ID: "conn-1", Channel: Channel{GameID: 1}}))
	require.NoError(t, m.processEvent(UnsubscribeChannel{ID: "conn-1", Channel: Channel{GameID: 1}}))

	require.NoError(t, m.processEvent(PropagateBet{Bet: &models.BetExpanded{Bet: models.Bet{GameID: 1}}}))
	assert.Empty(t, feed)
}

func TestManagerDeregisterPurgesSubscriptions(t *testing.T) {
	m := testManager()
	feed := register(t, m, "conn-1", 4)
	require.NoError(t, m.processEvent(SubscribeChannel{ID: "conn-1", Channel: Channel{GameID: 1}}))
	require.NoError(t, m.processEvent(UnsubscribeFeed{ID: "conn-1"}))

	require.NoError(t, m.processEvent(PropagateBet{Bet: &models.BetExpanded{Bet: models.Bet{GameID: 1}}}))
	assert.Empty(t, feed)
	assert.Empty(t, m.subscriptions[Channel{GameID: 1}])
}

func TestManagerReplacingFeedStartsClean(t *testing.T) {
	m := testManager()
	old := register(t, m, "conn-1", 4)
	require.NoError(t, m.processEvent(SubscribeChannel{ID: "conn-1", Channel: Channel{GameID: 1}}))

	// A reconnect registers a new feed; old subscriptions must not leak
	// onto it.
	fresh := register(t, m, "conn-1", 4)
	require.NoError(t, m.processEvent(PropagateBet{Bet: &models.BetExpanded{Bet: models.Bet{GameID: 1}}}))

	assert.Empty(t, old)
	assert.Empty(t, fresh)
}

func TestManagerSubscribeRequiresFeed(t *testing.T) {
	m := testManager()
	err := m.processEvent(SubscribeChannel{ID: "ghost", Channel: Channel{GameID: 1}})
	assert.ErrorIs(t, err, ErrFeedNotRegistered)
}

func TestManagerUnknownChannel(t *testing.T) {
	m := testManager()
	register(t, m, "conn-1", 4)

	err := m.processEvent(SubscribeChannel{ID: "conn-1", Channel: Channel{GameID: 99}})
	assert.ErrorIs(t, err, ErrChannelNotPresent)

	err = m.processEvent(UnsubscribeChannel{ID: "conn-1", Channel: Channel{GameID: 99}})
	assert.ErrorIs(t, err, ErrChannelNotPresent)
}

func TestManagerStatePropagation(t *testing.T) {
	m := testManager()
	feed := register(t, m, "conn-1", 4)
	require.NoError(t, m.processEvent(SubscribeChannel{ID: "conn-1", Channel: Channel{GameID: 2}}))

	state := &models.GameState{GameID: 2, UUID: "abc"}
	require.NoError(t, m.processEvent(PropagateState{State: state}))

	require.Len(t, feed, 1)
	event := <-feed
	assert.Equal(t, state, event.State)
	assert.Nil(t, event.Bet)
}

func TestManagerFullFeedDoesNotBlock(t *testing.T) {
	m := testManager()
	feed := register(t, m, "conn-1", 1)
	require.NoError(t, m.processEvent(SubscribeChannel{ID: "conn-1", Channel: Channel{GameID: 1}}))

	require.NoError(t, m.processEvent(PropagateBet{Bet: &models.BetExpanded{Bet: models.Bet{GameID: 1}}}))
	require.NoError(t, m.processEvent(PropagateBet{Bet: &models.BetExpanded{Bet: models.Bet{GameID: 1}}}))

	assert.Len(t, feed, 1)
}
