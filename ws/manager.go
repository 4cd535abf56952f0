package ws

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"fairbet/models"
)

// Channel is a broadcast topic: the live bet feed of one game.
type Channel struct {
	GameID int64 `json:"game_id"`
}

// AllBets is the firehose channel carrying every settled bet.
var AllBets = Channel{GameID: -1}

var (
	ErrFeedNotRegistered = errors.New("feed not registered")
	ErrChannelNotPresent = errors.New("channel not present")
)

// FeedEvent is what a subscribed connection receives: a settled bet or a
// continuation snapshot.
type FeedEvent struct {
	Bet   *models.BetExpanded
	State *models.GameState
}

// ManagerEvent is a control message for the subscription manager.
type ManagerEvent interface {
	isManagerEvent()
}

// SubscribeFeed registers a connection's feed, replacing any prior one.
type SubscribeFeed struct {
	ID   string
	Feed chan<- FeedEvent
}

// UnsubscribeFeed drops a connection's feed and all its subscriptions.
type UnsubscribeFeed struct {
	ID string
}

// SubscribeChannel adds a connection to a channel's subscriber set.
type SubscribeChannel struct {
	ID      string
	Channel Channel
}

// UnsubscribeChannel removes a connection from a channel's subscriber set.
type UnsubscribeChannel struct {
	ID      string
	Channel Channel
}

// PropagateBet fans a settled bet out to the game's channel and the
// firehose.
type PropagateBet struct {
	Bet *models.BetExpanded
}

// PropagateState fans a continuation snapshot out to the game's channel.
type PropagateState struct {
	State *models.GameState
}

func (SubscribeFeed) isManagerEvent()      {}
func (UnsubscribeFeed) isManagerEvent()    {}
func (SubscribeChannel) isManagerEvent()   {}
func (UnsubscribeChannel) isManagerEvent() {}
func (PropagateBet) isManagerEvent()       {}
func (PropagateState) isManagerEvent()     {}

// managerBatchSize bounds how many queued events one wakeup drains.
const managerBatchSize = 50

// Manager owns all subscription state. It is reached only through its
// event channel, so the maps need no locks.
type Manager struct {
	feeds         map[string]chan<- FeedEvent
	subscriptions map[Channel]map[string]struct{}
	events        chan ManagerEvent
	logger        *log.Logger
}

// NewManager initializes one channel per configured game plus the
// firehose.
func NewManager(games []*models.Game, logger *log.Logger) *Manager {
	subscriptions := make(map[Channel]map[string]struct{}, len(games)+1)
	subscriptions[AllBets] = make(map[string]struct{})
	for _, game := range games {
		subscriptions[Channel{GameID: game.ID}] = make(map[string]struct{})
	}

	return &Manager{
		feeds:         make(map[string]chan<- FeedEvent),
		subscriptions: subscriptions,
		events:        make(chan ManagerEvent, 256),
		logger:        logger.WithPrefix("manager"),
	}
}

// Tx is the inbound event channel handed to producers.
func (m *Manager) Tx() chan<- ManagerEvent {
	return m.events
}

// Run processes events until the context is done. Events are drained in
// batches to bound per-event scheduling overhead under load.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-m.events:
			m.handle(event)
		drain:
			for i := 1; i < managerBatchSize; i++ {
				select {
				case event := <-m.events:
					m.handle(event)
				default:
					break drain
				}
			}
		}
	}
}

func (m *Manager) handle(event ManagerEvent) {
	if err := m.processEvent(event); err != nil {
		m.logger.Warn("event rejected", "err", err)
	}
}

func (m *Manager) processEvent(event ManagerEvent) error {
	switch e := event.(type) {
	case SubscribeFeed:
		// A replacing connection starts with a clean subscription slate.
		if _, ok := m.feeds[e.ID]; ok {
			m.purge(e.ID)
		}
		m.feeds[e.ID] = e.Feed

	case UnsubscribeFeed:
		delete(m.feeds, e.ID)
		m.purge(e.ID)

	case SubscribeChannel:
		if _, ok := m.feeds[e.ID]; !ok {
			return ErrFeedNotRegistered
		}
		set, ok := m.subscriptions[e.Channel]
		if !ok {
			return ErrChannelNotPresent
		}
		set[e.ID] = struct{}{}

	case UnsubscribeChannel:
		set, ok := m.subscriptions[e.Channel]
		if !ok {
			return ErrChannelNotPresent
		}
		delete(set, e.ID)

	case PropagateBet:
		m.fanOut(Channel{GameID: e.Bet.GameID}, FeedEvent{Bet: e.Bet})
		m.fanOut(AllBets, FeedEvent{Bet: e.Bet})

	case PropagateState:
		m.fanOut(Channel{GameID: e.State.GameID}, FeedEvent{State: e.State})
	}

	return nil
}

func (m *Manager) purge(id string) {
	for _, set := range m.subscriptions {
		delete(set, id)
	}
}

func (m *Manager) fanOut(channel Channel, event FeedEvent) {
	set, ok := m.subscriptions[channel]
	if !ok {
		m.logger.Warn("propagate to unknown channel", "game_id", channel.GameID)
		return
	}

	for id := range set {
		feed, ok := m.feeds[id]
		if !ok {
			continue
		}
		select {
		case feed <- event:
		default:
			m.logger.Warn("feed full, dropping event", "conn", id)
		}
	}
}
