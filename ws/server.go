package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fairbet/config"
	"fairbet/crypto"
	"fairbet/db"
	"fairbet/models"
)

// Server accepts websocket connections and bridges them to the
// subscription manager and the bet pipeline.
type Server struct {
	addr      string
	upgrader  websocket.Upgrader
	store     db.Store
	redis     *db.RedisService
	managerTx chan<- ManagerEvent
	engineTx  chan<- models.EngineBet
	jwtSecret []byte
	logger    *log.Logger
}

func NewServer(
	cfg config.Config,
	store db.Store,
	redis *db.RedisService,
	managerTx chan<- ManagerEvent,
	engineTx chan<- models.EngineBet,
	logger *log.Logger,
) *Server {
	return &Server{
		addr: cfg.ServerAddr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.WSReadBufferSize,
			WriteBufferSize: config.WSWriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		store:     store,
		redis:     redis,
		managerTx: managerTx,
		engineTx:  engineTx,
		jwtSecret: []byte(cfg.JWTSecret),
		logger:    logger.WithPrefix("ws"),
	}
}

// Start serves until the context is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)

	server := &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", "addr", s.addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// client is the per-connection state. The reader goroutine owns userID;
// the writer goroutine only drains out and feed.
type client struct {
	id     string
	userID int64
	conn   *websocket.Conn
	out    chan models.OutgoingMessage
	feed   chan FeedEvent
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		out:  make(chan models.OutgoingMessage, 64),
		feed: make(chan FeedEvent, 64),
	}

	s.managerTx <- SubscribeFeed{ID: c.id, Feed: c.feed}
	defer func() {
		s.managerTx <- UnsubscribeFeed{ID: c.id}
	}()

	done := make(chan struct{})
	defer close(done)
	go s.writePump(c, done)

	s.logger.Debug("connected", "conn", c.id, "remote", r.RemoteAddr)
	s.readLoop(r.Context(), c)
	s.logger.Debug("disconnected", "conn", c.id)
}

// writePump is the only goroutine writing to the connection.
func (s *Server) writePump(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(config.WSPingInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.out:
			if err := s.writeMessage(c, msg); err != nil {
				return
			}
		case event := <-c.feed:
			if err := s.writeMessage(c, feedMessage(event)); err != nil {
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(config.WSWriteDeadline)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-done:
			deadline := time.Now().Add(config.WSWriteDeadline)
			c.conn.WriteControl(websocket.CloseMessage, nil, deadline)
			return
		}
	}
}

func (s *Server) writeMessage(c *client, msg models.OutgoingMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
	return c.conn.WriteJSON(msg)
}

func feedMessage(event FeedEvent) models.OutgoingMessage {
	if event.Bet != nil {
		return models.OutgoingMessage{Status: models.StatusOK, Type: models.ResponseBet, Body: event.Bet}
	}
	return models.OutgoingMessage{Status: models.StatusOK, Type: models.ResponseState, Body: event.State}
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	})

	for {
		var msg models.IncomingMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		s.dispatch(ctx, c, &msg)
	}
}

// send queues a reply without blocking the reader; a dead writer just
// loses the reply.
func (c *client) send(msg models.OutgoingMessage) {
	select {
	case c.out <- msg:
	default:
	}
}

func (s *Server) dispatch(ctx context.Context, c *client, msg *models.IncomingMessage) {
	switch msg.Type {
	case models.MsgAuth:
		s.handleAuth(c, msg)

	case models.MsgPing:
		c.send(models.OutgoingMessage{Status: models.StatusOK, Type: models.ResponsePing})

	case models.MsgGetUuid:
		c.send(models.OutgoingMessage{
			Status: models.StatusOK,
			Type:   models.ResponseUuid,
			Body:   models.UuidToken{UUID: c.id},
		})

	case models.MsgSubscribeBets:
		for _, gameID := range msg.Payload {
			s.managerTx <- SubscribeChannel{ID: c.id, Channel: Channel{GameID: gameID}}
		}
		c.send(models.InfoMessage("subscribed"))

	case models.MsgUnsubscribeBets:
		for _, gameID := range msg.Payload {
			s.managerTx <- UnsubscribeChannel{ID: c.id, Channel: Channel{GameID: gameID}}
		}
		c.send(models.InfoMessage("unsubscribed"))

	case models.MsgSubscribeAllBets:
		s.managerTx <- SubscribeChannel{ID: c.id, Channel: AllBets}
		c.send(models.InfoMessage("subscribed"))
		s.sendRecentBets(ctx, c)

	case models.MsgUnsubscribeAllBets:
		s.managerTx <- UnsubscribeChannel{ID: c.id, Channel: AllBets}
		c.send(models.InfoMessage("unsubscribed"))

	case models.MsgNewClientSeed:
		s.handleNewClientSeed(ctx, c, msg)

	case models.MsgNewServerSeed:
		s.handleNewServerSeed(ctx, c)

	case models.MsgMakeBet:
		s.handleMakeBet(ctx, c, msg)

	case models.MsgContinueGame:
		s.handleContinueGame(ctx, c, msg)

	case models.MsgGetState:
		s.handleGetState(ctx, c, msg)

	default:
		c.send(models.ErrorMessage("unknown message type"))
	}
}

// sendRecentBets replays the cached firehose tail so a fresh subscriber
// does not start from an empty feed.
func (s *Server) sendRecentBets(ctx context.Context, c *client) {
	bets, err := s.redis.RecentBets(ctx)
	if err != nil {
		s.logger.Warn("recent bets", "err", err)
		return
	}
	for i := len(bets) - 1; i >= 0; i-- {
		c.send(models.OutgoingMessage{Status: models.StatusOK, Type: models.ResponseBet, Body: bets[i]})
	}
}

func (s *Server) handleAuth(c *client, msg *models.IncomingMessage) {
	userID, err := s.parseToken(msg.Token)
	if err != nil {
		c.send(models.ErrorMessage("invalid token"))
		return
	}
	c.userID = userID
	c.send(models.InfoMessage("authenticated"))
}

func (s *Server) handleNewClientSeed(ctx context.Context, c *client, msg *models.IncomingMessage) {
	if c.userID == 0 {
		c.send(models.ErrorMessage("not authenticated"))
		return
	}
	if msg.Seed == "" {
		c.send(models.ErrorMessage("empty seed"))
		return
	}

	if err := s.store.NewUserSeed(ctx, c.userID, msg.Seed); err != nil {
		s.logger.Error("new client seed", "err", err)
		c.send(models.ErrorMessage("could not store seed"))
		return
	}
	c.send(models.InfoMessage("client seed updated"))
}

// handleNewServerSeed retires the active server seed and mints a fresh
// one. Only the hash of the new seed leaves the server.
func (s *Server) handleNewServerSeed(ctx context.Context, c *client) {
	if c.userID == 0 {
		c.send(models.ErrorMessage("not authenticated"))
		return
	}

	if err := s.store.RevealServerSeed(ctx, c.userID); err != nil {
		s.logger.Error("reveal server seed", "err", err)
		c.send(models.ErrorMessage("could not rotate seed"))
		return
	}

	seed, hash := crypto.GenerateServerSeed()
	if err := s.store.NewServerSeed(ctx, c.userID, seed); err != nil {
		s.logger.Error("new server seed", "err", err)
		c.send(models.ErrorMessage("could not rotate seed"))
		return
	}

	c.send(models.OutgoingMessage{
		Status: models.StatusOK,
		Type:   models.ResponseServerSeedHidden,
		Body:   models.Seed{Seed: hash},
	})
}

func (s *Server) handleMakeBet(ctx context.Context, c *client, msg *models.IncomingMessage) {
	if c.userID == 0 {
		c.send(models.ErrorMessage("not authenticated"))
		return
	}
	if msg.Bet == nil {
		c.send(models.ErrorMessage("missing bet"))
		return
	}
	if !s.redis.CheckRateLimit(ctx, c.userID) {
		c.send(models.ErrorMessage("rate limit exceeded"))
		return
	}

	bet := *msg.Bet
	bet.UserID = c.userID
	bet.UUID = c.id

	select {
	case s.engineTx <- models.EngineBet{NewBet: &bet}:
		c.send(models.InfoMessage("bet queued"))
	default:
		c.send(models.ErrorMessage("bet queue full"))
	}
}

func (s *Server) handleContinueGame(ctx context.Context, c *client, msg *models.IncomingMessage) {
	if c.userID == 0 {
		c.send(models.ErrorMessage("not authenticated"))
		return
	}
	if msg.Continue == nil {
		c.send(models.ErrorMessage("missing continue request"))
		return
	}
	if !s.redis.CheckRateLimit(ctx, c.userID) {
		c.send(models.ErrorMessage("rate limit exceeded"))
		return
	}

	cont := *msg.Continue
	cont.UserID = c.userID
	cont.UUID = c.id

	select {
	case s.engineTx <- models.EngineBet{Continue: &cont}:
		c.send(models.InfoMessage("continue queued"))
	default:
		c.send(models.ErrorMessage("bet queue full"))
	}
}

func (s *Server) handleGetState(ctx context.Context, c *client, msg *models.IncomingMessage) {
	if c.userID == 0 {
		c.send(models.ErrorMessage("not authenticated"))
		return
	}

	state, err := s.store.GetGameState(ctx, msg.GameID, c.userID, msg.CoinID)
	if err != nil {
		s.logger.Error("get game state", "err", err)
		c.send(models.ErrorMessage("could not fetch state"))
		return
	}
	if state == nil {
		c.send(models.ErrorMessage("no state"))
		return
	}

	c.send(models.OutgoingMessage{Status: models.StatusOK, Type: models.ResponseState, Body: state})
}

type authClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

func (s *Server) parseToken(token string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(token, &authClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := parsed.Claims.(*authClaims)
	if !ok || !parsed.Valid || claims.UserID == 0 {
		return 0, errors.New("invalid claims")
	}
	return claims.UserID, nil
}
