package ws

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairbet/config"
	"fairbet/models"
)

func testServer(secret string) *Server {
	cfg := config.Config{ServerAddr: "127.0.0.1:0", JWTSecret: secret}
	return NewServer(cfg, nil, nil, nil, nil, log.New(io.Discard))
}

func signToken(t *testing.T, secret string, claims authClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseTokenRoundTrip(t *testing.T) {
	s := testServer("secret")
	token := signToken(t, "secret", authClaims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	userID, err := s.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	s := testServer("secret")
	token := signToken(t, "other", authClaims{UserID: 7})

	_, err := s.parseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	s := testServer("secret")
	token := signToken(t, "secret", authClaims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := s.parseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsMissingUserID(t *testing.T) {
	s := testServer("secret")
	token := signToken(t, "secret", authClaims{})

	_, err := s.parseToken(token)
	assert.Error(t, err)
}

func TestFeedMessageShapes(t *testing.T) {
	bet := &models.BetExpanded{Username: "alice"}
	msg := feedMessage(FeedEvent{Bet: bet})
	assert.Equal(t, models.ResponseBet, msg.Type)
	assert.Equal(t, bet, msg.Body)

	state := &models.GameState{UUID: "abc"}
	msg = feedMessage(FeedEvent{State: state})
	assert.Equal(t, models.ResponseState, msg.Type)
	assert.Equal(t, state, msg.Body)
}
