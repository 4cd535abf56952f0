package models

// Incoming websocket message kinds.
const (
	MsgAuth               = "Auth"
	MsgSubscribeBets      = "SubscribeBets"
	MsgUnsubscribeBets    = "UnsubscribeBets"
	MsgSubscribeAllBets   = "SubscribeAllBets"
	MsgUnsubscribeAllBets = "UnsubscribeAllBets"
	MsgPing               = "Ping"
	MsgNewClientSeed      = "NewClientSeed"
	MsgNewServerSeed      = "NewServerSeed"
	MsgMakeBet            = "MakeBet"
	MsgContinueGame       = "ContinueGame"
	MsgGetState           = "GetState"
	MsgGetUuid            = "GetUuid"
)

// Outgoing message kinds.
const (
	ResponseInfoText         = "InfoText"
	ResponseErrorText        = "ErrorText"
	ResponseUuid             = "Uuid"
	ResponseBet              = "Bet"
	ResponseState            = "State"
	ResponseServerSeedHidden = "ServerSeedHidden"
	ResponsePing             = "Ping"
)

// Outgoing message statuses.
const (
	StatusOK  = "OK"
	StatusErr = "Err"
)

// IncomingMessage is the envelope for every client-to-server message. Which
// fields are meaningful depends on Type.
type IncomingMessage struct {
	Type     string         `json:"type"`
	Token    string         `json:"token,omitempty"`
	Payload  []int64        `json:"payload,omitempty"`
	Seed     string         `json:"seed,omitempty"`
	Bet      *PropagatedBet `json:"bet,omitempty"`
	Continue *ContinueGame  `json:"continue,omitempty"`
	GameID   int64          `json:"game_id,omitempty"`
	CoinID   int64          `json:"coin_id,omitempty"`
}

// OutgoingMessage is the envelope for every server-to-client message.
type OutgoingMessage struct {
	Status string `json:"status"`
	Type   string `json:"type"`
	Body   any    `json:"body,omitempty"`
}

// Seed is the body of a ServerSeedHidden response.
type Seed struct {
	Seed string `json:"seed"`
}

// UuidToken is the body of a Uuid response.
type UuidToken struct {
	UUID string `json:"uuid"`
}

func InfoMessage(text string) OutgoingMessage {
	return OutgoingMessage{Status: StatusOK, Type: ResponseInfoText, Body: text}
}

func ErrorMessage(text string) OutgoingMessage {
	return OutgoingMessage{Status: StatusErr, Type: ResponseErrorText, Body: text}
}
