/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound message types
const (
	typeRegister        = "register"
	typeCardSelected    = "card_selected"
	typeFinishedSwiping = "finished_swiping"
)

// Outbound message types
const (
	typeSessionState      = "session_state"
	typeParticipantJoined = "participant_joined"
	typeSessionStarted    = "session_started"
	typeSelectionUpdate   = "selection_update"
	typeSessionFinished   = "session_finished"
)

var errUnknownMessage = errors.New("unknown message type")

// InboundMessage is one of RegisterMessage, CardSelectedMessage or
// FinishedSwipingMessage.
type InboundMessage interface {
	inbound()
}

type RegisterMessage struct {
	Identity  string `json:"identity"`
	SessionID string `json:"sessionId"`
}

type CardSelectedMessage struct {
	CardIndex int `json:"cardIndex"`
}

type FinishedSwipingMessage struct{}

func (RegisterMessage) inbound()        {}
func (CardSelectedMessage) inbound()    {}
func (FinishedSwipingMessage) inbound() {}

type envelope struct {
	Type string `json:"type"`
}

func decodeInbound(data []byte) (InboundMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case typeRegister:
		var msg RegisterMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		if msg.Identity == "" || msg.SessionID == "" {
			return nil, invalid("register", "identity and sessionId are required")
		}
		return msg, nil

	case typeCardSelected:
		var msg struct {
			CardIndex *int `json:"cardIndex"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		if msg.CardIndex == nil {
			return nil, invalid("card_selected", "cardIndex is required")
		}
		return CardSelectedMessage{CardIndex: *msg.CardIndex}, nil

	case typeFinishedSwiping:
		return FinishedSwipingMessage{}, nil
	}

	return nil, fmt.Errorf("%w: %q", errUnknownMessage, env.Type)
}

// OutboundMessage is one of the engine's broadcast payloads. Each carries
// its own type discriminator.
type OutboundMessage interface {
	outbound()
}

type SessionStateMessage struct {
	Type    string          `json:"type"` // "session_state"
	Session SessionSnapshot `json:"session"`
}

type ParticipantJoinedMessage struct {
	Type         string            `json:"type"` // "participant_joined"
	Participants []ParticipantView `json:"participants"`
}

type SessionStartedMessage struct {
	Type         string            `json:"type"` // "session_started"
	Cards        []Card            `json:"cards"`
	Participants []ParticipantView `json:"participants"`
}

type SelectionUpdateMessage struct {
	Type       string         `json:"type"` // "selection_update"
	Selections map[string]int `json:"selections"`
}

type SessionFinishedMessage struct {
	Type   string `json:"type"` // "session_finished"
	Result Result `json:"result"`
	Cards  []Card `json:"cards"`
}

func (SessionStateMessage) outbound()      {}
func (ParticipantJoinedMessage) outbound() {}
func (SessionStartedMessage) outbound()    {}
func (SelectionUpdateMessage) outbound()   {}
func (SessionFinishedMessage) outbound()   {}

func newSessionState(snap SessionSnapshot) SessionStateMessage {
	return SessionStateMessage{Type: typeSessionState, Session: snap}
}

func newParticipantJoined(participants []ParticipantView) ParticipantJoinedMessage {
	return ParticipantJoinedMessage{Type: typeParticipantJoined, Participants: participants}
}

func newSessionStarted(cards []Card, participants []ParticipantView) SessionStartedMessage {
	return SessionStartedMessage{Type: typeSessionStarted, Cards: cards, Participants: participants}
}

func newSelectionUpdate(selections map[string]int) SelectionUpdateMessage {
	return SelectionUpdateMessage{Type: typeSelectionUpdate, Selections: selections}
}

func newSessionFinished(result Result, cards []Card) SessionFinishedMessage {
	return SessionFinishedMessage{Type: typeSessionFinished, Result: result, Cards: cards}
}
