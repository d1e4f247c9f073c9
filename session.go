/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"time"
)

// Card is an opaque deck entry. The engine never inspects it.
type Card = json.RawMessage

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Participant is one person inside a session. The creator is the only
// participant with Host set.
type Participant struct {
	Identity        string
	Name            string
	Host            bool
	JoinedAt        time.Time
	FinishedSwiping bool
}

// ParticipantView is what other participants get to see.
type ParticipantView struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Host     bool   `json:"host"`
}

// SessionSnapshot is the full state replayed to a registering connection.
type SessionSnapshot struct {
	ID           string            `json:"id"`
	Code         string            `json:"code"`
	Capacity     int               `json:"capacity"`
	CardCount    int               `json:"cardCount"`
	Status       Status            `json:"status"`
	Cards        []Card            `json:"cards,omitempty"`
	Participants []ParticipantView `json:"participants"`
	Selections   map[string]int    `json:"selections"`
	Result       *Result           `json:"result,omitempty"`
}

// SessionSummary is returned to the request layer.
type SessionSummary struct {
	ID           string            `json:"id"`
	Code         string            `json:"code"`
	Capacity     int               `json:"capacity"`
	CardCount    int               `json:"cardCount"`
	Participants []ParticipantView `json:"participants"`
	Status       Status            `json:"status"`
}

// Session is the unit of coordination. All fields below mu are guarded by
// it; id, code, capacity, deck and createdAt never change after creation.
type Session struct {
	id        string
	code      string
	capacity  int
	deck      []Card
	createdAt time.Time

	mu           sync.Mutex
	participants []*Participant
	selections   map[string]int
	status       Status
	result       *Result
}

func newSession(id, code string, capacity int, deck []Card, hostIdentity, hostName string, now time.Time) *Session {
	return &Session{
		id:        id,
		code:      code,
		capacity:  capacity,
		deck:      deck,
		createdAt: now,
		participants: []*Participant{{
			Identity: hostIdentity,
			Name:     hostName,
			Host:     true,
			JoinedAt: now,
		}},
		selections: make(map[string]int),
		status:     StatusWaiting,
	}
}

func (s *Session) participantLocked(identity string) *Participant {
	for _, p := range s.participants {
		if p.Identity == identity {
			return p
		}
	}
	return nil
}

// joinLocked adds identity to the session. It reports whether a new
// participant was appended; rejoining an existing identity is a no-op.
func (s *Session) joinLocked(identity, name string, now time.Time) (*Participant, bool, error) {
	if s.status != StatusWaiting {
		return nil, false, ErrInvalidState
	}

	if p := s.participantLocked(identity); p != nil {
		return p, false, nil
	}

	if len(s.participants) >= s.capacity {
		return nil, false, ErrSessionFull
	}

	p := &Participant{
		Identity: identity,
		Name:     name,
		JoinedAt: now,
	}
	s.participants = append(s.participants, p)

	return p, true, nil
}

func (s *Session) startLocked() error {
	if s.status != StatusWaiting || len(s.participants) < 1 {
		return ErrInvalidState
	}

	s.status = StatusPlaying

	return nil
}

// selectCardLocked records a selection. Selections from non-participants,
// out-of-range indices, or outside the playing state are dropped and
// reported as not recorded.
func (s *Session) selectCardLocked(identity string, cardIndex int) bool {
	if s.status != StatusPlaying {
		return false
	}
	if s.participantLocked(identity) == nil {
		return false
	}
	if cardIndex < 0 || cardIndex >= len(s.deck) {
		return false
	}

	s.selections[identity] = cardIndex

	return true
}

func (s *Session) finishSwipingLocked(identity string) bool {
	if s.status != StatusPlaying {
		return false
	}

	p := s.participantLocked(identity)
	if p == nil {
		return false
	}

	p.FinishedSwiping = true

	return true
}

func (s *Session) allSelectedLocked() bool {
	for _, p := range s.participants {
		if _, ok := s.selections[p.Identity]; !ok {
			return false
		}
	}
	return true
}

func (s *Session) allFinishedLocked() bool {
	for _, p := range s.participants {
		if !p.FinishedSwiping {
			return false
		}
	}
	return true
}

// finishLocked tallies the selections and moves the session to its
// terminal state. It is a no-op unless the session is playing.
func (s *Session) finishLocked() bool {
	if s.status != StatusPlaying {
		return false
	}

	result := calculateResult(s.selections, len(s.participants), s.deck)
	s.result = &result
	s.status = StatusFinished

	return true
}

func (s *Session) participantViewsLocked() []ParticipantView {
	views := make([]ParticipantView, 0, len(s.participants))
	for _, p := range s.participants {
		views = append(views, ParticipantView{
			Identity: p.Identity,
			Name:     p.Name,
			Host:     p.Host,
		})
	}
	return views
}

func (s *Session) selectionsLocked() map[string]int {
	return maps.Clone(s.selections)
}

func (s *Session) deckCopy() []Card {
	return slices.Clone(s.deck)
}

func (s *Session) snapshotLocked() SessionSnapshot {
	snap := SessionSnapshot{
		ID:           s.id,
		Code:         s.code,
		Capacity:     s.capacity,
		CardCount:    len(s.deck),
		Status:       s.status,
		Participants: s.participantViewsLocked(),
		Selections:   s.selectionsLocked(),
		Result:       s.result,
	}

	if s.status == StatusPlaying {
		snap.Cards = s.deckCopy()
	}

	return snap
}

func (s *Session) summaryLocked() SessionSummary {
	return SessionSummary{
		ID:           s.id,
		Code:         s.code,
		Capacity:     s.capacity,
		CardCount:    len(s.deck),
		Participants: s.participantViewsLocked(),
		Status:       s.status,
	}
}

// replayLocked builds the message a (re)registering connection needs to
// reach the current view.
func (s *Session) replayLocked() OutboundMessage {
	if s.status == StatusPlaying {
		return newSessionStarted(s.deckCopy(), s.participantViewsLocked())
	}

	return newSessionState(s.snapshotLocked())
}
