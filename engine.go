/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"strings"
	"time"
)

// Engine coordinates sessions, their participants' live connections, and
// the broadcasts that keep everyone's view in sync. Mutations to a single
// session are serialized on that session's mutex; distinct sessions never
// contend with each other.
type Engine struct {
	cfg      *Config
	sessions *SessionRegistry
	conns    *ConnectionRegistry
	now      func() time.Time
}

func newEngine(cfg *Config) *Engine {
	return &Engine{
		cfg:      cfg,
		sessions: newSessionRegistry(),
		conns:    newConnectionRegistry(),
		now:      time.Now,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateSession shuffles deck, stores a new session with the host as its
// first participant and returns the session's ID and join code.
func (e *Engine) CreateSession(capacity int, deck []Card, hostIdentity, hostName string) (string, string, error) {
	switch {
	case capacity < 1:
		return "", "", invalid("capacity", "must be at least 1")
	case capacity > e.cfg.maxCapacity:
		return "", "", invalid("capacity", "exceeds the server maximum")
	case len(deck) == 0:
		return "", "", invalid("cards", "deck must contain at least one card")
	case hostIdentity == "":
		return "", "", invalid("identity", "must not be empty")
	case strings.TrimSpace(hostName) == "":
		return "", "", invalid("name", "must not be empty")
	}

	shuffled, err := shuffleDeck(deck)
	if err != nil {
		return "", "", err
	}

	s, err := e.sessions.create(capacity, shuffled, hostIdentity, hostName, e.now())
	if err != nil {
		return "", "", err
	}

	logf(e.cfg, "SESSIONS: %q created %s (code %s, capacity %d, %d cards)", hostName, s.id, s.code, capacity, len(shuffled))

	return s.id, s.code, nil
}

// JoinSession adds identity to the session behind code. Joining twice with
// the same identity returns the existing membership without a broadcast.
func (e *Engine) JoinSession(code, identity, name string) (string, bool, error) {
	switch {
	case normalizeCode(code) == "":
		return "", false, invalid("code", "must not be empty")
	case identity == "":
		return "", false, invalid("identity", "must not be empty")
	case strings.TrimSpace(name) == "":
		return "", false, invalid("name", "must not be empty")
	}

	s, err := e.sessions.findByCode(normalizeCode(code))
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, added, err := s.joinLocked(identity, name, e.now())
	if err != nil {
		return "", false, err
	}

	if added {
		logf(e.cfg, "SESSIONS: %q joined %s", name, s.id)
		e.broadcastLocked(s, newParticipantJoined(s.participantViewsLocked()))
	}

	return s.id, p.Host, nil
}

func (e *Engine) Summary(sessionID string) (SessionSummary, error) {
	s, err := e.sessions.get(sessionID)
	if err != nil {
		return SessionSummary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.summaryLocked(), nil
}

// StartSession moves a waiting session to playing and reveals the deck to
// every participant.
func (e *Engine) StartSession(sessionID string) ([]Card, error) {
	s, err := e.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.startLocked(); err != nil {
		return nil, err
	}

	logf(e.cfg, "SESSIONS: Started %s with %d participants", s.id, len(s.participants))

	e.broadcastLocked(s, newSessionStarted(s.deckCopy(), s.participantViewsLocked()))

	return s.deckCopy(), nil
}

// Register binds ch to identity and replays the session's current view to
// it. The channel previously bound to identity, if any, is returned so its
// owner can shut it down.
func (e *Engine) Register(ch Channel, identity, sessionID string) (Channel, error) {
	s, err := e.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := e.conns.bind(identity, ch)

	if err := safeDeliver(ch, s.replayLocked()); err != nil {
		logf(e.cfg, "SOCKET: Replay to %q in %s failed: %v", identity, s.id, err)
	}

	return prev, nil
}

func (e *Engine) Disconnect(identity string, ch Channel) {
	if e.conns.unbind(identity, ch) {
		logf(e.cfg, "SOCKET: %q disconnected", identity)
	}
}

// SelectCard records identity's liked card. Events that arrive outside the
// playing state, from non-participants or with an out-of-range index are
// dropped.
func (e *Engine) SelectCard(identity, sessionID string, cardIndex int) {
	s, err := e.sessions.get(sessionID)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.selectCardLocked(identity, cardIndex) {
		return
	}

	if s.allSelectedLocked() && s.finishLocked() {
		logf(e.cfg, "SESSIONS: %s finished, every participant selected a card", s.id)
		e.broadcastLocked(s, newSessionFinished(*s.result, s.deckCopy()))
		return
	}

	e.broadcastLocked(s, newSelectionUpdate(s.selectionsLocked()))
}

// FinishSwiping marks identity as done with the deck. Once every
// participant is done the session finishes, even without selections.
func (e *Engine) FinishSwiping(identity, sessionID string) {
	s, err := e.sessions.get(sessionID)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finishSwipingLocked(identity) {
		return
	}

	if s.allFinishedLocked() && s.finishLocked() {
		logf(e.cfg, "SESSIONS: %s finished, every participant swiped through the deck", s.id)
		e.broadcastLocked(s, newSessionFinished(*s.result, s.deckCopy()))
	}
}

// reap evicts every session older than the retention window.
func (e *Engine) reap() []string {
	evicted := e.sessions.evictBefore(e.now().Add(-e.cfg.sessionRetention))

	for _, id := range evicted {
		logf(e.cfg, "REAPER: Evicted %s", id)
	}

	return evicted
}

// runReaper sweeps expired sessions every reap interval until ctx is done.
func (e *Engine) runReaper(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.reap()
		}
	}
}
