/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		defaultCategory:  builtinCategory,
		maxCapacity:      20,
		port:             8080,
		reapInterval:     time.Minute,
		sessionRetention: time.Hour,
	}
}

func testCards(t *testing.T, names ...string) []Card {
	t.Helper()

	cards := make([]Card, 0, len(names))
	for _, name := range names {
		raw, err := json.Marshal(name)
		require.NoError(t, err)
		cards = append(cards, raw)
	}

	return cards
}

// recordingChannel captures everything delivered to it.
type recordingChannel struct {
	mu   sync.Mutex
	msgs []OutboundMessage
}

func (c *recordingChannel) deliver(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.msgs = append(c.msgs, msg)

	return nil
}

func (c *recordingChannel) messages() []OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]OutboundMessage, len(c.msgs))
	copy(out, c.msgs)

	return out
}

func (c *recordingChannel) last(t *testing.T) OutboundMessage {
	t.Helper()

	msgs := c.messages()
	require.NotEmpty(t, msgs)

	return msgs[len(msgs)-1]
}

type panickingChannel struct{}

func (panickingChannel) deliver(OutboundMessage) error {
	panic("boom")
}

// newTestSession stores a session with an unshuffled deck.
func newTestSession(t *testing.T, e *Engine, capacity int, deck []Card, hostIdentity string) *Session {
	t.Helper()

	s, err := e.sessions.create(capacity, deck, hostIdentity, hostIdentity+"-name", e.now())
	require.NoError(t, err)

	return s
}
