/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateSessionValidation(t *testing.T) {
	e := newEngine(testConfig())
	deck := testCards(t, "A", "B")

	tests := []struct {
		name     string
		capacity int
		deck     []Card
		identity string
		hostName string
		field    string
	}{
		{"zero capacity", 0, deck, "host", "Host", "capacity"},
		{"negative capacity", -1, deck, "host", "Host", "capacity"},
		{"over maximum", 21, deck, "host", "Host", "capacity"},
		{"empty deck", 2, nil, "host", "Host", "cards"},
		{"missing identity", 2, deck, "", "Host", "identity"},
		{"blank name", 2, deck, "host", "  ", "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.CreateSession(tt.capacity, tt.deck, tt.identity, tt.hostName)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Field)
		})
	}

	require.Zero(t, e.sessions.count())
}

func TestCreateSessionShufflesCopyOfDeck(t *testing.T) {
	e := newEngine(testConfig())
	deck := testCards(t, "A", "B", "C", "D")

	id, code, err := e.CreateSession(3, deck, "host", "Host")
	require.NoError(t, err)
	require.Regexp(t, codePattern, code)

	s, err := e.sessions.get(id)
	require.NoError(t, err)
	require.ElementsMatch(t, deck, s.deck)
	require.Equal(t, testCards(t, "A", "B", "C", "D"), deck)

	summary, err := e.Summary(id)
	require.NoError(t, err)
	require.Equal(t, code, summary.Code)
	require.Equal(t, 3, summary.Capacity)
	require.Equal(t, 4, summary.CardCount)
	require.Equal(t, StatusWaiting, summary.Status)
	require.Equal(t, []ParticipantView{{Identity: "host", Name: "Host", Host: true}}, summary.Participants)
}

func TestJoinRespectsCapacityAndOrder(t *testing.T) {
	e := newEngine(testConfig())

	id, code, err := e.CreateSession(2, testCards(t, "A", "B", "C"), "host", "Host")
	require.NoError(t, err)

	joinedID, isHost, err := e.JoinSession(code, "guest", "Guest")
	require.NoError(t, err)
	require.Equal(t, id, joinedID)
	require.False(t, isHost)

	_, _, err = e.JoinSession(code, "third", "Third")
	require.ErrorIs(t, err, ErrSessionFull)

	summary, err := e.Summary(id)
	require.NoError(t, err)
	require.Equal(t, []ParticipantView{
		{Identity: "host", Name: "Host", Host: true},
		{Identity: "guest", Name: "Guest"},
	}, summary.Participants)
}

func TestJoinNormalizesCode(t *testing.T) {
	e := newEngine(testConfig())
	s := newTestSession(t, e, 3, testCards(t, "A"), "host")

	id, _, err := e.JoinSession("  "+strings.ToLower(s.code)+" ", "guest", "Guest")
	require.NoError(t, err)
	require.Equal(t, s.id, id)
}

func TestJoinUnknownCode(t *testing.T) {
	e := newEngine(testConfig())

	_, _, err := e.JoinSession("ZZZZZZ", "guest", "Guest")
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = e.JoinSession("", "guest", "Guest")
	require.ErrorIs(t, err, ErrValidation)
}

func TestJoinIsIdempotent(t *testing.T) {
	e := newEngine(testConfig())
	s := newTestSession(t, e, 3, testCards(t, "A"), "host")

	host := &recordingChannel{}
	_, err := e.Register(host, "host", s.id)
	require.NoError(t, err)

	_, _, err = e.JoinSession(s.code, "guest", "Guest")
	require.NoError(t, err)
	_, _, err = e.JoinSession(s.code, "guest", "Guest again")
	require.NoError(t, err)

	_, isHost, err := e.JoinSession(s.code, "host", "Host")
	require.NoError(t, err)
	require.True(t, isHost)

	msgs := host.messages()
	require.Len(t, msgs, 2)
	require.IsType(t, SessionStateMessage{}, msgs[0])

	joined, ok := msgs[1].(ParticipantJoinedMessage)
	require.True(t, ok)
	require.Equal(t, typeParticipantJoined, joined.Type)
	require.Equal(t, []ParticipantView{
		{Identity: "host", Name: "host-name", Host: true},
		{Identity: "guest", Name: "Guest"},
	}, joined.Participants)

	require.Len(t, s.participants, 2)
}

func TestStartTransitions(t *testing.T) {
	e := newEngine(testConfig())
	deck := testCards(t, "A", "B")
	s := newTestSession(t, e, 2, deck, "host")

	host := &recordingChannel{}
	_, err := e.Register(host, "host", s.id)
	require.NoError(t, err)

	cards, err := e.StartSession(s.id)
	require.NoError(t, err)
	require.Equal(t, deck, cards)

	started, ok := host.last(t).(SessionStartedMessage)
	require.True(t, ok)
	require.Equal(t, typeSessionStarted, started.Type)
	require.Equal(t, deck, started.Cards)

	_, err = e.StartSession(s.id)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, StatusPlaying, s.status)

	_, _, err = e.JoinSession(s.code, "late", "Late")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Len(t, s.participants, 1)

	_, err = e.StartSession("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStartFinishedSessionFails(t *testing.T) {
	e := newEngine(testConfig())
	s := newTestSession(t, e, 1, testCards(t, "A"), "host")

	_, err := e.StartSession(s.id)
	require.NoError(t, err)

	e.SelectCard("host", s.id, 0)
	require.Equal(t, StatusFinished, s.status)

	_, err = e.StartSession(s.id)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, StatusFinished, s.status)
}

func TestSelectCardIgnoredOutsidePlaying(t *testing.T) {
	e := newEngine(testConfig())
	s := newTestSession(t, e, 2, testCards(t, "A", "B"), "host")

	host := &recordingChannel{}
	_, err := e.Register(host, "host", s.id)
	require.NoError(t, err)

	e.SelectCard("host", s.id, 0)
	require.Empty(t, s.selections)

	_, err = e.StartSession(s.id)
	require.NoError(t, err)

	e.SelectCard("host", s.id, 5)
	e.SelectCard("host", s.id, -1)
	e.SelectCard("stranger", s.id, 0)
	e.SelectCard("host", "missing", 0)
	require.Empty(t, s.selections)

	// state replay and session_started only
	require.Len(t, host.messages(), 2)
}

func TestSelectionUpdatesThenUnanimousMatch(t *testing.T) {
	e := newEngine(testConfig())
	deck := testCards(t, "A", "B", "C")
	s := newTestSession(t, e, 2, deck, "p1")

	_, _, err := e.JoinSession(s.code, "p2", "P2")
	require.NoError(t, err)

	p1 := &recordingChannel{}
	p2 := &recordingChannel{}
	_, err = e.Register(p1, "p1", s.id)
	require.NoError(t, err)
	_, err = e.Register(p2, "p2", s.id)
	require.NoError(t, err)

	_, err = e.StartSession(s.id)
	require.NoError(t, err)

	e.SelectCard("p1", s.id, 0)
	e.SelectCard("p1", s.id, 1)

	update, ok := p2.last(t).(SelectionUpdateMessage)
	require.True(t, ok)
	require.Equal(t, map[string]int{"p1": 1}, update.Selections)

	e.SelectCard("p2", s.id, 1)

	for _, ch := range []*recordingChannel{p1, p2} {
		finished, ok := ch.last(t).(SessionFinishedMessage)
		require.True(t, ok)
		require.Equal(t, typeSessionFinished, finished.Type)
		require.NotNil(t, finished.Result.Match)
		require.Equal(t, 1, *finished.Result.Match)
		require.Equal(t, deck[1], finished.Result.Card)
		require.Nil(t, finished.Result.Majority)
		require.Equal(t, deck, finished.Cards)
	}

	require.Equal(t, StatusFinished, s.status)
	require.NotNil(t, s.result)

	// late events are dropped
	count := len(p1.messages())
	e.SelectCard("p1", s.id, 2)
	e.FinishSwiping("p1", s.id)
	require.Len(t, p1.messages(), count)
	require.Equal(t, map[string]int{"p1": 1, "p2": 1}, s.selections)
}

func TestSplitVoteResolvesToLowestIndex(t *testing.T) {
	e := newEngine(testConfig())
	deck := testCards(t, "A", "B")
	s := newTestSession(t, e, 2, deck, "p1")

	_, _, err := e.JoinSession(s.code, "p2", "P2")
	require.NoError(t, err)

	p1 := &recordingChannel{}
	_, err = e.Register(p1, "p1", s.id)
	require.NoError(t, err)

	_, err = e.StartSession(s.id)
	require.NoError(t, err)

	e.SelectCard("p1", s.id, 0)
	e.SelectCard("p2", s.id, 1)
	e.FinishSwiping("p1", s.id)
	e.FinishSwiping("p2", s.id)

	finished, ok := p1.last(t).(SessionFinishedMessage)
	require.True(t, ok)
	require.Nil(t, finished.Result.Match)
	require.NotNil(t, finished.Result.Majority)
	require.Equal(t, 0, finished.Result.Majority.CardIndex)
	require.Equal(t, deck[0], finished.Result.Majority.Card)
	require.Equal(t, 1, finished.Result.Majority.Votes)
	require.Equal(t, 2, finished.Result.Majority.Total)

	finishedCount := 0
	for _, msg := range p1.messages() {
		if _, ok := msg.(SessionFinishedMessage); ok {
			finishedCount++
		}
	}
	require.Equal(t, 1, finishedCount)
}

func TestEveryoneSwipesThroughWithoutLiking(t *testing.T) {
	e := newEngine(testConfig())
	s := newTestSession(t, e, 3, testCards(t, "A", "B"), "p1")

	_, _, err := e.JoinSession(s.code, "p2", "P2")
	require.NoError(t, err)

	p1 := &recordingChannel{}
	_, err = e.Register(p1, "p1", s.id)
	require.NoError(t, err)

	_, err = e.StartSession(s.id)
	require.NoError(t, err)

	e.FinishSwiping("p1", s.id)
	e.FinishSwiping("p1", s.id)
	require.Equal(t, StatusPlaying, s.status)
	require.IsType(t, SessionStartedMessage{}, p1.last(t))

	e.FinishSwiping("p2", s.id)
	require.Equal(t, StatusFinished, s.status)

	finished, ok := p1.last(t).(SessionFinishedMessage)
	require.True(t, ok)
	require.Nil(t, finished.Result.Match)
	require.Nil(t, finished.Result.Majority)
}

func TestFinishSwipingWithPartialSelections(t *testing.T) {
	e := newEngine(testConfig())
	deck := testCards(t, "A", "B", "C")
	s := newTestSession(t, e, 3, deck, "p1")

	for _, id := range []string{"p2", "p3"} {
		_, _, err := e.JoinSession(s.code, id, id)
		require.NoError(t, err)
	}

	_, err := e.StartSession(s.id)
	require.NoError(t, err)

	e.SelectCard("p1", s.id, 2)
	e.SelectCard("p2", s.id, 2)
	for _, id := range []string{"p1", "p2", "p3"} {
		e.FinishSwiping(id, s.id)
	}

	require.Equal(t, StatusFinished, s.status)
	require.Nil(t, s.result.Match)
	require.Equal(t, 2, s.result.Majority.CardIndex)
	require.Equal(t, 2, s.result.Majority.Votes)
	require.Equal(t, 3, s.result.Majority.Total)
}

func TestRegisterReplaysCurrentView(t *testing.T) {
	e := newEngine(testConfig())
	deck := testCards(t, "A", "B")
	s := newTestSession(t, e, 2, deck, "p1")

	_, _, err := e.JoinSession(s.code, "p2", "P2")
	require.NoError(t, err)

	waiting := &recordingChannel{}
	_, err = e.Register(waiting, "p1", s.id)
	require.NoError(t, err)

	state, ok := waiting.last(t).(SessionStateMessage)
	require.True(t, ok)
	require.Equal(t, typeSessionState, state.Type)
	require.Equal(t, StatusWaiting, state.Session.Status)
	require.Nil(t, state.Session.Cards)
	require.Equal(t, 2, state.Session.CardCount)

	_, err = e.StartSession(s.id)
	require.NoError(t, err)
	e.SelectCard("p1", s.id, 1)

	reconnected := &recordingChannel{}
	prev, err := e.Register(reconnected, "p1", s.id)
	require.NoError(t, err)
	require.Same(t, waiting, prev)

	msgs := reconnected.messages()
	require.Len(t, msgs, 1)
	started, ok := msgs[0].(SessionStartedMessage)
	require.True(t, ok)
	require.Equal(t, deck, started.Cards)
	require.Len(t, started.Participants, 2)
	require.Equal(t, map[string]int{"p1": 1}, s.selections)

	// broadcasts now reach the new channel only
	before := len(waiting.messages())
	e.SelectCard("p1", s.id, 0)
	require.Len(t, waiting.messages(), before)
	require.IsType(t, SelectionUpdateMessage{}, reconnected.last(t))

	e.SelectCard("p2", s.id, 0)

	late := &recordingChannel{}
	_, err = e.Register(late, "p2", s.id)
	require.NoError(t, err)

	final, ok := late.last(t).(SessionStateMessage)
	require.True(t, ok)
	require.Equal(t, StatusFinished, final.Session.Status)
	require.Nil(t, final.Session.Cards)
	require.NotNil(t, final.Session.Result)
	require.Equal(t, 0, *final.Session.Result.Match)
}

func TestRegisterUnknownSession(t *testing.T) {
	e := newEngine(testConfig())
	ch := &recordingChannel{}

	_, err := e.Register(ch, "p1", "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, ok := e.conns.lookup("p1")
	require.False(t, ok)
}

func TestDisconnectSkipsParticipant(t *testing.T) {
	e := newEngine(testConfig())
	s := newTestSession(t, e, 2, testCards(t, "A"), "p1")

	ch := &recordingChannel{}
	_, err := e.Register(ch, "p1", s.id)
	require.NoError(t, err)

	e.Disconnect("p1", ch)

	_, _, err = e.JoinSession(s.code, "p2", "P2")
	require.NoError(t, err)
	require.Len(t, ch.messages(), 1)
}

func TestBroadcastIsolatesFailingChannel(t *testing.T) {
	e := newEngine(testConfig())
	s := newTestSession(t, e, 3, testCards(t, "A"), "p1")

	_, _, err := e.JoinSession(s.code, "p2", "P2")
	require.NoError(t, err)
	_, _, err = e.JoinSession(s.code, "p3", "P3")
	require.NoError(t, err)

	e.conns.bind("p1", panickingChannel{})
	p3 := &recordingChannel{}
	e.conns.bind("p3", p3)

	msg := newSelectionUpdate(map[string]int{})
	require.NoError(t, e.broadcast(s.id, msg))
	require.Equal(t, []OutboundMessage{msg}, p3.messages())

	require.ErrorIs(t, e.broadcast("missing", msg), ErrNotFound)
}

func TestConcurrentEventsFinishSessionOnce(t *testing.T) {
	const participants = 8

	tests := []struct {
		name     string
		selects  func(i int) bool
		majority bool
	}{
		{"everyone selects", func(int) bool { return true }, true},
		{"half select", func(i int) bool { return i%2 == 0 }, true},
		{"nobody selects", func(int) bool { return false }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 50 {
				e := newEngine(testConfig())
				s := newTestSession(t, e, participants, testCards(t, "A", "B", "C"), "p0")

				channels := make([]*recordingChannel, participants)
				for i := range participants {
					identity := fmt.Sprintf("p%d", i)
					if i > 0 {
						_, _, err := e.JoinSession(s.code, identity, identity)
						require.NoError(t, err)
					}

					channels[i] = &recordingChannel{}
					_, err := e.Register(channels[i], identity, s.id)
					require.NoError(t, err)
				}

				_, err := e.StartSession(s.id)
				require.NoError(t, err)

				var wg sync.WaitGroup
				for i := range participants {
					wg.Add(1)
					go func() {
						defer wg.Done()

						identity := fmt.Sprintf("p%d", i)
						if tt.selects(i) {
							e.SelectCard(identity, s.id, i%3)
						}
						e.FinishSwiping(identity, s.id)
					}()
				}
				wg.Wait()

				s.mu.Lock()
				require.Equal(t, StatusFinished, s.status)
				require.NotNil(t, s.result)
				s.mu.Unlock()

				for _, ch := range channels {
					var finished []SessionFinishedMessage
					for _, msg := range ch.messages() {
						if m, ok := msg.(SessionFinishedMessage); ok {
							finished = append(finished, m)
						}
					}

					require.Len(t, finished, 1)
					require.IsType(t, SessionFinishedMessage{}, ch.last(t))
					require.Nil(t, finished[0].Result.Match)
					require.Equal(t, tt.majority, finished[0].Result.Majority != nil)
				}
			}
		})
	}
}

func TestReapEvictsExpiredSessions(t *testing.T) {
	cfg := testConfig()
	e := newEngine(cfg)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	id, code, err := e.CreateSession(2, testCards(t, "A"), "host", "Host")
	require.NoError(t, err)

	_, err = e.StartSession(id)
	require.NoError(t, err)

	now = now.Add(cfg.sessionRetention / 2)
	require.Empty(t, e.reap())

	now = now.Add(cfg.sessionRetention)
	require.Equal(t, []string{id}, e.reap())

	_, err = e.Summary(id)
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = e.JoinSession(code, "guest", "Guest")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = e.StartSession(id)
	require.ErrorIs(t, err, ErrNotFound)
}
