/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

// broadcast delivers msg to every connected participant of the session.
// Engine operations already hold s.mu when they fan out and call
// broadcastLocked directly.
func (e *Engine) broadcast(sessionID string, msg OutboundMessage) error {
	s, err := e.sessions.get(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.broadcastLocked(s, msg)

	return nil
}

// broadcastLocked queues msg to each participant's channel in join order.
// Participants without a live channel are skipped. Assumes s.mu is held.
func (e *Engine) broadcastLocked(s *Session, msg OutboundMessage) {
	for _, p := range s.participants {
		ch, ok := e.conns.lookup(p.Identity)
		if !ok {
			continue
		}

		if err := safeDeliver(ch, msg); err != nil {
			logf(e.cfg, "SOCKET: Dropped message for %q in %s: %v", p.Identity, s.id, err)
		}
	}
}

// safeDeliver isolates a single recipient so a misbehaving channel cannot
// abort the rest of a fan-out.
func safeDeliver(ch Channel, msg OutboundMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deliver panicked: %v", r)
		}
	}()

	return ch.deliver(msg)
}
