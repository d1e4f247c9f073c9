/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"sync"
)

var (
	errChannelClosed = errors.New("channel closed")
	errChannelFull   = errors.New("channel send buffer full")
)

// Channel is a live outbound path to one participant. deliver must not
// block.
type Channel interface {
	deliver(msg OutboundMessage) error
}

// ConnectionRegistry maps participant identities to their live channel.
// Its lifecycle is independent of any session.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	conns map[string]Channel
}

func newConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns: make(map[string]Channel),
	}
}

// bind associates ch with identity and returns the channel it replaced, if
// any. The replaced channel is left open; its owner decides what to do.
func (r *ConnectionRegistry) bind(identity string, ch Channel) Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[identity]
	r.conns[identity] = ch

	if prev == ch {
		return nil
	}

	return prev
}

// unbind removes identity's binding, but only while it still points at ch,
// so a stale channel closing late cannot evict its replacement.
func (r *ConnectionRegistry) unbind(identity string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.conns[identity]; !ok || cur != ch {
		return false
	}

	delete(r.conns, identity)

	return true
}

func (r *ConnectionRegistry) lookup(identity string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.conns[identity]

	return ch, ok
}
