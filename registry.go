/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync"
	"time"
)

// SessionRegistry owns every live session, keyed by ID, with a secondary
// index from join code to ID.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	codes    map[string]string
}

func newSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		codes:    make(map[string]string),
	}
}

// create builds and stores a session with the host as its first
// participant. The session is fully constructed before it becomes visible.
func (r *SessionRegistry) create(capacity int, deck []Card, hostIdentity, hostName string, now time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := newUniqueCode(func(code string) bool {
		_, exists := r.codes[code]
		return exists
	})
	if err != nil {
		return nil, err
	}

	s := newSession(newSessionID(), code, capacity, deck, hostIdentity, hostName, now)

	r.sessions[s.id] = s
	r.codes[s.code] = s.id

	return s, nil
}

func (r *SessionRegistry) get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	return s, nil
}

func (r *SessionRegistry) findByCode(code string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.codes[code]
	if !ok {
		return nil, ErrNotFound
	}

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	return s, nil
}

func (r *SessionRegistry) delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}

	delete(r.sessions, id)
	if r.codes[s.code] == id {
		delete(r.codes, s.code)
	}

	return true
}

// evictBefore deletes every session created before cutoff and returns
// their IDs.
func (r *SessionRegistry) evictBefore(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, s := range r.sessions {
		if s.createdAt.Before(cutoff) {
			delete(r.sessions, id)
			if r.codes[s.code] == id {
				delete(r.codes, s.code)
			}
			evicted = append(evicted, id)
		}
	}

	return evicted
}

func (r *SessionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
