/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength      = 6
	maxCodeAttempts = 64
)

func newSessionID() string {
	return uuid.NewString()
}

func newCode() (string, error) {
	size := big.NewInt(int64(len(codeAlphabet)))

	out := make([]byte, codeLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[n.Int64()]
	}

	return string(out), nil
}

// newUniqueCode generates join codes until one is not reported as taken.
// Callers must hold whatever lock guards the set consulted by taken.
func newUniqueCode(taken func(code string) bool) (string, error) {
	for range maxCodeAttempts {
		code, err := newCode()
		if err != nil {
			return "", err
		}

		if !taken(code) {
			return code, nil
		}
	}

	return "", ErrCodeSpaceExhausted
}

// shuffleDeck returns a Fisher-Yates shuffled copy of deck.
func shuffleDeck(deck []Card) ([]Card, error) {
	out := make([]Card, len(deck))
	copy(out, deck)

	for i := len(out) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, err
		}
		j := int(n.Int64())
		out[i], out[j] = out[j], out[i]
	}

	return out, nil
}
