/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"maps"
	"slices"
)

// Majority describes the most-liked card when the group did not agree.
type Majority struct {
	CardIndex int  `json:"cardIndex"`
	Card      Card `json:"card"`
	Votes     int  `json:"votes"`
	Total     int  `json:"total"`
}

// Result is the outcome of a finished session. At most one of Match and
// Majority is set; neither is set when nobody liked anything.
type Result struct {
	Match         *int           `json:"match"`
	Card          Card           `json:"card,omitempty"`
	Majority      *Majority      `json:"majority"`
	AllSelections map[string]int `json:"allSelections"`
	AllVotes      map[int]int    `json:"allVotes,omitempty"`
}

func cardAt(deck []Card, index int) Card {
	if index < 0 || index >= len(deck) {
		return nil
	}
	return deck[index]
}

// calculateResult tallies selections. A card liked by every participant is
// a match; otherwise the most-liked card wins, with ties going to the
// lowest card index.
func calculateResult(selections map[string]int, participantCount int, deck []Card) Result {
	if len(selections) == 0 {
		return Result{AllSelections: map[string]int{}}
	}

	votes := make(map[int]int)
	for _, cardIndex := range selections {
		votes[cardIndex]++
	}

	indices := slices.Sorted(maps.Keys(votes))

	for _, index := range indices {
		if votes[index] == participantCount {
			match := index
			return Result{
				Match:         &match,
				Card:          cardAt(deck, index),
				AllSelections: maps.Clone(selections),
			}
		}
	}

	best := indices[0]
	for _, index := range indices[1:] {
		if votes[index] > votes[best] {
			best = index
		}
	}

	return Result{
		Majority: &Majority{
			CardIndex: best,
			Card:      cardAt(deck, best),
			Votes:     votes[best],
			Total:     participantCount,
		},
		AllSelections: maps.Clone(selections),
		AllVotes:      votes,
	}
}
