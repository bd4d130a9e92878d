package models

import (
	"errors"
	"fmt"
	"strings"
)

// SetScore is the games won by slot A and slot B in one set.
type SetScore struct {
	A int `json:"a"`
	B int `json:"b"`
}

type Score struct {
	Sets     []SetScore `json:"sets,omitempty"`
	Final    string     `json:"final"`
	Retired  bool       `json:"retired,omitempty"`
	Walkover bool       `json:"walkover,omitempty"`
}

var (
	ErrScoreRequired      = errors.New("score must contain at least one set")
	ErrScoreRetiredAndWO  = errors.New("score cannot be both retired and walkover")
	ErrScoreNegativeGames = errors.New("set games cannot be negative")
	ErrScoreTiedSet       = errors.New("only the last set of a retired match may be level")
)

func (s *Score) Validate() error {
	if s == nil {
		return ErrScoreRequired
	}
	if s.Retired && s.Walkover {
		return ErrScoreRetiredAndWO
	}
	if s.Walkover {
		return nil
	}
	if len(s.Sets) == 0 {
		return ErrScoreRequired
	}
	for i, set := range s.Sets {
		if set.A < 0 || set.B < 0 {
			return fmt.Errorf("%w: set %d", ErrScoreNegativeGames, i+1)
		}
		if set.A == set.B && !(s.Retired && i == len(s.Sets)-1) {
			return fmt.Errorf("%w: set %d", ErrScoreTiedSet, i+1)
		}
	}
	return nil
}

// SetsWon returns the sets taken by slot A and slot B.
func (s *Score) SetsWon() (a, b int) {
	if s == nil {
		return 0, 0
	}
	for _, set := range s.Sets {
		switch {
		case set.A > set.B:
			a++
		case set.B > set.A:
			b++
		}
	}
	return a, b
}

// Games returns the total games won by slot A and slot B.
func (s *Score) Games() (a, b int) {
	if s == nil {
		return 0, 0
	}
	for _, set := range s.Sets {
		a += set.A
		b += set.B
	}
	return a, b
}

// Leader returns the slot that won more sets, or "" when level.
func (s *Score) Leader() SlotPosition {
	a, b := s.SetsWon()
	switch {
	case a > b:
		return SlotA
	case b > a:
		return SlotB
	}
	return ""
}

// Swapped returns the score from slot B's point of view.
func (s *Score) Swapped() *Score {
	if s == nil {
		return nil
	}
	out := *s
	out.Sets = make([]SetScore, len(s.Sets))
	for i, set := range s.Sets {
		out.Sets[i] = SetScore{A: set.B, B: set.A}
	}
	out.Final = out.Format()
	return &out
}

// Format renders the set-by-set score, e.g. "6-4 3-6 7-5".
func (s *Score) Format() string {
	if s == nil {
		return ""
	}
	if s.Walkover {
		return "W/O"
	}
	parts := make([]string, 0, len(s.Sets))
	for _, set := range s.Sets {
		parts = append(parts, fmt.Sprintf("%d-%d", set.A, set.B))
	}
	final := strings.Join(parts, " ")
	if s.Retired {
		final += " ret."
	}
	return final
}
