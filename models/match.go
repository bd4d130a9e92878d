package models

import "time"

type MatchType string

const (
	MatchTypeBracket     MatchType = "bracket"
	MatchTypeRoundRobin  MatchType = "round_robin"
	MatchTypeSemifinal   MatchType = "semifinal"
	MatchTypeFinal       MatchType = "final"
	MatchTypeConsolation MatchType = "consolation"
)

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

var matchStatusOrder = map[MatchStatus]int{
	MatchStatusPending:    0,
	MatchStatusScheduled:  1,
	MatchStatusInProgress: 2,
	MatchStatusCompleted:  3,
}

// CanTransition reports whether a match may move from one status to the next.
// Statuses only move forward and completed is terminal.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	cur, ok := matchStatusOrder[s]
	if !ok {
		return false
	}
	nxt, ok := matchStatusOrder[next]
	if !ok {
		return false
	}
	return nxt > cur
}

type LinkKind string

const (
	LinkWinnerOf LinkKind = "winner_of"
	LinkLoserOf  LinkKind = "loser_of"
)

type SlotPosition string

const (
	SlotA SlotPosition = "A"
	SlotB SlotPosition = "B"
)

// SlotLink names the match whose winner or loser will fill a slot.
type SlotLink struct {
	Kind    LinkKind `json:"kind"`
	MatchID string   `json:"match_id"`
}

// Slot holds either a resolved participant or a forward link. Both nil
// means an empty slot (a bye).
type Slot struct {
	Participant *Participant `json:"participant,omitempty"`
	Link        *SlotLink    `json:"link,omitempty"`
}

func (s Slot) Resolved() bool { return s.Participant != nil }

func (s Slot) ParticipantID() string {
	if s.Participant == nil {
		return ""
	}
	return s.Participant.ID
}

// Forward names the match and slot that receive this match's winner or loser.
type Forward struct {
	MatchID string       `json:"match_id"`
	Slot    SlotPosition `json:"slot"`
}

type Match struct {
	ID            string      `json:"id"`
	CompetitionID string      `json:"competition_id"`
	Round         int         `json:"round"`
	Order         int         `json:"order"`
	Type          MatchType   `json:"type"`
	SlotA         Slot        `json:"slot_a"`
	SlotB         Slot        `json:"slot_b"`
	Status        MatchStatus `json:"status"`
	Score         *Score      `json:"score,omitempty"`
	WinnerID      *string     `json:"winner_id,omitempty"`
	LoserID       *string     `json:"loser_id,omitempty"`
	WinnerTo      *Forward    `json:"winner_to,omitempty"`
	LoserTo       *Forward    `json:"loser_to,omitempty"`
	IsBye         bool        `json:"is_bye,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	StartedAt     *time.Time  `json:"started_at,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

func (m *Match) Slot(pos SlotPosition) *Slot {
	if pos == SlotB {
		return &m.SlotB
	}
	return &m.SlotA
}

// BothResolved reports whether both slots carry a concrete participant.
func (m *Match) BothResolved() bool {
	return m.SlotA.Resolved() && m.SlotB.Resolved()
}

// HasParticipant reports whether id sits in one of the two resolved slots.
func (m *Match) HasParticipant(id string) bool {
	return id != "" && (m.SlotA.ParticipantID() == id || m.SlotB.ParticipantID() == id)
}

// Opponent returns the resolved participant opposite id.
func (m *Match) Opponent(id string) *Participant {
	switch id {
	case m.SlotA.ParticipantID():
		return m.SlotB.Participant
	case m.SlotB.ParticipantID():
		return m.SlotA.Participant
	}
	return nil
}

// IsPlayoff reports whether the match belongs to a league's playoff bracket.
func (m *Match) IsPlayoff() bool {
	switch m.Type {
	case MatchTypeSemifinal, MatchTypeFinal, MatchTypeConsolation:
		return true
	}
	return false
}

// IsTerminal reports whether resolving the match decides the competition.
func (m *Match) IsTerminal() bool {
	return m.WinnerTo == nil && m.Type != MatchTypeConsolation && m.Type != MatchTypeRoundRobin
}

func (m *Match) IsCompleted() bool { return m.Status == MatchStatusCompleted }
