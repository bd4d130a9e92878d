package models

import "time"

type EventType string

const (
	EventParticipantRegistered EventType = "PARTICIPANT_REGISTERED"
	EventSeedsAssigned         EventType = "SEEDS_ASSIGNED"
	EventStatusChanged         EventType = "STATUS_CHANGED"
	EventBracketGenerated      EventType = "BRACKET_GENERATED"
	EventFixturesGenerated     EventType = "FIXTURES_GENERATED"
	EventMatchStarted          EventType = "MATCH_STARTED"
	EventMatchCompleted        EventType = "MATCH_COMPLETED"
	EventStandingsUpdated      EventType = "STANDINGS_UPDATED"
	EventPlayoffsGenerated     EventType = "PLAYOFFS_GENERATED"
	EventCompetitionCompleted  EventType = "COMPETITION_COMPLETED"
)

// Event is emitted after a committed state change, for listeners of a competition.
type Event struct {
	Type          EventType `json:"type"`
	CompetitionID string    `json:"competition_id"`
	MatchID       string    `json:"match_id,omitempty"`
	Payload       any       `json:"payload,omitempty"`
	At            time.Time `json:"at"`
}
