package models

import (
	"errors"
	"fmt"
	"time"
)

type ParticipantKind string

const (
	ParticipantIndividual ParticipantKind = "individual"
	ParticipantTeam       ParticipantKind = "team"
)

// Participant is an entry in a competition: one player, or a partner pair.
type Participant struct {
	ID           string          `json:"id"`
	Kind         ParticipantKind `json:"kind"`
	PlayerID     string          `json:"player_id"`
	PartnerID    *string         `json:"partner_id,omitempty"`
	TeamID       *string         `json:"team_id,omitempty"` // persistent team identifier, teams only
	DisplayName  string          `json:"display_name,omitempty"`
	Seed         int             `json:"seed,omitempty"` // 0 means unseeded
	RegisteredAt time.Time       `json:"registered_at"`
}

// PlayerIDs returns the players represented by the participant.
func (p Participant) PlayerIDs() []string {
	if p.Kind == ParticipantTeam && p.PartnerID != nil {
		return []string{p.PlayerID, *p.PartnerID}
	}
	return []string{p.PlayerID}
}

// IsPartnerOf reports whether both entries belong to the same persistent team.
func (p Participant) IsPartnerOf(other Participant) bool {
	if p.ID == other.ID {
		return false
	}
	if p.TeamID != nil && other.TeamID != nil && *p.TeamID == *other.TeamID {
		return true
	}
	if p.PartnerID != nil && *p.PartnerID == other.PlayerID {
		return true
	}
	return other.PartnerID != nil && *other.PartnerID == p.PlayerID
}

func (p Participant) Validate() error {
	if p.ID == "" {
		return errors.New("participant id is required")
	}
	if p.PlayerID == "" {
		return fmt.Errorf("participant %s: player id is required", p.ID)
	}
	if p.Seed < 0 {
		return fmt.Errorf("participant %s: seed must not be negative", p.ID)
	}
	switch p.Kind {
	case ParticipantIndividual:
		if p.PartnerID != nil || p.TeamID != nil {
			return fmt.Errorf("participant %s: individual entries cannot carry a partner or team", p.ID)
		}
	case ParticipantTeam:
		if p.PartnerID == nil || *p.PartnerID == "" {
			return fmt.Errorf("participant %s: team entries need a partner", p.ID)
		}
		if *p.PartnerID == p.PlayerID {
			return fmt.Errorf("participant %s: a player cannot partner themselves", p.ID)
		}
	default:
		return fmt.Errorf("participant %s: unknown kind %q", p.ID, p.Kind)
	}
	return nil
}

func FindParticipant(list []Participant, id string) (*Participant, bool) {
	for i := range list {
		if list[i].ID == id {
			return &list[i], true
		}
	}
	return nil, false
}
