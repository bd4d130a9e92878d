package models

import (
	"fmt"
	"strings"
	"time"
)

type GameType string

const (
	GameTypeSingles GameType = "singles"
	GameTypeDoubles GameType = "doubles"
	GameTypeMixed   GameType = "mixed"
)

func (g GameType) Valid() bool {
	switch g {
	case GameTypeSingles, GameTypeDoubles, GameTypeMixed:
		return true
	}
	return false
}

const (
	ScopeGlobal     = "global"
	clubScopePrefix = "club:"

	DefaultRating = 1200
)

// ClubScope returns the rating scope local to a club.
func ClubScope(clubID string) string { return clubScopePrefix + clubID }

func ValidScope(scope string) bool {
	return scope == ScopeGlobal || (strings.HasPrefix(scope, clubScopePrefix) && len(scope) > len(clubScopePrefix))
}

type RatingKey struct {
	PlayerID string   `json:"player_id"`
	Scope    string   `json:"scope"`
	GameType GameType `json:"game_type"`
}

// DocID is the storage key for the profile, used for direct lookup.
func (k RatingKey) DocID() string {
	return fmt.Sprintf("%s|%s|%s", k.PlayerID, k.Scope, k.GameType)
}

type RatingProfile struct {
	PlayerID      string     `json:"player_id"`
	Scope         string     `json:"scope"`
	GameType      GameType   `json:"game_type"`
	Rating        int        `json:"rating"`
	MatchesPlayed int        `json:"matches_played"`
	LastUpdated   *time.Time `json:"last_updated,omitempty"`
}

func (p RatingProfile) Key() RatingKey {
	return RatingKey{PlayerID: p.PlayerID, Scope: p.Scope, GameType: p.GameType}
}

// NewRatingProfile returns the profile a player starts from in a scope.
func NewRatingProfile(key RatingKey, initial int) RatingProfile {
	if initial <= 0 {
		initial = DefaultRating
	}
	return RatingProfile{
		PlayerID: key.PlayerID,
		Scope:    key.Scope,
		GameType: key.GameType,
		Rating:   initial,
	}
}

// PlayerStats is a player's career record across competitions. It is only
// ever changed through the store's increment and append primitives.
type PlayerStats struct {
	PlayerID      string   `json:"player_id"`
	MatchesPlayed int      `json:"matches_played"`
	Wins          int      `json:"wins"`
	Losses        int      `json:"losses"`
	Competitions  []string `json:"competitions"`
}
