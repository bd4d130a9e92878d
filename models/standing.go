package models

type StreakType string

const (
	StreakNone StreakType = "none"
	StreakWin  StreakType = "win"
	StreakLoss StreakType = "loss"
)

type Streak struct {
	Type  StreakType `json:"type"`
	Count int        `json:"count"`
}

// Standing is one participant's row in a league table.
type Standing struct {
	ParticipantID string `json:"participant_id"`
	Played        int    `json:"played"`
	Won           int    `json:"won"`
	Lost          int    `json:"lost"`
	Points        int    `json:"points"`
	GamesWon      int    `json:"games_won"`
	GamesLost     int    `json:"games_lost"`
	GameDiff      int    `json:"game_diff"`
	SetsWon       int    `json:"sets_won"`
	SetsLost      int    `json:"sets_lost"`
	SetDiff       int    `json:"set_diff"`
	Streak        Streak `json:"streak"`
	Position      int    `json:"position"`
}

func NewStanding(participantID string, position int) Standing {
	return Standing{
		ParticipantID: participantID,
		Streak:        Streak{Type: StreakNone},
		Position:      position,
	}
}
