package models

import "time"

type CompetitionKind string

const (
	KindBracket CompetitionKind = "bracket"
	KindLeague  CompetitionKind = "league"
)

// CompetitionStatus is the lifecycle stage of a competition.
type CompetitionStatus string

const (
	StatusDraft        CompetitionStatus = "draft"
	StatusRegistration CompetitionStatus = "registration"
	StatusPreparing    CompetitionStatus = "preparing"
	StatusOngoing      CompetitionStatus = "ongoing"
	StatusPlayoffs     CompetitionStatus = "playoffs"
	StatusCompleted    CompetitionStatus = "completed"
	StatusCanceled     CompetitionStatus = "canceled"
)

var allowedTransitions = map[CompetitionStatus][]CompetitionStatus{
	StatusDraft:        {StatusRegistration, StatusPreparing, StatusOngoing, StatusCanceled},
	StatusRegistration: {StatusPreparing, StatusOngoing, StatusCanceled},
	StatusPreparing:    {StatusOngoing, StatusCanceled},
	StatusOngoing:      {StatusPlayoffs, StatusCompleted, StatusCanceled},
	StatusPlayoffs:     {StatusCompleted, StatusCanceled},
	StatusCompleted:    {},
	StatusCanceled:     {},
}

// CanTransition reports whether the lifecycle allows moving to next.
func (s CompetitionStatus) CanTransition(next CompetitionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s CompetitionStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// AcceptsEntries reports whether participants and seeds may still change.
func (s CompetitionStatus) AcceptsEntries() bool {
	return s == StatusDraft || s == StatusRegistration || s == StatusPreparing
}

type PlayoffMode string

const (
	PlayoffManual PlayoffMode = "manual"
	PlayoffAuto   PlayoffMode = "auto"
	PlayoffNone   PlayoffMode = "none"
)

func (m PlayoffMode) Valid() bool {
	switch m {
	case PlayoffManual, PlayoffAuto, PlayoffNone:
		return true
	}
	return false
}

// KFactorTier applies K to players with fewer than BelowMatches rated
// matches. A tier with BelowMatches 0 is the catch-all.
type KFactorTier struct {
	BelowMatches int `json:"below_matches"`
	K            int `json:"k"`
}

type CompetitionSettings struct {
	PointsForWin  int           `json:"points_for_win"`
	PointsForLoss int           `json:"points_for_loss"`
	PlayoffMode   PlayoffMode   `json:"playoff_mode"`
	StrictRounds  bool          `json:"strict_rounds,omitempty"`
	KFactorTiers  []KFactorTier `json:"k_factor_tiers,omitempty"`
	InitialRating int           `json:"initial_rating,omitempty"`
}

type PlayoffShape string

const (
	PlayoffShapeFinal PlayoffShape = "final"
	PlayoffShapeFour  PlayoffShape = "semifinals"
)

type PlayoffInfo struct {
	Shape        PlayoffShape `json:"shape"`
	QualifiedIDs []string     `json:"qualified_ids"`
	MatchIDs     []string     `json:"match_ids"`
	GeneratedAt  time.Time    `json:"generated_at"`
}

// Competition is either a single-elimination bracket or a round-robin league.
type Competition struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Kind          CompetitionKind     `json:"kind"`
	Status        CompetitionStatus   `json:"status"`
	ClubID        *string             `json:"club_id,omitempty"`
	GameType      GameType            `json:"game_type"`
	Settings      CompetitionSettings `json:"settings"`
	OrganizerID   string              `json:"organizer_id,omitempty"`
	Participants  []Participant       `json:"participants"`
	TotalRounds   int                 `json:"total_rounds"`
	RegularRounds int                 `json:"regular_rounds,omitempty"`
	CurrentRound  int                 `json:"current_round"`
	Standings     []Standing          `json:"standings,omitempty"`
	Playoff       *PlayoffInfo        `json:"playoff,omitempty"`
	ChampionID    *string             `json:"champion_id,omitempty"`
	RunnerUpID    *string             `json:"runner_up_id,omitempty"`
	ThirdPlaceID  *string             `json:"third_place_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     *time.Time          `json:"updated_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}

// RatingScope is the scope whose rating profiles this competition's matches move.
func (c *Competition) RatingScope() string {
	if c.ClubID != nil && *c.ClubID != "" {
		return ClubScope(*c.ClubID)
	}
	return ScopeGlobal
}

func (c *Competition) IsLeague() bool  { return c.Kind == KindLeague }
func (c *Competition) IsBracket() bool { return c.Kind == KindBracket }

func (c *Competition) Participant(id string) (*Participant, bool) {
	return FindParticipant(c.Participants, id)
}
