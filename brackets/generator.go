package brackets

import (
	"context"
	"errors"
	"time"

	"github.com/Dosada05/competition-engine/models"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants (minimum 2)")
	ErrNotEnoughQualifiers   = errors.New("not enough qualifiers for playoffs (minimum 2)")
	ErrUnknownQualifier      = errors.New("qualifier is not a registered participant")
)

type GenerateBracketParams struct {
	Competition  *models.Competition
	Participants []models.Participant
	Now          time.Time
}

// Result is the match graph (or fixture set) a generator produced.
type Result struct {
	Matches     []*models.Match
	TotalRounds int
	Standings   []models.Standing
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Result, error)

	GetName() string
}

// ForKind returns the generator that seeds a competition of the given kind.
func ForKind(kind models.CompetitionKind) (BracketGenerator, bool) {
	switch kind {
	case models.KindBracket:
		return NewSingleEliminationGenerator(), true
	case models.KindLeague:
		return NewRoundRobinGenerator(), true
	}
	return nil, false
}

func participantRef(p models.Participant) *models.Participant {
	cp := p
	return &cp
}
