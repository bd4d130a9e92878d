package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/standings"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

func FixtureID(round, order int) string {
	return fmt.Sprintf("RR%dM%d", round, order)
}

// GenerateBracket creates every pairing exactly once. Rounds come from the
// circle method: one entry stays fixed while the rest rotate, and an odd
// field gets a phantom entry whose opponent sits the round out.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Result, error) {
	participants := params.Participants
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughParticipants, len(participants))
	}
	competitionID := ""
	if params.Competition != nil {
		competitionID = params.Competition.ID
	}

	working := make([]*models.Participant, 0, len(participants)+1)
	for i := range participants {
		working = append(working, &participants[i])
	}
	if len(working)%2 == 1 {
		working = append(working, nil)
	}

	totalRounds := len(working) - 1
	matches := make([]*models.Match, 0, len(participants)*(len(participants)-1)/2)
	for round := 1; round <= totalRounds; round++ {
		order := 0
		for i := 0; i < len(working)/2; i++ {
			home := working[i]
			away := working[len(working)-1-i]
			if home == nil || away == nil {
				continue
			}
			if i == 0 && round%2 == 0 {
				home, away = away, home
			}
			order++
			matches = append(matches, &models.Match{
				ID:            FixtureID(round, order),
				CompetitionID: competitionID,
				Round:         round,
				Order:         order,
				Type:          models.MatchTypeRoundRobin,
				SlotA:         models.Slot{Participant: participantRef(*home)},
				SlotB:         models.Slot{Participant: participantRef(*away)},
				Status:        models.MatchStatusScheduled,
				CreatedAt:     params.Now,
			})
		}
		rotate(working)
	}

	return &Result{
		Matches:     matches,
		TotalRounds: totalRounds,
		Standings:   standings.New(participants),
	}, nil
}

// rotate keeps the first entry fixed and moves the last entry to index 1.
func rotate(entries []*models.Participant) {
	if len(entries) <= 2 {
		return
	}
	last := entries[len(entries)-1]
	copy(entries[2:], entries[1:len(entries)-1])
	entries[1] = last
}
