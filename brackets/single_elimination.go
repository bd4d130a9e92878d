package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/competition-engine/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// BracketMatchID names the match at the given round and order, e.g. "R2M1".
func BracketMatchID(round, order int) string {
	return fmt.Sprintf("R%dM%d", round, order)
}

// GenerateBracket builds the full elimination graph. Seeded entries come
// first by seed, unseeded entries follow in registration order. Missing
// opponents become byes for the top seeds; a bye is stored as an already
// completed match so the graph always holds size-1 matches.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Result, error) {
	n := len(params.Participants)
	if n < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughParticipants, n)
	}
	ordered := SeedOrder(params.Participants)

	size, numRounds := 1, 0
	for size < n {
		size <<= 1
		numRounds++
	}
	line := SeedLine(size)
	competitionID := ""
	if params.Competition != nil {
		competitionID = params.Competition.ID
	}

	rounds := make([][]*models.Match, numRounds+1)
	for r := 1; r <= numRounds; r++ {
		count := size >> r
		rounds[r] = make([]*models.Match, count)
		for i := 0; i < count; i++ {
			m := &models.Match{
				ID:            BracketMatchID(r, i+1),
				CompetitionID: competitionID,
				Round:         r,
				Order:         i + 1,
				Type:          models.MatchTypeBracket,
				Status:        models.MatchStatusPending,
				CreatedAt:     params.Now,
			}
			if r < numRounds {
				slot := models.SlotA
				if i%2 == 1 {
					slot = models.SlotB
				}
				m.WinnerTo = &models.Forward{MatchID: BracketMatchID(r+1, i/2+1), Slot: slot}
			} else {
				m.Type = models.MatchTypeFinal
			}
			if r > 1 {
				m.SlotA.Link = &models.SlotLink{Kind: models.LinkWinnerOf, MatchID: BracketMatchID(r-1, 2*i+1)}
				m.SlotB.Link = &models.SlotLink{Kind: models.LinkWinnerOf, MatchID: BracketMatchID(r-1, 2*i+2)}
			}
			rounds[r][i] = m
		}
	}

	for i, m := range rounds[1] {
		seedA, seedB := line[2*i], line[2*i+1]
		m.SlotA.Participant = participantRef(ordered[seedA-1])
		if seedB <= n {
			m.SlotB.Participant = participantRef(ordered[seedB-1])
			m.Status = models.MatchStatusScheduled
			continue
		}
		// bye: the top seed walks through without a playable match
		winner := m.SlotA.Participant.ID
		now := params.Now
		m.IsBye = true
		m.Status = models.MatchStatusCompleted
		m.WinnerID = &winner
		m.CompletedAt = &now
		if m.WinnerTo != nil {
			next := rounds[2][i/2]
			slot := next.Slot(m.WinnerTo.Slot)
			slot.Participant = participantRef(ordered[seedA-1])
			slot.Link = nil
		}
	}
	if numRounds >= 2 {
		for _, m := range rounds[2] {
			if m.BothResolved() {
				m.Status = models.MatchStatusScheduled
			}
		}
	}

	matches := make([]*models.Match, 0, size-1)
	for r := 1; r <= numRounds; r++ {
		matches = append(matches, rounds[r]...)
	}
	return &Result{Matches: matches, TotalRounds: numRounds}, nil
}

// SeedOrder returns participants ordered for seeding: seeded entries by seed
// ascending, then unseeded entries in their given (registration) order.
func SeedOrder(participants []models.Participant) []models.Participant {
	out := make([]models.Participant, len(participants))
	copy(out, participants)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Seed, out[j].Seed
		switch {
		case si > 0 && sj > 0:
			return si < sj
		case si > 0:
			return true
		default:
			return false
		}
	})
	return out
}

// SeedLine returns bracket seeds in draw order so that round-one pairs are
// (1, size), (size/2, size/2+1), ... and the top two seeds can only meet in
// the final.
func SeedLine(size int) []int {
	line := []int{1}
	for len(line) < size {
		next := make([]int, 0, len(line)*2)
		total := len(line)*2 + 1
		for _, s := range line {
			next = append(next, s, total-s)
		}
		line = next
	}
	return line
}
