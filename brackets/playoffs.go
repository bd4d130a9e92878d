package brackets

import (
	"fmt"
	"time"

	"github.com/Dosada05/competition-engine/models"
)

const (
	PlayoffSemifinal1ID  = "PO-SF1"
	PlayoffSemifinal2ID  = "PO-SF2"
	PlayoffFinalID       = "PO-F"
	PlayoffConsolationID = "PO-C"

	maxQualifiers = 4
)

// PlayoffResult is the secondary bracket built from a final league table.
type PlayoffResult struct {
	Matches     []*models.Match
	Info        models.PlayoffInfo
	TotalRounds int
}

type PlayoffGenerator struct{}

func NewPlayoffGenerator() *PlayoffGenerator {
	return &PlayoffGenerator{}
}

// Qualifiers returns the participant ids that reach the playoffs: the top
// ranked rows among those who completed at least one match, at most four.
func Qualifiers(ranked []models.Standing) []string {
	ids := make([]string, 0, maxQualifiers)
	for _, row := range ranked {
		if row.Played < 1 {
			continue
		}
		ids = append(ids, row.ParticipantID)
		if len(ids) == maxQualifiers {
			break
		}
	}
	return ids
}

// Generate builds the playoff matches from ranked standings. Two or three
// qualifiers play a single final; four play semifinals (1v4, 2v3) feeding a
// final with the winners and a consolation match with the losers.
func (g *PlayoffGenerator) Generate(c *models.Competition, ranked []models.Standing, now time.Time) (*PlayoffResult, error) {
	ids := Qualifiers(ranked)
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughQualifiers, len(ids))
	}
	seeds := make([]*models.Participant, len(ids))
	for i, id := range ids {
		p, ok := c.Participant(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownQualifier, id)
		}
		seeds[i] = participantRef(*p)
	}

	base := c.RegularRounds
	if base == 0 {
		base = c.TotalRounds
	}
	newMatch := func(id string, round, order int, typ models.MatchType) *models.Match {
		return &models.Match{
			ID:            id,
			CompetitionID: c.ID,
			Round:         round,
			Order:         order,
			Type:          typ,
			Status:        models.MatchStatusPending,
			CreatedAt:     now,
		}
	}

	res := &PlayoffResult{
		Info: models.PlayoffInfo{QualifiedIDs: ids, GeneratedAt: now},
	}

	if len(seeds) < maxQualifiers {
		final := newMatch(PlayoffFinalID, base+1, 1, models.MatchTypeFinal)
		final.SlotA.Participant = seeds[0]
		final.SlotB.Participant = seeds[1]
		final.Status = models.MatchStatusScheduled
		res.Matches = []*models.Match{final}
		res.Info.Shape = models.PlayoffShapeFinal
		res.TotalRounds = base + 1
	} else {
		sf1 := newMatch(PlayoffSemifinal1ID, base+1, 1, models.MatchTypeSemifinal)
		sf1.SlotA.Participant, sf1.SlotB.Participant = seeds[0], seeds[3]
		sf1.Status = models.MatchStatusScheduled
		sf1.WinnerTo = &models.Forward{MatchID: PlayoffFinalID, Slot: models.SlotA}
		sf1.LoserTo = &models.Forward{MatchID: PlayoffConsolationID, Slot: models.SlotA}

		sf2 := newMatch(PlayoffSemifinal2ID, base+1, 2, models.MatchTypeSemifinal)
		sf2.SlotA.Participant, sf2.SlotB.Participant = seeds[1], seeds[2]
		sf2.Status = models.MatchStatusScheduled
		sf2.WinnerTo = &models.Forward{MatchID: PlayoffFinalID, Slot: models.SlotB}
		sf2.LoserTo = &models.Forward{MatchID: PlayoffConsolationID, Slot: models.SlotB}

		final := newMatch(PlayoffFinalID, base+2, 1, models.MatchTypeFinal)
		final.SlotA.Link = &models.SlotLink{Kind: models.LinkWinnerOf, MatchID: PlayoffSemifinal1ID}
		final.SlotB.Link = &models.SlotLink{Kind: models.LinkWinnerOf, MatchID: PlayoffSemifinal2ID}

		consolation := newMatch(PlayoffConsolationID, base+2, 2, models.MatchTypeConsolation)
		consolation.SlotA.Link = &models.SlotLink{Kind: models.LinkLoserOf, MatchID: PlayoffSemifinal1ID}
		consolation.SlotB.Link = &models.SlotLink{Kind: models.LinkLoserOf, MatchID: PlayoffSemifinal2ID}

		res.Matches = []*models.Match{sf1, sf2, final, consolation}
		res.Info.Shape = models.PlayoffShapeFour
		res.TotalRounds = base + 2
	}
	for _, m := range res.Matches {
		res.Info.MatchIDs = append(res.Info.MatchIDs, m.ID)
	}
	return res, nil
}
