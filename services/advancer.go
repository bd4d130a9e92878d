package services

import (
	"time"

	"github.com/Dosada05/competition-engine/models"
)

// advancement is what recording one result changed in the match graph.
type advancement struct {
	winner     *models.Participant
	loser      *models.Participant
	winnerSlot models.SlotPosition
	touched    []*models.Match
	nextMatch  *string
}

// advanceMatch completes m and moves its winner and loser into the slots
// their forward links point at. index holds every match of the competition
// and its entries are updated in place.
func advanceMatch(index map[string]*models.Match, m *models.Match, winnerID string, score *models.Score, now time.Time) (*advancement, error) {
	if m.IsCompleted() {
		return nil, failedPrecondition(ErrMatchAlreadyCompleted, "%s", m.ID)
	}
	if !m.BothResolved() || m.Status == models.MatchStatusPending {
		return nil, failedPrecondition(ErrMatchNotReady, "%s", m.ID)
	}

	adv := &advancement{}
	switch winnerID {
	case m.SlotA.ParticipantID():
		adv.winner, adv.loser, adv.winnerSlot = m.SlotA.Participant, m.SlotB.Participant, models.SlotA
	case m.SlotB.ParticipantID():
		adv.winner, adv.loser, adv.winnerSlot = m.SlotB.Participant, m.SlotA.Participant, models.SlotB
	default:
		return nil, internal(ErrWinnerNotInMatch, "%s is not in match %s", winnerID, m.ID)
	}
	if !score.Walkover && !score.Retired && score.Leader() != adv.winnerSlot {
		return nil, invalidArgument(ErrScoreWinnerMismatch, "%s won by score %s", winnerID, score.Format())
	}

	recorded := *score
	recorded.Final = score.Format()
	winner, loser := adv.winner.ID, adv.loser.ID
	m.Status = models.MatchStatusCompleted
	m.Score = &recorded
	m.WinnerID = &winner
	m.LoserID = &loser
	m.CompletedAt = &now

	if m.WinnerTo != nil {
		next, err := forward(index, m, *m.WinnerTo, adv.winner)
		if err != nil {
			return nil, err
		}
		adv.touched = append(adv.touched, next)
		adv.nextMatch = &next.ID
	}
	if m.LoserTo != nil {
		next, err := forward(index, m, *m.LoserTo, adv.loser)
		if err != nil {
			return nil, err
		}
		adv.touched = append(adv.touched, next)
	}
	return adv, nil
}

// forward writes p into the successor's slot and schedules the successor
// once both of its slots are known.
func forward(index map[string]*models.Match, from *models.Match, to models.Forward, p *models.Participant) (*models.Match, error) {
	next, ok := index[to.MatchID]
	if !ok {
		return nil, internal(ErrCorruptMatchGraph, "%s forwards to missing match %s", from.ID, to.MatchID)
	}
	if next.IsCompleted() {
		return nil, internal(ErrCorruptMatchGraph, "%s forwards into completed match %s", from.ID, next.ID)
	}
	slot := next.Slot(to.Slot)
	if slot.Link != nil && slot.Link.MatchID != from.ID {
		return nil, internal(ErrCorruptMatchGraph, "slot %s of %s waits for %s, not %s", to.Slot, next.ID, slot.Link.MatchID, from.ID)
	}
	if slot.Participant != nil && slot.Participant.ID != p.ID {
		return nil, internal(ErrCorruptMatchGraph, "slot %s of %s is already taken", to.Slot, next.ID)
	}
	entry := *p
	slot.Participant = &entry
	slot.Link = nil
	if next.BothResolved() && next.Status == models.MatchStatusPending {
		next.Status = models.MatchStatusScheduled
	}
	return next, nil
}

// currentRound is the lowest round that still has an open match.
func currentRound(matches []*models.Match, fallback int) int {
	round := 0
	for _, m := range matches {
		if !m.IsCompleted() && (round == 0 || m.Round < round) {
			round = m.Round
		}
	}
	if round == 0 {
		return fallback
	}
	return round
}

func allCompleted(matches []*models.Match) bool {
	for _, m := range matches {
		if !m.IsCompleted() {
			return false
		}
	}
	return len(matches) > 0
}

// terminalResult returns the completed match that decides the competition.
func terminalResult(matches []*models.Match) *models.Match {
	for _, m := range matches {
		if m.IsTerminal() && m.IsCompleted() && m.WinnerID != nil && m.LoserID != nil {
			return m
		}
	}
	return nil
}

func finish(c *models.Competition, championID, runnerUpID string, now time.Time) {
	c.ChampionID = &championID
	c.RunnerUpID = &runnerUpID
	c.Status = models.StatusCompleted
	c.CompletedAt = &now
}
