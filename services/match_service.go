package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/rating"
	"github.com/Dosada05/competition-engine/repositories"
	"github.com/Dosada05/competition-engine/standings"
)

type SubmitResultInput struct {
	CompetitionID string        `json:"competition_id"`
	MatchID       string        `json:"match_id"`
	WinnerID      string        `json:"winner_id"`
	Score         *models.Score `json:"score"`
}

type SubmitResultOutput struct {
	MatchID              string          `json:"match_id"`
	NextMatchID          *string         `json:"next_match_id,omitempty"`
	CompetitionCompleted bool            `json:"competition_completed"`
	PlayoffsGenerated    bool            `json:"playoffs_generated,omitempty"`
	ChampionID           *string         `json:"champion_id,omitempty"`
	RatingChanges        []rating.Change `json:"rating_changes,omitempty"`
	Warnings             []string        `json:"warnings,omitempty"`
}

type CompletionResult struct {
	ChampionID   string  `json:"champion_id"`
	RunnerUpID   string  `json:"runner_up_id"`
	ThirdPlaceID *string `json:"third_place_id,omitempty"`
}

// StartMatch marks a scheduled match as in progress.
func (e *Engine) StartMatch(ctx context.Context, competitionID, matchID string) (*models.Match, error) {
	var started *models.Match
	warnings, err := e.coord.Run(ctx, "startMatch", func(ctx context.Context, rs *repositories.ReadSet) (*repositories.WriteSet, error) {
		c, err := e.loadCompetition(ctx, rs, competitionID)
		if err != nil {
			return nil, err
		}
		m, err := e.loadMatch(ctx, rs, competitionID, matchID)
		if err != nil {
			return nil, err
		}
		if _, err := requireStaffOrPlayer(ctx, matchPlayerIDs(m)); err != nil {
			return nil, err
		}
		if c.Status != models.StatusOngoing && c.Status != models.StatusPlayoffs {
			return nil, failedPrecondition(ErrCompetitionNotRunning, "status %s", c.Status)
		}
		switch m.Status {
		case models.MatchStatusCompleted:
			return nil, failedPrecondition(ErrMatchAlreadyCompleted, "%s", m.ID)
		case models.MatchStatusInProgress:
			return nil, failedPrecondition(ErrMatchAlreadyStarted, "%s", m.ID)
		case models.MatchStatusPending:
			return nil, failedPrecondition(ErrMatchNotReady, "%s", m.ID)
		}

		ws := rs.Close()
		now := e.clock()
		m.Status = models.MatchStatusInProgress
		m.StartedAt = &now
		ws.PutMatch(m, "started_at")
		started = m
		return ws, nil
	}, func(ctx context.Context) error {
		return e.notifier.Notify(ctx, e.event(models.EventMatchStarted, competitionID, matchID, nil))
	})
	if err != nil {
		return nil, err
	}
	e.logWarnings(ctx, "startMatch", warnings)
	return started, nil
}

// SubmitResult records a match result and everything that follows from it
// in one transaction: successor slots, league standings, rating profiles,
// career counters, and competition progression.
func (e *Engine) SubmitResult(ctx context.Context, in SubmitResultInput) (*SubmitResultOutput, error) {
	if in.CompetitionID == "" || in.MatchID == "" || in.WinnerID == "" {
		return nil, invalidArgument(ErrValidationFailed, "competition, match and winner ids are required")
	}
	if err := in.Score.Validate(); err != nil {
		return nil, invalidArgument(ErrScoreInvalid, "%v", err)
	}

	var (
		out      SubmitResultOutput
		snapshot *models.Competition
		all      []*models.Match
		events   []models.Event
	)
	warnings, err := e.coord.Run(ctx, "submitResult", func(ctx context.Context, rs *repositories.ReadSet) (*repositories.WriteSet, error) {
		out = SubmitResultOutput{MatchID: in.MatchID}
		snapshot, all, events = nil, nil, nil

		c, err := e.loadCompetition(ctx, rs, in.CompetitionID)
		if err != nil {
			return nil, err
		}
		m, err := e.loadMatch(ctx, rs, c.ID, in.MatchID)
		if err != nil {
			return nil, err
		}
		if _, err := requireStaffOrPlayer(ctx, matchPlayerIDs(m)); err != nil {
			return nil, err
		}
		if m.IsCompleted() {
			return nil, failedPrecondition(ErrMatchAlreadyCompleted, "%s", m.ID)
		}
		switch {
		case c.Status == models.StatusOngoing, c.Status == models.StatusPlayoffs:
		case c.Status == models.StatusCompleted && m.Type == models.MatchTypeConsolation:
		default:
			return nil, failedPrecondition(ErrCompetitionNotRunning, "status %s", c.Status)
		}
		if c.Settings.StrictRounds && m.Round > c.CurrentRound {
			return nil, failedPrecondition(ErrRoundNotResolved, "match %s is in round %d, current round is %d", m.ID, m.Round, c.CurrentRound)
		}

		matches, err := rs.Matches(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		index := make(map[string]*models.Match, len(matches))
		for _, listed := range matches {
			index[listed.ID] = listed
		}
		m, ok := index[in.MatchID]
		if !ok {
			return nil, notFound(ErrMatchNotFound, "%s", in.MatchID)
		}

		var sideA, sideB []models.RatingProfile
		if m.BothResolved() {
			if sideA, err = e.readSide(ctx, rs, c, m.SlotA.Participant); err != nil {
				return nil, err
			}
			if sideB, err = e.readSide(ctx, rs, c, m.SlotB.Participant); err != nil {
				return nil, err
			}
		}

		ws := rs.Close()
		now := e.clock()

		adv, err := advanceMatch(index, m, in.WinnerID, in.Score, now)
		if err != nil {
			return nil, err
		}
		ws.PutMatch(m, "completed_at")
		for _, next := range adv.touched {
			ws.PutMatch(next)
		}
		out.NextMatchID = adv.nextMatch
		events = append(events, e.event(models.EventMatchCompleted, c.ID, m.ID, m))

		if c.IsLeague() && m.Type == models.MatchTypeRoundRobin {
			if err := standings.Validate(c.Standings); err != nil {
				return nil, internal(ErrCorruptStandings, "%v", err)
			}
			pts := standings.Points{Win: c.Settings.PointsForWin, Loss: c.Settings.PointsForLoss}
			table, err := standings.Apply(c.Standings, m, pts, completedOnly(regularSeason(matches)))
			if err != nil {
				return nil, internal(ErrCorruptStandings, "%v", err)
			}
			c.Standings = table
			events = append(events, e.event(models.EventStandingsUpdated, c.ID, m.ID, table))
		}

		if len(sideA) > 0 && len(sideB) > 0 {
			changes, err := e.ratingEngine(c).Apply(sideA, sideB, adv.winnerSlot == models.SlotA, in.Score.Walkover)
			if err != nil {
				return nil, internal(ErrValidationFailed, "%v", err)
			}
			// walkovers report zero deltas and leave the profiles untouched
			if !in.Score.Walkover {
				for i, p := range append(append([]models.RatingProfile{}, sideA...), sideB...) {
					p.Rating = changes[i].After
					p.MatchesPlayed++
					p.LastUpdated = &now
					ws.PutRating(p)
				}
			}
			out.RatingChanges = changes
		}
		for _, player := range adv.winner.PlayerIDs() {
			ws.RecordPlayerResult(player, true)
		}
		for _, player := range adv.loser.PlayerIDs() {
			ws.RecordPlayerResult(player, false)
		}

		completedNow := false
		switch {
		case m.Type == models.MatchTypeConsolation:
			third := adv.winner.ID
			c.ThirdPlaceID = &third
		case m.IsTerminal():
			finish(c, adv.winner.ID, adv.loser.ID, now)
			completedNow = true
		case c.IsLeague() && m.Type == models.MatchTypeRoundRobin && allCompleted(regularSeason(matches)):
			switch c.Settings.PlayoffMode {
			case models.PlayoffAuto:
				po, err := e.startPlayoffs(c, matches, ws)
				if err != nil {
					return nil, err
				}
				out.PlayoffsGenerated = true
				events = append(events, e.event(models.EventPlayoffsGenerated, c.ID, "", po))
			case models.PlayoffNone:
				finishFromTable(c, now)
				completedNow = true
			}
		}
		if c.Status != models.StatusCompleted && !out.PlayoffsGenerated {
			c.CurrentRound = currentRound(matches, c.TotalRounds)
		}
		if completedNow {
			ws.PutCompetition(c, "completed_at")
			events = append(events, e.event(models.EventCompetitionCompleted, c.ID, "", c))
			snapshot, all = c, matches
		} else {
			ws.PutCompetition(c)
		}

		out.CompetitionCompleted = c.Status == models.StatusCompleted
		out.ChampionID = c.ChampionID
		return ws, nil
	}, func(ctx context.Context) error {
		return e.notify(events...)(ctx)
	}, func(ctx context.Context) error {
		if snapshot == nil {
			return nil
		}
		return e.archive(ctx, snapshot, all)
	})
	if err != nil {
		return nil, err
	}

	if !in.Score.Walkover {
		for _, ch := range out.RatingChanges {
			e.metrics.ObserveRatingDelta(ch.Delta)
		}
	}
	out.Warnings = warnings
	e.logWarnings(ctx, "submitResult", warnings)
	e.logger.InfoContext(ctx, "match result recorded",
		slog.String("competition_id", in.CompetitionID),
		slog.String("match_id", in.MatchID),
		slog.String("winner_id", in.WinnerID),
		slog.Bool("competition_completed", out.CompetitionCompleted))
	return &out, nil
}

// readSide loads the rating profiles of every player behind an entry, in
// the competition's scope and game type.
func (e *Engine) readSide(ctx context.Context, rs *repositories.ReadSet, c *models.Competition, p *models.Participant) ([]models.RatingProfile, error) {
	players := p.PlayerIDs()
	side := make([]models.RatingProfile, 0, len(players))
	for _, player := range players {
		key := models.RatingKey{PlayerID: player, Scope: c.RatingScope(), GameType: c.GameType}
		profile, _, err := rs.Rating(ctx, key, e.initialRating(c))
		if err != nil {
			return nil, err
		}
		side = append(side, profile)
	}
	return side, nil
}

// CompleteCompetition fixes the final result: from the deciding match when
// it is completed, or from the table of a league whose season is over and
// that has no playoffs.
func (e *Engine) CompleteCompetition(ctx context.Context, competitionID string) (*CompletionResult, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}

	var (
		out      CompletionResult
		snapshot *models.Competition
		all      []*models.Match
	)
	warnings, err := e.coord.Run(ctx, "completeCompetition", func(ctx context.Context, rs *repositories.ReadSet) (*repositories.WriteSet, error) {
		c, err := e.loadCompetition(ctx, rs, competitionID)
		if err != nil {
			return nil, err
		}
		if c.Status != models.StatusOngoing && c.Status != models.StatusPlayoffs {
			return nil, failedPrecondition(ErrInvalidStatusTransition, "cannot complete a competition in status %s", c.Status)
		}
		matches, err := rs.Matches(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		ws := rs.Close()
		now := e.clock()

		regular := regularSeason(matches)
		if final := terminalResult(matches); final != nil {
			finish(c, *final.WinnerID, *final.LoserID, now)
		} else if c.IsLeague() && c.Playoff == nil && allCompleted(regular) {
			if err := standings.Validate(c.Standings); err != nil {
				return nil, internal(ErrCorruptStandings, "%v", err)
			}
			c.Standings = standings.Sort(c.Standings, regular)
			if !finishFromTable(c, now) {
				return nil, failedPrecondition(ErrNoResultAvailable, "standings hold fewer than two entries")
			}
		} else {
			return nil, failedPrecondition(ErrNoResultAvailable, "%s", c.ID)
		}
		ws.PutCompetition(c, "completed_at")

		out = CompletionResult{ChampionID: *c.ChampionID, RunnerUpID: *c.RunnerUpID, ThirdPlaceID: c.ThirdPlaceID}
		snapshot, all = c, matches
		return ws, nil
	}, func(ctx context.Context) error {
		return e.notifier.Notify(ctx, e.event(models.EventCompetitionCompleted, competitionID, "", out))
	}, func(ctx context.Context) error {
		return e.archive(ctx, snapshot, all)
	})
	if err != nil {
		return nil, err
	}
	e.logWarnings(ctx, "completeCompetition", warnings)
	return &out, nil
}

// finishFromTable completes a league from its ranked table.
func finishFromTable(c *models.Competition, now time.Time) bool {
	if len(c.Standings) < 2 {
		return false
	}
	finish(c, c.Standings[0].ParticipantID, c.Standings[1].ParticipantID, now)
	if len(c.Standings) > 2 {
		third := c.Standings[2].ParticipantID
		c.ThirdPlaceID = &third
	}
	return true
}

func completedOnly(matches []*models.Match) []*models.Match {
	out := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		if m.IsCompleted() {
			out = append(out, m)
		}
	}
	return out
}

func (e *Engine) archive(ctx context.Context, c *models.Competition, matches []*models.Match) error {
	if e.archiver == nil || c == nil {
		return nil
	}
	if err := e.archiver.ArchiveCompetition(ctx, c, matches); err != nil {
		return fmt.Errorf("archive results of %s: %w", c.ID, err)
	}
	return nil
}
