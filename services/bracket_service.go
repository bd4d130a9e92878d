package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/competition-engine/brackets"
	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/repositories"
	"github.com/Dosada05/competition-engine/standings"
)

type GenerateResult struct {
	Rounds  int `json:"rounds"`
	Matches int `json:"matches"`
}

type PlayoffResult struct {
	Shape        models.PlayoffShape `json:"shape"`
	QualifiedIDs []string            `json:"qualified_ids"`
	MatchIDs     []string            `json:"match_ids"`
}

// GenerateBracket builds the single-elimination graph for a bracket
// competition and starts it.
func (e *Engine) GenerateBracket(ctx context.Context, competitionID string) (*GenerateResult, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	return e.generate(ctx, "generateBracket", competitionID, models.KindBracket)
}

// GenerateRoundRobin creates a league's fixture list and empty standings.
func (e *Engine) GenerateRoundRobin(ctx context.Context, competitionID string) (*GenerateResult, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	return e.generate(ctx, "generateRoundRobin", competitionID, models.KindLeague)
}

func (e *Engine) generate(ctx context.Context, op, competitionID string, kind models.CompetitionKind) (*GenerateResult, error) {
	generator, ok := brackets.ForKind(kind)
	if !ok {
		return nil, internal(ErrWrongCompetitionKind, "no generator for %s", kind)
	}

	var out GenerateResult
	warnings, err := e.coord.Run(ctx, op, func(ctx context.Context, rs *repositories.ReadSet) (*repositories.WriteSet, error) {
		c, err := e.loadCompetition(ctx, rs, competitionID)
		if err != nil {
			return nil, err
		}
		if c.Kind != kind {
			return nil, failedPrecondition(ErrWrongCompetitionKind, "%s is a %s", c.ID, c.Kind)
		}
		if kind == models.KindLeague && c.Status != models.StatusPreparing {
			return nil, failedPrecondition(ErrInvalidStatusTransition, "fixtures need status preparing, not %s", c.Status)
		}
		existing, err := rs.Matches(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 || c.TotalRounds > 0 {
			return nil, alreadyExists(ErrBracketAlreadyGenerated, "%s", c.ID)
		}
		if !c.Status.AcceptsEntries() {
			return nil, failedPrecondition(ErrInvalidStatusTransition, "cannot start a competition in status %s", c.Status)
		}
		participants, err := e.ledger.Participants(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("read registration ledger: %w", err)
		}

		res, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
			Competition:  c,
			Participants: participants,
			Now:          e.clock(),
		})
		if errors.Is(err, brackets.ErrNotEnoughParticipants) {
			return nil, failedPrecondition(ErrNotEnoughParticipants, "found %d", len(participants))
		}
		if err != nil {
			return nil, err
		}

		ws := rs.Close()
		for _, m := range res.Matches {
			ws.PutMatch(m)
		}
		c.Participants = participants
		c.Status = models.StatusOngoing
		c.TotalRounds = res.TotalRounds
		c.CurrentRound = 1
		if kind == models.KindLeague {
			c.RegularRounds = res.TotalRounds
			c.Standings = res.Standings
		}
		ws.PutCompetition(c)

		out = GenerateResult{Rounds: res.TotalRounds, Matches: len(res.Matches)}
		return ws, nil
	}, func(ctx context.Context) error {
		typ := models.EventBracketGenerated
		if kind == models.KindLeague {
			typ = models.EventFixturesGenerated
		}
		return e.notifier.Notify(ctx, e.event(typ, competitionID, "", out))
	})
	if err != nil {
		return nil, err
	}
	e.logWarnings(ctx, op, warnings)
	e.logger.InfoContext(ctx, "competition started",
		slog.String("competition_id", competitionID), slog.Int("rounds", out.Rounds), slog.Int("matches", out.Matches))
	return &out, nil
}

// GeneratePlayoffs seeds a league's playoff bracket from its final table.
func (e *Engine) GeneratePlayoffs(ctx context.Context, competitionID string) (*PlayoffResult, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}

	var out PlayoffResult
	warnings, err := e.coord.Run(ctx, "generatePlayoffs", func(ctx context.Context, rs *repositories.ReadSet) (*repositories.WriteSet, error) {
		c, err := e.loadCompetition(ctx, rs, competitionID)
		if err != nil {
			return nil, err
		}
		if !c.IsLeague() {
			return nil, failedPrecondition(ErrWrongCompetitionKind, "playoffs need a league")
		}
		if c.Status != models.StatusOngoing {
			return nil, failedPrecondition(ErrInvalidStatusTransition, "playoffs need status ongoing, not %s", c.Status)
		}
		matches, err := rs.Matches(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		ws := rs.Close()

		po, err := e.startPlayoffs(c, matches, ws)
		if err != nil {
			return nil, err
		}
		ws.PutCompetition(c)
		out = *po
		return ws, nil
	}, func(ctx context.Context) error {
		return e.notifier.Notify(ctx, e.event(models.EventPlayoffsGenerated, competitionID, "", out))
	})
	if err != nil {
		return nil, err
	}
	e.logWarnings(ctx, "generatePlayoffs", warnings)
	return &out, nil
}

// startPlayoffs checks the regular season is over, ranks the table, buffers
// the playoff matches and moves c into the playoffs. The caller writes c.
func (e *Engine) startPlayoffs(c *models.Competition, matches []*models.Match, ws *repositories.WriteSet) (*PlayoffResult, error) {
	regular := regularSeason(matches)
	for _, m := range regular {
		if !m.IsCompleted() {
			return nil, failedPrecondition(ErrRegularSeasonIncomplete, "match %s is %s", m.ID, m.Status)
		}
	}
	if err := standings.Validate(c.Standings); err != nil {
		return nil, internal(ErrCorruptStandings, "%v", err)
	}
	ranked := standings.Sort(c.Standings, regular)

	res, err := brackets.NewPlayoffGenerator().Generate(c, ranked, e.clock())
	switch {
	case errors.Is(err, brackets.ErrNotEnoughQualifiers):
		return nil, failedPrecondition(ErrNotEnoughQualifiers, "%v", err)
	case errors.Is(err, brackets.ErrUnknownQualifier):
		return nil, internal(ErrCorruptStandings, "%v", err)
	case err != nil:
		return nil, err
	}

	for _, m := range res.Matches {
		ws.PutMatch(m)
	}
	info := res.Info
	c.Standings = ranked
	c.Playoff = &info
	c.Status = models.StatusPlayoffs
	if c.RegularRounds == 0 {
		c.RegularRounds = c.TotalRounds
	}
	c.TotalRounds = res.TotalRounds
	c.CurrentRound = c.RegularRounds + 1

	return &PlayoffResult{Shape: info.Shape, QualifiedIDs: info.QualifiedIDs, MatchIDs: info.MatchIDs}, nil
}

// regularSeason returns the round-robin fixtures among matches.
func regularSeason(matches []*models.Match) []*models.Match {
	out := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		if m.Type == models.MatchTypeRoundRobin {
			out = append(out, m)
		}
	}
	return out
}
