package services

import (
	"context"
	"errors"

	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/repositories"
	"github.com/Dosada05/competition-engine/standings"
	"golang.org/x/sync/errgroup"
)

type CompetitionView struct {
	Competition *models.Competition `json:"competition"`
	Matches     []*models.Match     `json:"matches"`
}

// GetCompetition loads a competition and its matches in parallel.
func (e *Engine) GetCompetition(ctx context.Context, competitionID string) (*CompetitionView, error) {
	view := &CompetitionView{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.coord.View(gctx, func(ctx context.Context, rs *repositories.ReadSet) error {
			c, err := e.loadCompetition(ctx, rs, competitionID)
			view.Competition = c
			return err
		})
	})
	g.Go(func() error {
		return e.coord.View(gctx, func(ctx context.Context, rs *repositories.ReadSet) error {
			matches, err := rs.Matches(ctx, competitionID)
			view.Matches = matches
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if view.Matches == nil {
		view.Matches = []*models.Match{}
	}
	return view, nil
}

func (e *Engine) ListCompetitions(ctx context.Context) ([]*models.Competition, error) {
	var out []*models.Competition
	err := e.coord.View(ctx, func(ctx context.Context, rs *repositories.ReadSet) error {
		var err error
		out, err = rs.Competitions(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListMatches returns a competition's matches, only those of round when
// round is positive.
func (e *Engine) ListMatches(ctx context.Context, competitionID string, round int) ([]*models.Match, error) {
	out := []*models.Match{}
	err := e.coord.View(ctx, func(ctx context.Context, rs *repositories.ReadSet) error {
		if _, err := e.loadCompetition(ctx, rs, competitionID); err != nil {
			return err
		}
		matches, err := rs.Matches(ctx, competitionID)
		if err != nil {
			return err
		}
		for _, m := range matches {
			if round <= 0 || m.Round == round {
				out = append(out, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetStandings returns a league table ranked with the same comparator the
// engine uses when it records results.
func (e *Engine) GetStandings(ctx context.Context, competitionID string) ([]models.Standing, error) {
	var table []models.Standing
	err := e.coord.View(ctx, func(ctx context.Context, rs *repositories.ReadSet) error {
		c, err := e.loadCompetition(ctx, rs, competitionID)
		if err != nil {
			return err
		}
		if !c.IsLeague() {
			return failedPrecondition(ErrWrongCompetitionKind, "standings exist for leagues only")
		}
		matches, err := rs.Matches(ctx, competitionID)
		if err != nil {
			return err
		}
		if err := standings.Validate(c.Standings); err != nil {
			return internal(ErrCorruptStandings, "%v", err)
		}
		table = standings.Sort(c.Standings, completedOnly(regularSeason(matches)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (e *Engine) GetRating(ctx context.Context, key models.RatingKey) (*models.RatingProfile, error) {
	if key.PlayerID == "" || !models.ValidScope(key.Scope) || !key.GameType.Valid() {
		return nil, invalidArgument(ErrValidationFailed, "player, scope (global or club:<id>) and game type are required")
	}
	var profile models.RatingProfile
	err := e.coord.View(ctx, func(ctx context.Context, rs *repositories.ReadSet) error {
		p, found, err := rs.Rating(ctx, key, 0)
		if err != nil {
			return err
		}
		if !found {
			return notFound(ErrRatingNotFound, "%s", key.DocID())
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (e *Engine) GetPlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	var stats *models.PlayerStats
	err := e.coord.View(ctx, func(ctx context.Context, rs *repositories.ReadSet) error {
		s, err := rs.PlayerStats(ctx, playerID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFound(ErrNotFound, "no record for player %s", playerID)
		}
		stats = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
