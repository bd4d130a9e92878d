package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/repositories"
)

type CreateCompetitionInput struct {
	Name         string                      `json:"name"`
	Kind         models.CompetitionKind      `json:"kind"`
	ClubID       *string                     `json:"club_id,omitempty"`
	GameType     models.GameType             `json:"game_type"`
	Settings     *models.CompetitionSettings `json:"settings,omitempty"`
	Participants []models.Participant        `json:"participants,omitempty"`
}

type SeedAssignment struct {
	ParticipantID string `json:"participant_id"`
	Seed          int    `json:"seed"`
}

type SeedResult struct {
	Assigned int `json:"assigned"`
	Removed  int `json:"removed"`
}

// CreateCompetition stores a new competition. Brackets start in draft,
// leagues in preparing.
func (e *Engine) CreateCompetition(ctx context.Context, in CreateCompetitionInput) (*models.Competition, error) {
	caller, err := requireStaff(ctx)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalidArgument(ErrValidationFailed, "name is required")
	}
	status := models.StatusDraft
	switch in.Kind {
	case models.KindBracket:
	case models.KindLeague:
		status = models.StatusPreparing
	default:
		return nil, invalidArgument(ErrValidationFailed, "unknown competition kind %q", in.Kind)
	}
	if !in.GameType.Valid() {
		return nil, invalidArgument(ErrValidationFailed, "unknown game type %q", in.GameType)
	}
	if in.ClubID != nil && strings.TrimSpace(*in.ClubID) == "" {
		in.ClubID = nil
	}
	settings, err := e.settings(in.Settings)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	participants := make([]models.Participant, 0, len(in.Participants))
	for _, p := range in.Participants {
		if p.ID == "" {
			p.ID = e.newID()
		}
		if p.RegisteredAt.IsZero() {
			p.RegisteredAt = now
		}
		if err := checkEntry(in.GameType, participants, p); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	c := &models.Competition{
		ID:           e.newID(),
		Name:         in.Name,
		Kind:         in.Kind,
		Status:       status,
		ClubID:       in.ClubID,
		GameType:     in.GameType,
		Settings:     settings,
		OrganizerID:  caller.UserID,
		Participants: participants,
		CreatedAt:    now,
	}

	warnings, err := e.coord.Run(ctx, "createCompetition", func(ctx context.Context, rs *repositories.ReadSet) (*repositories.WriteSet, error) {
		_, err := rs.Competition(ctx, c.ID)
		switch {
		case err == nil:
			return nil, alreadyExists(ErrCompetitionExists, "%s", c.ID)
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, err
		}
		ws := rs.Close()
		ws.PutCompetition(c)
		for _, p := range c.Participants {
			for _, player := range p.PlayerIDs() {
				ws.RecordPlayerCompetition(player, c.ID)
			}
		}
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	e.logWarnings(ctx, "createCompetition", warnings)
	e.logger.InfoContext(ctx, "competition created",
		slog.String("competition_id", c.ID), slog.String("kind", string(c.Kind)), slog.Int("participants", len(c.Participants)))
	return c, nil
}

func (e *Engine) settings(in *models.CompetitionSettings) (models.CompetitionSettings, error) {
	s := models.CompetitionSettings{
		PointsForWin:  e.cfg.PointsForWin,
		PointsForLoss: e.cfg.PointsForLoss,
		PlayoffMode:   e.cfg.PlayoffMode,
		KFactorTiers:  e.cfg.KFactorTiers,
		InitialRating: e.cfg.InitialRating,
	}
	if in == nil {
		return s, nil
	}
	if in.PointsForWin != 0 || in.PointsForLoss != 0 {
		if in.PointsForWin < 0 || in.PointsForLoss < 0 || in.PointsForLoss > in.PointsForWin {
			return s, invalidArgument(ErrValidationFailed, "points for a win must be at least the points for a loss")
		}
		s.PointsForWin, s.PointsForLoss = in.PointsForWin, in.PointsForLoss
	}
	if in.PlayoffMode != "" {
		if !in.PlayoffMode.Valid() {
			return s, invalidArgument(ErrValidationFailed, "unknown playoff mode %q", in.PlayoffMode)
		}
		s.PlayoffMode = in.PlayoffMode
	}
	if len(in.KFactorTiers) > 0 {
		for _, t := range in.KFactorTiers {
			if t.K <= 0 || t.BelowMatches < 0 {
				return s, invalidArgument(ErrValidationFailed, "k-factor tiers need a positive K and a non-negative threshold")
			}
		}
		s.KFactorTiers = in.KFactorTiers
	}
	if in.InitialRating < 0 {
		return s, invalidArgument(ErrValidationFailed, "initial rating must not be negative")
	}
	if in.InitialRating > 0 {
		s.InitialRating = in.InitialRating
	}
	s.StrictRounds = in.StrictRounds
	return s, nil
}

// checkEntry validates p on its own and against the entries already in.
func checkEntry(gameType models.GameType, existing []models.Participant, p models.Participant) error {
	if err := p.Validate(); err != nil {
		return invalidArgument(ErrValidationFailed, "%v", err)
	}
	switch {
	case gameType == models.GameTypeSingles && p.Kind != models.ParticipantIndividual:
		return invalidArgument(ErrValidationFailed, "singles competitions take individual entries only")
	case gameType != models.GameTypeSingles && p.Kind != models.ParticipantTeam:
		return invalidArgument(ErrValidationFailed, "%s competitions take partner pairs only", gameType)
	}
	for _, other := range existing {
		if other.ID == p.ID {
			return alreadyExists(ErrParticipantAlreadyEntered, "entry %s", p.ID)
		}
		for _, a := range other.PlayerIDs() {
			for _, b := range p.PlayerIDs() {
				if a == b {
					return alreadyExists(ErrParticipantAlreadyEntered, "player %s", a)
				}
			}
		}
	}
	return nil
}

// RegisterParticipant appends an entry to the competition's ledger. Staff
// may enter anyone; players may only enter themselves.
func (e *Engine) RegisterParticipant(ctx context.Context, competitionID string, p models.Participant) (*models.Participant, error) {
	if _, err := requireStaffOrPlayer(ctx, p.PlayerIDs()); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = e.newID()
	}
	p.Seed = 0
	p.RegisteredAt = e.clock()
	if err := p.Validate(); err != nil {
		return nil, invalidArgument(ErrValidationFailed, "%v", err)
	}

	warnings, err := e.coord.Run(ctx, "registerParticipant", func(ctx context.Context, rs *repositories.ReadSet) (*repositories.WriteSet, error) {
		c, err := e.loadCompetition(ctx, rs, competitionID)
		if err != nil {
			return nil, err
		}
		if !c.Status.AcceptsEntries() || c.TotalRounds > 0 {
			return nil, failedPrecondition(ErrRegistrationClosed, "status %s", c.Status)
		}
		if err := checkEntry(c.GameType, c.Participants, p); err != nil {
			return nil, err
		}

		ws := rs.Close()
		ws.AppendParticipant(c.ID, p)
		for _, player := range p.PlayerIDs() {
			ws.RecordPlayerCompetition(player, c.ID)
		}
		return ws, nil
	}, e.notify(e.event(models.EventParticipantRegistered, competitionID, "", p)))
	if err != nil {
		return nil, err
	}
	e.logWarnings(ctx, "registerParticipant", warnings)
	return &p, nil
}

// SetStatus moves a competition through the steps organizers control by
// hand: opening registration, closing it, and canceling.
func (e *Engine) SetStatus(ctx context.Context, competitionID string, next models.CompetitionStatus) (*models.Competition, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	switch next {
	case models.StatusRegistration, models.StatusPreparing, models.StatusCanceled:
	default:
		return nil, invalidArgument(ErrInvalidStatus, "%q cannot be set directly", next)
	}

	var updated *models.Competition
	warnings, err := e.coord.Run(ctx, "setStatus", func(ctx context.Context, rs *repositories.ReadSet) (*repositories.WriteSet, error) {
		c, err := e.loadCompetition(ctx, rs, competitionID)
		if err != nil {
			return nil, err
		}
		if !c.Status.CanTransition(next) {
			return nil, failedPrecondition(ErrInvalidStatusTransition, "%s to %s", c.Status, next)
		}
		ws := rs.Close()
		c.Status = next
		ws.PutCompetition(c)
		updated = c
		return ws, nil
	}, func(ctx context.Context) error {
		return e.notifier.Notify(ctx, e.event(models.EventStatusChanged, competitionID, "", map[string]any{"status": next}))
	})
	if err != nil {
		return nil, err
	}
	e.logWarnings(ctx, "setStatus", warnings)
	return updated, nil
}

// AssignSeeds sets or clears seeds. Seed 0 removes a seed; a positive seed
// may be shared only by partner entries.
func (e *Engine) AssignSeeds(ctx context.Context, competitionID string, seeds []SeedAssignment) (*SeedResult, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, invalidArgument(ErrValidationFailed, "no seeds given")
	}
	seen := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		if s.ParticipantID == "" {
			return nil, invalidArgument(ErrValidationFailed, "participant id is required")
		}
		if s.Seed < 0 {
			return nil, invalidArgument(ErrSeedOutOfRange, "seed %d for %s", s.Seed, s.ParticipantID)
		}
		if seen[s.ParticipantID] {
			return nil, invalidArgument(ErrValidationFailed, "participant %s listed twice", s.ParticipantID)
		}
		seen[s.ParticipantID] = true
	}

	var result SeedResult
	warnings, err := e.coord.Run(ctx, "assignSeeds", func(ctx context.Context, rs *repositories.ReadSet) (*repositories.WriteSet, error) {
		c, err := e.loadCompetition(ctx, rs, competitionID)
		if err != nil {
			return nil, err
		}
		if c.Status != models.StatusDraft && c.Status != models.StatusRegistration {
			return nil, failedPrecondition(ErrSeedingClosed, "status %s", c.Status)
		}

		result = SeedResult{}
		n := len(c.Participants)
		for _, s := range seeds {
			p, ok := c.Participant(s.ParticipantID)
			if !ok {
				return nil, notFound(ErrParticipantNotFound, "%s", s.ParticipantID)
			}
			if s.Seed > n {
				return nil, invalidArgument(ErrSeedOutOfRange, "seed %d exceeds %d participants", s.Seed, n)
			}
			switch {
			case s.Seed > 0:
				result.Assigned++
			case p.Seed > 0:
				result.Removed++
			}
			p.Seed = s.Seed
		}
		for i := range c.Participants {
			for j := i + 1; j < len(c.Participants); j++ {
				a, b := c.Participants[i], c.Participants[j]
				if a.Seed > 0 && a.Seed == b.Seed && !a.IsPartnerOf(b) {
					return nil, invalidArgument(ErrDuplicateSeed, "seed %d held by %s and %s", a.Seed, a.ID, b.ID)
				}
			}
		}

		ws := rs.Close()
		ws.PutCompetition(c)
		return ws, nil
	}, e.notify(e.event(models.EventSeedsAssigned, competitionID, "", seeds)))
	if err != nil {
		return nil, err
	}
	e.logWarnings(ctx, "assignSeeds", warnings)
	return &result, nil
}

func (e *Engine) logWarnings(ctx context.Context, op string, warnings []string) {
	for _, w := range warnings {
		e.logger.WarnContext(ctx, "operation committed with warning", slog.String("operation", op), slog.String("warning", w))
	}
}
