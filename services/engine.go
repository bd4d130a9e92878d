package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dosada05/competition-engine/metrics"
	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/rating"
	"github.com/Dosada05/competition-engine/repositories"
	"github.com/google/uuid"
)

// EngineConfig holds the defaults a new competition's settings start from.
type EngineConfig struct {
	PointsForWin  int
	PointsForLoss int
	PlayoffMode   models.PlayoffMode
	KFactorTiers  []models.KFactorTier
	InitialRating int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PointsForWin:  3,
		PointsForLoss: 0,
		PlayoffMode:   models.PlayoffManual,
		KFactorTiers: []models.KFactorTier{
			{BelowMatches: 30, K: 32},
			{BelowMatches: 0, K: 16},
		},
		InitialRating: models.DefaultRating,
	}
}

// Engine runs every competition operation against the document store.
type Engine struct {
	coord    *Coordinator
	cfg      EngineConfig
	ledger   RegistrationLedger
	notifier Notifier
	archiver ResultsArchiver
	metrics  *metrics.Manager
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Engine)

func WithConfig(cfg EngineConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithArchiver(a ResultsArchiver) Option {
	return func(e *Engine) { e.archiver = a }
}

func WithLedger(l RegistrationLedger) Option {
	return func(e *Engine) {
		if l != nil {
			e.ledger = l
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(coord *Coordinator, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		coord:    coord,
		cfg:      DefaultEngineConfig(),
		ledger:   CompetitionLedger{},
		notifier: nopNotifier{},
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) clock() time.Time { return e.now().UTC() }

// ratingEngine builds the rating engine for a competition's K tiers.
func (e *Engine) ratingEngine(c *models.Competition) *rating.Engine {
	tiers := c.Settings.KFactorTiers
	if len(tiers) == 0 {
		tiers = e.cfg.KFactorTiers
	}
	if len(tiers) == 0 {
		return rating.NewEngine(rating.DefaultKSchedule())
	}
	return rating.NewEngine(rating.NewKSchedule(tiers))
}

func (e *Engine) initialRating(c *models.Competition) int {
	if c.Settings.InitialRating > 0 {
		return c.Settings.InitialRating
	}
	return e.cfg.InitialRating
}

func (e *Engine) notify(events ...models.Event) Hook {
	return func(ctx context.Context) error {
		var errs []error
		for _, ev := range events {
			if err := e.notifier.Notify(ctx, ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func (e *Engine) event(typ models.EventType, competitionID, matchID string, payload any) models.Event {
	return models.Event{Type: typ, CompetitionID: competitionID, MatchID: matchID, Payload: payload, At: e.clock()}
}

func (e *Engine) loadCompetition(ctx context.Context, rs *repositories.ReadSet, id string) (*models.Competition, error) {
	c, err := rs.Competition(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound(ErrCompetitionNotFound, "%s", id)
	}
	return c, err
}

func (e *Engine) loadMatch(ctx context.Context, rs *repositories.ReadSet, competitionID, matchID string) (*models.Match, error) {
	m, err := rs.Match(ctx, competitionID, matchID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound(ErrMatchNotFound, "%s in competition %s", matchID, competitionID)
	}
	return m, err
}
