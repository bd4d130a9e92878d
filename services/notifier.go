package services

import (
	"context"

	"github.com/Dosada05/competition-engine/models"
)

// Notifier delivers committed events to listeners. Delivery is fire and
// forget: a failure never undoes the state change that produced the event.
type Notifier interface {
	Notify(ctx context.Context, event models.Event) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.Event) error { return nil }

// ResultsArchiver stores the final record of a completed competition.
type ResultsArchiver interface {
	ArchiveCompetition(ctx context.Context, c *models.Competition, matches []*models.Match) error
}

// RegistrationLedger is the read-only source of a competition's entries.
type RegistrationLedger interface {
	Participants(ctx context.Context, c *models.Competition) ([]models.Participant, error)
}

// CompetitionLedger reads entries straight from the competition document.
type CompetitionLedger struct{}

func (CompetitionLedger) Participants(_ context.Context, c *models.Competition) ([]models.Participant, error) {
	out := make([]models.Participant, len(c.Participants))
	copy(out, c.Participants)
	return out, nil
}
