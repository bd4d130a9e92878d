package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/Dosada05/competition-engine/models"
)

// ResultsArchiver uploads the final state of a completed competition as a
// single JSON object.
type ResultsArchiver struct {
	uploader FileUploader
	prefix   string
	logger   *slog.Logger
}

func NewResultsArchiver(uploader FileUploader, prefix string, logger *slog.Logger) *ResultsArchiver {
	if prefix == "" {
		prefix = "competitions"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsArchiver{uploader: uploader, prefix: prefix, logger: logger}
}

type archivedResults struct {
	Competition *models.Competition `json:"competition"`
	Matches     []*models.Match     `json:"matches"`
	ArchivedAt  time.Time           `json:"archived_at"`
}

// Key is the object key a competition's results are stored under.
func (a *ResultsArchiver) Key(competitionID string) string {
	return path.Join(a.prefix, competitionID, "results.json")
}

func (a *ResultsArchiver) ArchiveCompetition(ctx context.Context, c *models.Competition, matches []*models.Match) error {
	body, err := json.Marshal(archivedResults{Competition: c, Matches: matches, ArchivedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal results of %s: %w", c.ID, err)
	}
	res, err := a.uploader.Upload(ctx, a.Key(c.ID), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "competition results archived",
		slog.String("competition_id", c.ID), slog.String("key", res.Key), slog.String("location", res.Location))
	return nil
}
