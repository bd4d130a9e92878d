package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Dosada05/competition-engine/models"
)

// ReadSet is the read phase of a transaction. It only reads; calling Close
// ends the phase and hands back the WriteSet, after which every read fails
// with ErrReadsClosed. Nothing is written until the WriteSet is committed.
type ReadSet struct {
	tx     DocTx
	mu     sync.Mutex
	closed bool
}

func NewReadSet(tx DocTx) *ReadSet {
	return &ReadSet{tx: tx}
}

func (r *ReadSet) get(ctx context.Context, ref DocRef) (*Document, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("get %s: %w", ref, ErrReadsClosed)
	}
	return r.tx.Get(ctx, ref)
}

func (r *ReadSet) list(ctx context.Context, collection string) ([]Document, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("list %s: %w", collection, ErrReadsClosed)
	}
	return r.tx.List(ctx, collection)
}

func (r *ReadSet) Competition(ctx context.Context, id string) (*models.Competition, error) {
	doc, err := r.get(ctx, CompetitionRef(id))
	if err != nil {
		return nil, err
	}
	return decode[models.Competition](doc)
}

func (r *ReadSet) Competitions(ctx context.Context) ([]*models.Competition, error) {
	docs, err := r.list(ctx, CollectionCompetitions)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Competition, 0, len(docs))
	for i := range docs {
		c, err := decode[models.Competition](&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *ReadSet) Match(ctx context.Context, competitionID, matchID string) (*models.Match, error) {
	doc, err := r.get(ctx, MatchRef(competitionID, matchID))
	if err != nil {
		return nil, err
	}
	return decode[models.Match](doc)
}

// Matches returns every match of a competition ordered by round, then order.
func (r *ReadSet) Matches(ctx context.Context, competitionID string) ([]*models.Match, error) {
	docs, err := r.list(ctx, MatchesCollection(competitionID))
	if err != nil {
		return nil, err
	}
	out := make([]*models.Match, 0, len(docs))
	for i := range docs {
		m, err := decode[models.Match](&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Rating returns the stored profile for key, or a fresh profile at the
// initial rating when the player has none yet (found is false then).
func (r *ReadSet) Rating(ctx context.Context, key models.RatingKey, initial int) (profile models.RatingProfile, found bool, err error) {
	doc, err := r.get(ctx, RatingRef(key))
	if errors.Is(err, ErrNotFound) {
		return models.NewRatingProfile(key, initial), false, nil
	}
	if err != nil {
		return models.RatingProfile{}, false, err
	}
	p, err := decode[models.RatingProfile](doc)
	if err != nil {
		return models.RatingProfile{}, false, err
	}
	return *p, true, nil
}

func (r *ReadSet) PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	doc, err := r.get(ctx, PlayerStatsRef(playerID))
	if err != nil {
		return nil, err
	}
	stats, err := decode[models.PlayerStats](doc)
	if err != nil {
		return nil, err
	}
	stats.PlayerID = playerID
	return stats, nil
}

// Close ends the read phase.
func (r *ReadSet) Close() *WriteSet {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return &WriteSet{}
}

// WriteSet buffers the writes of a transaction. An encoding failure is kept
// and reported by Mutations so callers can chain puts without checks.
type WriteSet struct {
	mutations []Mutation
	err       error
}

func (w *WriteSet) add(m Mutation, err error) {
	if err != nil {
		if w.err == nil {
			w.err = err
		}
		return
	}
	w.mutations = append(w.mutations, m)
}

// PutCompetition rewrites the competition document, standings included,
// and stamps updated_at plus any extra timestamp fields.
func (w *WriteSet) PutCompetition(c *models.Competition, timestamps ...string) {
	w.add(Set(CompetitionRef(c.ID), c, append([]string{"updated_at"}, timestamps...)...))
}

func (w *WriteSet) PutMatch(m *models.Match, timestamps ...string) {
	w.add(Set(MatchRef(m.CompetitionID, m.ID), m, timestamps...))
}

func (w *WriteSet) PutRating(p models.RatingProfile) {
	w.add(Set(RatingRef(p.Key()), p, "last_updated"))
}

// AppendParticipant adds an entry to a competition's participant list. It
// must not be combined with PutCompetition for the same competition.
func (w *WriteSet) AppendParticipant(competitionID string, p models.Participant) {
	w.add(AppendUnique(CompetitionRef(competitionID), "participants", p))
}

// RecordPlayerResult bumps a player's career counters.
func (w *WriteSet) RecordPlayerResult(playerID string, won bool) {
	ref := PlayerStatsRef(playerID)
	w.add(Increment(ref, "matches_played", 1), nil)
	if won {
		w.add(Increment(ref, "wins", 1), nil)
	} else {
		w.add(Increment(ref, "losses", 1), nil)
	}
}

func (w *WriteSet) RecordPlayerCompetition(playerID, competitionID string) {
	w.add(AppendUnique(PlayerStatsRef(playerID), "competitions", competitionID))
}

func (w *WriteSet) Len() int { return len(w.mutations) }

func (w *WriteSet) Mutations() ([]Mutation, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.mutations, nil
}

func CompetitionRef(id string) DocRef {
	return DocRef{Collection: CollectionCompetitions, ID: id}
}

func MatchRef(competitionID, matchID string) DocRef {
	return DocRef{Collection: MatchesCollection(competitionID), ID: matchID}
}

func RatingRef(key models.RatingKey) DocRef {
	return DocRef{Collection: CollectionRatings, ID: key.DocID()}
}

func PlayerStatsRef(playerID string) DocRef {
	return DocRef{Collection: CollectionPlayerStats, ID: playerID}
}
