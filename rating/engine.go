// Package rating computes ELO-style rating changes for completed matches.
package rating

import (
	"errors"
	"math"
	"sort"

	"github.com/Dosada05/competition-engine/models"
)

// Spread is the rating gap at which the stronger side is ten times as
// likely to win.
const Spread = 400.0

var ErrNoSides = errors.New("rating: both sides need at least one player")

// Expected returns the probability that a side rated ratingA beats a side rated ratingB.
func Expected(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/Spread))
}

// ComputeDelta returns the rating changes for side A and side B. outcomeA is
// 1 when A won and 0 when A lost. Each side is scaled by its own K, so the
// two deltas are not necessarily opposite.
func ComputeDelta(ratingA, ratingB, outcomeA float64, kA, kB int) (deltaA, deltaB int) {
	expectedA := Expected(ratingA, ratingB)
	expectedB := Expected(ratingB, ratingA)
	deltaA = int(math.Round(float64(kA) * (outcomeA - expectedA)))
	deltaB = int(math.Round(float64(kB) * ((1 - outcomeA) - expectedB)))
	return deltaA, deltaB
}

// KSchedule maps a player's experience to a K-factor.
type KSchedule struct {
	tiers    []models.KFactorTier
	fallback int
}

// DefaultKSchedule uses K=32 for the first 30 rated matches and 16 after.
func DefaultKSchedule() KSchedule {
	return NewKSchedule([]models.KFactorTier{{BelowMatches: 30, K: 32}, {K: 16}})
}

// NewKSchedule builds a schedule from tiers. Tiers are ordered by threshold;
// a tier with BelowMatches 0 is the fallback used once every threshold has
// been passed.
func NewKSchedule(tiers []models.KFactorTier) KSchedule {
	s := KSchedule{fallback: 16}
	for _, t := range tiers {
		if t.K <= 0 {
			continue
		}
		if t.BelowMatches <= 0 {
			s.fallback = t.K
			continue
		}
		s.tiers = append(s.tiers, t)
	}
	sort.SliceStable(s.tiers, func(i, j int) bool {
		return s.tiers[i].BelowMatches < s.tiers[j].BelowMatches
	})
	return s
}

func (s KSchedule) K(matchesPlayed int) int {
	for _, t := range s.tiers {
		if matchesPlayed < t.BelowMatches {
			return t.K
		}
	}
	return s.fallback
}

// Change is the outcome for one player's profile.
type Change struct {
	Key    models.RatingKey `json:"key"`
	Before int              `json:"before"`
	After  int              `json:"after"`
	Delta  int              `json:"delta"`
	K      int              `json:"k"`
}

// Engine applies ComputeDelta to individuals and partner pairs.
type Engine struct {
	Schedule KSchedule
}

func NewEngine(schedule KSchedule) *Engine {
	return &Engine{Schedule: schedule}
}

// Apply rates a match between side A and side B. A side with two members is
// represented by the average of their ratings for the expectation, and each
// member then moves by their own K. Walkovers leave every profile unchanged
// but are still reported, with a zero delta.
func (e *Engine) Apply(sideA, sideB []models.RatingProfile, aWon, walkover bool) ([]Change, error) {
	if len(sideA) == 0 || len(sideB) == 0 {
		return nil, ErrNoSides
	}
	ratingA := average(sideA)
	ratingB := average(sideB)
	outcomeA := 0.0
	if aWon {
		outcomeA = 1
	}

	changes := make([]Change, 0, len(sideA)+len(sideB))
	for _, p := range sideA {
		changes = append(changes, e.change(p, ratingA, ratingB, outcomeA, walkover))
	}
	for _, p := range sideB {
		changes = append(changes, e.change(p, ratingB, ratingA, 1-outcomeA, walkover))
	}
	return changes, nil
}

func (e *Engine) change(p models.RatingProfile, own, opp, outcome float64, walkover bool) Change {
	k := e.Schedule.K(p.MatchesPlayed)
	delta := 0
	if !walkover {
		delta, _ = ComputeDelta(own, opp, outcome, k, k)
	}
	return Change{
		Key:    p.Key(),
		Before: p.Rating,
		After:  p.Rating + delta,
		Delta:  delta,
		K:      k,
	}
}

func average(side []models.RatingProfile) float64 {
	total := 0
	for _, p := range side {
		total += p.Rating
	}
	return float64(total) / float64(len(side))
}
