// Package standings keeps league tables up to date and ranks them.
package standings

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/competition-engine/models"
)

var (
	ErrMatchNotCompleted  = errors.New("standings: match has no recorded winner")
	ErrUnknownParticipant = errors.New("standings: participant has no standing row")
	ErrCorruptPositions   = errors.New("standings: positions are not a permutation of 1..N")
)

// Points awarded per result. Draws are not modelled.
type Points struct {
	Win  int
	Loss int
}

// New returns one zeroed row per participant, positioned in input order.
func New(participants []models.Participant) []models.Standing {
	table := make([]models.Standing, len(participants))
	for i, p := range participants {
		table[i] = models.NewStanding(p.ID, i+1)
	}
	return table
}

// Apply records a completed match in a copy of table and returns it ranked.
// completed must contain every completed match of the season, including m.
func Apply(table []models.Standing, m *models.Match, pts Points, completed []*models.Match) ([]models.Standing, error) {
	if m == nil || m.WinnerID == nil || !m.IsCompleted() {
		return nil, ErrMatchNotCompleted
	}
	out := make([]models.Standing, len(table))
	copy(out, table)

	idxA := indexOf(out, m.SlotA.ParticipantID())
	idxB := indexOf(out, m.SlotB.ParticipantID())
	if idxA < 0 || idxB < 0 {
		return nil, fmt.Errorf("%w: match %s", ErrUnknownParticipant, m.ID)
	}

	setsA, setsB := m.Score.SetsWon()
	gamesA, gamesB := m.Score.Games()
	aWon := *m.WinnerID == m.SlotA.ParticipantID()

	record(&out[idxA], aWon, pts, setsA, setsB, gamesA, gamesB)
	record(&out[idxB], !aWon, pts, setsB, setsA, gamesB, gamesA)

	return Sort(out, completed), nil
}

func record(s *models.Standing, won bool, pts Points, setsFor, setsAgainst, gamesFor, gamesAgainst int) {
	s.Played++
	result := models.StreakLoss
	if won {
		s.Won++
		s.Points += pts.Win
		result = models.StreakWin
	} else {
		s.Lost++
		s.Points += pts.Loss
	}
	s.SetsWon += setsFor
	s.SetsLost += setsAgainst
	s.SetDiff = s.SetsWon - s.SetsLost
	s.GamesWon += gamesFor
	s.GamesLost += gamesAgainst
	s.GameDiff = s.GamesWon - s.GamesLost

	if s.Streak.Type == result {
		s.Streak.Count++
	} else {
		s.Streak = models.Streak{Type: result, Count: 1}
	}
}

// Sort ranks a copy of table. Rows are compared by points, then the
// head-to-head record between the two rows only, then set difference (set
// ratio when neither row has game data), then game difference. Rows still
// level keep their previous relative order. Positions are reassigned 1..N.
func Sort(table []models.Standing, completed []*models.Match) []models.Standing {
	out := make([]models.Standing, len(table))
	copy(out, table)
	// previous order is the order of the last ranking
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })

	h2h := headToHead(completed)
	sort.SliceStable(out, func(i, j int) bool {
		return Less(&out[i], &out[j], h2h)
	})
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

// HeadToHead counts wins between pairs: wins[a][b] is how often a beat b.
type HeadToHead map[string]map[string]int

func headToHead(matches []*models.Match) HeadToHead {
	wins := make(HeadToHead)
	for _, m := range matches {
		if m == nil || !m.IsCompleted() || m.WinnerID == nil || m.IsBye {
			continue
		}
		loser := m.Opponent(*m.WinnerID)
		if loser == nil {
			continue
		}
		if wins[*m.WinnerID] == nil {
			wins[*m.WinnerID] = make(map[string]int)
		}
		wins[*m.WinnerID][loser.ID]++
	}
	return wins
}

func (h HeadToHead) wins(a, b string) int {
	return h[a][b]
}

// Less reports whether a ranks strictly above b.
func Less(a, b *models.Standing, h2h HeadToHead) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	aw, bw := h2h.wins(a.ParticipantID, b.ParticipantID), h2h.wins(b.ParticipantID, a.ParticipantID)
	if aw != bw {
		return aw > bw
	}
	if noGames(a) && noGames(b) {
		ra, rb := setRatio(a), setRatio(b)
		if ra != rb {
			return ra > rb
		}
	} else if a.SetDiff != b.SetDiff {
		return a.SetDiff > b.SetDiff
	}
	if a.GameDiff != b.GameDiff {
		return a.GameDiff > b.GameDiff
	}
	return false
}

func noGames(s *models.Standing) bool { return s.GamesWon == 0 && s.GamesLost == 0 }

func setRatio(s *models.Standing) float64 {
	if s.SetsLost == 0 {
		if s.SetsWon == 0 {
			return 0
		}
		return float64(s.SetsWon) * 1e6
	}
	return float64(s.SetsWon) / float64(s.SetsLost)
}

// Validate checks that positions form a contiguous permutation of 1..N and
// that every participant appears exactly once.
func Validate(table []models.Standing) error {
	seenPos := make([]bool, len(table)+1)
	seenID := make(map[string]struct{}, len(table))
	for _, s := range table {
		if s.Position < 1 || s.Position > len(table) || seenPos[s.Position] {
			return fmt.Errorf("%w: position %d", ErrCorruptPositions, s.Position)
		}
		seenPos[s.Position] = true
		if _, dup := seenID[s.ParticipantID]; dup {
			return fmt.Errorf("%w: duplicate row for %s", ErrCorruptPositions, s.ParticipantID)
		}
		seenID[s.ParticipantID] = struct{}{}
	}
	return nil
}

func indexOf(table []models.Standing, id string) int {
	if id == "" {
		return -1
	}
	for i := range table {
		if table[i].ParticipantID == id {
			return i
		}
	}
	return -1
}
