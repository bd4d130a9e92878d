package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/repositories"
	"github.com/Dosada05/competition-engine/services"
	. "github.com/smartystreets/goconvey/convey"
)

var start = time.Date(2026, 4, 4, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []models.Event
	fail   error
}

func (r *recorder) Notify(_ context.Context, ev models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.fail
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type archiveSpy struct {
	mu       sync.Mutex
	archived []string
}

func (a *archiveSpy) ArchiveCompetition(_ context.Context, c *models.Competition, _ []*models.Match) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, c.ID)
	return nil
}

type harness struct {
	store   *repositories.MemoryStore
	engine  *services.Engine
	notes   *recorder
	archive *archiveSpy
	staff   context.Context
}

func newHarness() *harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewMemoryStore(repositories.WithClock(func() time.Time { return start }))
	coord := services.NewCoordinator(store, services.CoordinatorConfig{MaxAttempts: 5, BaseBackoff: time.Millisecond}, logger, nil)
	seq := 0
	h := &harness{
		store:   store,
		notes:   &recorder{},
		archive: &archiveSpy{},
		staff:   services.WithCaller(context.Background(), services.Caller{UserID: "org", Role: services.RoleOrganizer}),
	}
	h.engine = services.NewEngine(coord, logger,
		services.WithNotifier(h.notes),
		services.WithArchiver(h.archive),
		services.WithClock(func() time.Time { return start }),
		services.WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)
	return h
}

func player(id string) context.Context {
	return services.WithCaller(context.Background(), services.Caller{UserID: id, Role: services.RolePlayer})
}

func entries(n int) []models.Participant {
	out := make([]models.Participant, n)
	for i := range out {
		out[i] = models.Participant{
			ID:       fmt.Sprintf("p%d", i+1),
			Kind:     models.ParticipantIndividual,
			PlayerID: fmt.Sprintf("u%d", i+1),
		}
	}
	return out
}

func sets(games ...int) *models.Score {
	s := &models.Score{}
	for i := 0; i+1 < len(games); i += 2 {
		s.Sets = append(s.Sets, models.SetScore{A: games[i], B: games[i+1]})
	}
	return s
}

func (h *harness) create(kind models.CompetitionKind, n int, settings *models.CompetitionSettings) *models.Competition {
	c, err := h.engine.CreateCompetition(h.staff, services.CreateCompetitionInput{
		Name:         "Club Championship",
		Kind:         kind,
		GameType:     models.GameTypeSingles,
		Settings:     settings,
		Participants: entries(n),
	})
	So(err, ShouldBeNil)
	return c
}

func (h *harness) submit(competitionID, matchID, winner string, score *models.Score) *services.SubmitResultOutput {
	out, err := h.engine.SubmitResult(h.staff, services.SubmitResultInput{
		CompetitionID: competitionID, MatchID: matchID, WinnerID: winner, Score: score,
	})
	So(err, ShouldBeNil)
	return out
}

func (h *harness) match(competitionID, matchID string) *models.Match {
	view, err := h.engine.GetCompetition(context.Background(), competitionID)
	So(err, ShouldBeNil)
	for _, m := range view.Matches {
		if m.ID == matchID {
			return m
		}
	}
	return nil
}

func (h *harness) competition(id string) *models.Competition {
	view, err := h.engine.GetCompetition(context.Background(), id)
	So(err, ShouldBeNil)
	return view.Competition
}

func rating(h *harness, playerID string) *models.RatingProfile {
	p, err := h.engine.GetRating(context.Background(), models.RatingKey{PlayerID: playerID, Scope: models.ScopeGlobal, GameType: models.GameTypeSingles})
	So(err, ShouldBeNil)
	return p
}

func order(table []models.Standing) []string {
	ids := make([]string, len(table))
	for i, row := range table {
		ids[i] = row.ParticipantID
	}
	return ids
}

func TestLeagueToPlayoffs(t *testing.T) {
	Convey("Given a four player league", t, func() {
		h := newHarness()
		c := h.create(models.KindLeague, 4, nil)
		So(c.Status, ShouldEqual, models.StatusPreparing)

		gen, err := h.engine.GenerateRoundRobin(h.staff, c.ID)
		So(err, ShouldBeNil)
		So(gen.Matches, ShouldEqual, 6)
		So(gen.Rounds, ShouldEqual, 3)

		c = h.competition(c.ID)
		So(c.Status, ShouldEqual, models.StatusOngoing)
		So(c.CurrentRound, ShouldEqual, 1)
		So(order(c.Standings), ShouldResemble, []string{"p1", "p2", "p3", "p4"})

		Convey("When the first fixture is played", func() {
			out := h.submit(c.ID, "RR1M1", "p1", sets(6, 2, 6, 3))
			So(out.NextMatchID, ShouldBeNil)
			So(out.CompetitionCompleted, ShouldBeFalse)
			So(out.RatingChanges, ShouldHaveLength, 2)

			Convey("Then ratings move by sixteen points each way", func() {
				So(rating(h, "u1").Rating, ShouldEqual, 1216)
				So(rating(h, "u1").MatchesPlayed, ShouldEqual, 1)
				So(rating(h, "u4").Rating, ShouldEqual, 1184)
			})

			Convey("Then the table and career record reflect the result", func() {
				table, err := h.engine.GetStandings(context.Background(), c.ID)
				So(err, ShouldBeNil)
				So(table[0].ParticipantID, ShouldEqual, "p1")
				So(table[0].Points, ShouldEqual, 3)
				So(table[0].SetsWon, ShouldEqual, 2)
				So(table[0].GamesWon, ShouldEqual, 12)

				stats, err := h.engine.GetPlayerStats(context.Background(), "u4")
				So(err, ShouldBeNil)
				So(stats.MatchesPlayed, ShouldEqual, 1)
				So(stats.Losses, ShouldEqual, 1)
				So(stats.Competitions, ShouldResemble, []string{c.ID})
			})

			Convey("Then resubmitting is rejected without changing anything", func() {
				_, err := h.engine.SubmitResult(h.staff, services.SubmitResultInput{
					CompetitionID: c.ID, MatchID: "RR1M1", WinnerID: "p4", Score: sets(2, 6, 3, 6),
				})
				So(services.KindOf(err), ShouldEqual, services.KindFailedPrecondition)
				So(errors.Is(err, services.ErrMatchAlreadyCompleted), ShouldBeTrue)
				So(rating(h, "u1").Rating, ShouldEqual, 1216)
				So(rating(h, "u1").MatchesPlayed, ShouldEqual, 1)
				So(*h.match(c.ID, "RR1M1").WinnerID, ShouldEqual, "p1")
			})

			Convey("Then playoffs cannot start before the season ends", func() {
				_, err := h.engine.GeneratePlayoffs(h.staff, c.ID)
				So(errors.Is(err, services.ErrRegularSeasonIncomplete), ShouldBeTrue)
				So(services.KindOf(err), ShouldEqual, services.KindFailedPrecondition)
			})
		})

		Convey("When a winner outside the match is submitted", func() {
			_, err := h.engine.SubmitResult(h.staff, services.SubmitResultInput{
				CompetitionID: c.ID, MatchID: "RR1M2", WinnerID: "p1", Score: sets(6, 4, 6, 4),
			})

			Convey("Then it is an internal error and nothing is written", func() {
				So(services.KindOf(err), ShouldEqual, services.KindInternal)
				So(errors.Is(err, services.ErrWinnerNotInMatch), ShouldBeTrue)
				So(h.match(c.ID, "RR1M2").Status, ShouldEqual, models.MatchStatusScheduled)
			})
		})

		Convey("When the score favours the other side", func() {
			_, err := h.engine.SubmitResult(h.staff, services.SubmitResultInput{
				CompetitionID: c.ID, MatchID: "RR1M2", WinnerID: "p2", Score: sets(4, 6, 4, 6),
			})
			So(services.KindOf(err), ShouldEqual, services.KindInvalidArgument)
		})

		Convey("When the score is missing", func() {
			_, err := h.engine.SubmitResult(h.staff, services.SubmitResultInput{CompetitionID: c.ID, MatchID: "RR1M2", WinnerID: "p2"})
			So(services.KindOf(err), ShouldEqual, services.KindInvalidArgument)
		})

		Convey("When a player outside the match submits", func() {
			_, err := h.engine.SubmitResult(player("u2"), services.SubmitResultInput{
				CompetitionID: c.ID, MatchID: "RR1M1", WinnerID: "p1", Score: sets(6, 0, 6, 0),
			})
			So(services.KindOf(err), ShouldEqual, services.KindPermissionDenied)
		})

		Convey("When a player in the match submits", func() {
			_, err := h.engine.SubmitResult(player("u4"), services.SubmitResultInput{
				CompetitionID: c.ID, MatchID: "RR1M1", WinnerID: "p1", Score: sets(6, 0, 6, 0),
			})
			So(err, ShouldBeNil)
		})

		Convey("When the whole season and the playoffs are played", func() {
			h.submit(c.ID, "RR1M1", "p1", sets(6, 2, 6, 3))
			h.submit(c.ID, "RR1M2", "p2", sets(6, 4, 6, 4))
			h.submit(c.ID, "RR2M1", "p1", sets(3, 6, 4, 6))
			h.submit(c.ID, "RR2M2", "p2", sets(2, 6, 2, 6))
			h.submit(c.ID, "RR3M1", "p1", sets(6, 4, 7, 5))
			last := h.submit(c.ID, "RR3M2", "p3", sets(6, 1, 6, 1))
			So(last.PlayoffsGenerated, ShouldBeFalse)

			table, err := h.engine.GetStandings(context.Background(), c.ID)
			So(err, ShouldBeNil)
			So(order(table), ShouldResemble, []string{"p1", "p2", "p3", "p4"})
			for i, row := range table {
				So(row.Position, ShouldEqual, i+1)
				So(row.Played, ShouldEqual, 3)
			}

			po, err := h.engine.GeneratePlayoffs(h.staff, c.ID)
			So(err, ShouldBeNil)
			So(po.Shape, ShouldEqual, models.PlayoffShapeFour)
			So(po.QualifiedIDs, ShouldResemble, []string{"p1", "p2", "p3", "p4"})
			So(po.MatchIDs, ShouldHaveLength, 4)

			c = h.competition(c.ID)
			So(c.Status, ShouldEqual, models.StatusPlayoffs)
			So(c.CurrentRound, ShouldEqual, 4)

			sf1 := h.submit(c.ID, "PO-SF1", "p1", sets(6, 3, 6, 3))
			So(*sf1.NextMatchID, ShouldEqual, "PO-F")
			So(h.match(c.ID, "PO-F").Status, ShouldEqual, models.MatchStatusPending)

			h.submit(c.ID, "PO-SF2", "p3", sets(4, 6, 4, 6))
			final := h.match(c.ID, "PO-F")
			So(final.Status, ShouldEqual, models.MatchStatusScheduled)
			So(final.SlotA.ParticipantID(), ShouldEqual, "p1")
			So(final.SlotB.ParticipantID(), ShouldEqual, "p3")
			consolation := h.match(c.ID, "PO-C")
			So(consolation.SlotA.ParticipantID(), ShouldEqual, "p4")
			So(consolation.SlotB.ParticipantID(), ShouldEqual, "p2")

			out := h.submit(c.ID, "PO-F", "p3", sets(3, 6, 3, 6))
			So(out.CompetitionCompleted, ShouldBeTrue)

			c = h.competition(c.ID)
			So(c.Status, ShouldEqual, models.StatusCompleted)
			So(*c.ChampionID, ShouldEqual, "p3")
			So(*c.RunnerUpID, ShouldEqual, "p1")
			So(c.CompletedAt, ShouldNotBeNil)
			So(h.archive.archived, ShouldResemble, []string{c.ID})

			Convey("Then the consolation match still settles third place", func() {
				h.submit(c.ID, "PO-C", "p2", sets(2, 6, 2, 6))
				c = h.competition(c.ID)
				So(*c.ThirdPlaceID, ShouldEqual, "p2")
				So(c.Status, ShouldEqual, models.StatusCompleted)
			})

			Convey("Then career records cover season and playoffs", func() {
				stats, err := h.engine.GetPlayerStats(context.Background(), "u1")
				So(err, ShouldBeNil)
				So(stats.MatchesPlayed, ShouldEqual, 5)
				So(stats.Wins, ShouldEqual, 4)
				So(stats.Losses, ShouldEqual, 1)
			})

			Convey("Then completing again is rejected", func() {
				_, err := h.engine.CompleteCompetition(h.staff, c.ID)
				So(services.KindOf(err), ShouldEqual, services.KindFailedPrecondition)
			})

			Convey("Then listeners saw the whole story", func() {
				types := h.notes.types()
				So(types, ShouldContain, models.EventFixturesGenerated)
				So(types, ShouldContain, models.EventStandingsUpdated)
				So(types, ShouldContain, models.EventPlayoffsGenerated)
				So(types, ShouldContain, models.EventCompetitionCompleted)
			})
		})
	})
}

func TestLeaguePlayoffModes(t *testing.T) {
	Convey("Given a three player league that generates playoffs automatically", t, func() {
		h := newHarness()
		c := h.create(models.KindLeague, 3, &models.CompetitionSettings{PlayoffMode: models.PlayoffAuto})
		gen, err := h.engine.GenerateRoundRobin(h.staff, c.ID)
		So(err, ShouldBeNil)
		So(gen.Matches, ShouldEqual, 3)
		So(gen.Rounds, ShouldEqual, 3)

		h.submit(c.ID, "RR1M1", "p2", sets(6, 0, 6, 0))
		h.submit(c.ID, "RR2M1", "p1", sets(0, 6, 0, 6))
		out := h.submit(c.ID, "RR3M1", "p1", sets(6, 0, 6, 0))
		So(out.PlayoffsGenerated, ShouldBeTrue)

		c = h.competition(c.ID)
		So(c.Status, ShouldEqual, models.StatusPlayoffs)
		So(c.Playoff.Shape, ShouldEqual, models.PlayoffShapeFinal)
		So(c.CurrentRound, ShouldEqual, 4)

		final := h.match(c.ID, "PO-F")
		So(final.SlotA.ParticipantID(), ShouldEqual, "p1")
		So(final.SlotB.ParticipantID(), ShouldEqual, "p2")

		done := h.submit(c.ID, "PO-F", "p2", sets(3, 6, 3, 6))
		So(done.CompetitionCompleted, ShouldBeTrue)
		So(*done.ChampionID, ShouldEqual, "p2")
	})

	Convey("Given a two player league without playoffs", t, func() {
		h := newHarness()
		c := h.create(models.KindLeague, 2, &models.CompetitionSettings{PlayoffMode: models.PlayoffNone})
		_, err := h.engine.GenerateRoundRobin(h.staff, c.ID)
		So(err, ShouldBeNil)

		out := h.submit(c.ID, "RR1M1", "p2", sets(4, 6, 4, 6))
		So(out.CompetitionCompleted, ShouldBeTrue)

		c = h.competition(c.ID)
		So(*c.ChampionID, ShouldEqual, "p2")
		So(*c.RunnerUpID, ShouldEqual, "p1")
	})

	Convey("Given a manual league whose season is over", t, func() {
		h := newHarness()
		c := h.create(models.KindLeague, 2, nil)
		_, err := h.engine.GenerateRoundRobin(h.staff, c.ID)
		So(err, ShouldBeNil)
		h.submit(c.ID, "RR1M1", "p1", sets(6, 4, 6, 4))

		Convey("completeCompetition finalizes it from the table", func() {
			res, err := h.engine.CompleteCompetition(h.staff, c.ID)
			So(err, ShouldBeNil)
			So(res.ChampionID, ShouldEqual, "p1")
			So(res.RunnerUpID, ShouldEqual, "p2")
			So(h.competition(c.ID).Status, ShouldEqual, models.StatusCompleted)
		})
	})

	Convey("Given a league that enforces round order", t, func() {
		h := newHarness()
		c := h.create(models.KindLeague, 4, &models.CompetitionSettings{StrictRounds: true})
		_, err := h.engine.GenerateRoundRobin(h.staff, c.ID)
		So(err, ShouldBeNil)

		_, err = h.engine.SubmitResult(h.staff, services.SubmitResultInput{
			CompetitionID: c.ID, MatchID: "RR2M1", WinnerID: "p1", Score: sets(3, 6, 3, 6),
		})
		So(errors.Is(err, services.ErrRoundNotResolved), ShouldBeTrue)

		h.submit(c.ID, "RR1M1", "p1", sets(6, 0, 6, 0))
		h.submit(c.ID, "RR1M2", "p2", sets(6, 0, 6, 0))
		So(h.competition(c.ID).CurrentRound, ShouldEqual, 2)
		h.submit(c.ID, "RR2M1", "p1", sets(3, 6, 3, 6))
	})

	Convey("generateRoundRobin needs a league in preparing", t, func() {
		h := newHarness()
		b := h.create(models.KindBracket, 4, nil)
		_, err := h.engine.GenerateRoundRobin(h.staff, b.ID)
		So(services.KindOf(err), ShouldEqual, services.KindFailedPrecondition)

		l := h.create(models.KindLeague, 4, nil)
		_, err = h.engine.GenerateRoundRobin(h.staff, l.ID)
		So(err, ShouldBeNil)
		_, err = h.engine.GenerateRoundRobin(h.staff, l.ID)
		So(services.KindOf(err), ShouldEqual, services.KindFailedPrecondition)
	})
}

func TestBracketFlow(t *testing.T) {
	Convey("Given a five player bracket", t, func() {
		h := newHarness()
		c := h.create(models.KindBracket, 5, nil)
		So(c.Status, ShouldEqual, models.StatusDraft)

		gen, err := h.engine.GenerateBracket(h.staff, c.ID)
		So(err, ShouldBeNil)
		So(gen.Matches, ShouldEqual, 7)
		So(gen.Rounds, ShouldEqual, 3)

		Convey("Generating twice is rejected", func() {
			_, err := h.engine.GenerateBracket(h.staff, c.ID)
			So(services.KindOf(err), ShouldEqual, services.KindAlreadyExists)
		})

		Convey("Byes are already resolved and the rest plays through", func() {
			So(h.match(c.ID, "R1M1").IsBye, ShouldBeTrue)
			So(h.match(c.ID, "R2M2").Status, ShouldEqual, models.MatchStatusScheduled)

			out := h.submit(c.ID, "R1M2", "p4", sets(6, 0, 6, 0))
			So(*out.NextMatchID, ShouldEqual, "R2M1")
			So(h.match(c.ID, "R2M1").Status, ShouldEqual, models.MatchStatusScheduled)
			So(h.competition(c.ID).CurrentRound, ShouldEqual, 2)

			_, err := h.engine.StartMatch(player("u1"), c.ID, "R2M1")
			So(err, ShouldBeNil)
			So(h.match(c.ID, "R2M1").Status, ShouldEqual, models.MatchStatusInProgress)
			_, err = h.engine.StartMatch(h.staff, c.ID, "R2M1")
			So(errors.Is(err, services.ErrMatchAlreadyStarted), ShouldBeTrue)

			h.submit(c.ID, "R2M1", "p1", sets(6, 1, 6, 1))
			wo := h.submit(c.ID, "R2M2", "p3", &models.Score{Walkover: true})
			So(wo.RatingChanges, ShouldHaveLength, 2)
			for _, ch := range wo.RatingChanges {
				So(ch.Delta, ShouldEqual, 0)
				So(ch.After, ShouldEqual, ch.Before)
			}
			So(h.match(c.ID, "R2M2").Score.Final, ShouldEqual, "W/O")

			_, err = h.engine.GetRating(context.Background(), models.RatingKey{PlayerID: "u3", Scope: models.ScopeGlobal, GameType: models.GameTypeSingles})
			So(services.KindOf(err), ShouldEqual, services.KindNotFound)

			done := h.submit(c.ID, "R3M1", "p1", sets(6, 4, 3, 6, 6, 2))
			So(done.CompetitionCompleted, ShouldBeTrue)

			c = h.competition(c.ID)
			So(*c.ChampionID, ShouldEqual, "p1")
			So(*c.RunnerUpID, ShouldEqual, "p3")
		})

		Convey("A pending match cannot be decided", func() {
			_, err := h.engine.SubmitResult(h.staff, services.SubmitResultInput{
				CompetitionID: c.ID, MatchID: "R3M1", WinnerID: "p1", Score: sets(6, 0, 6, 0),
			})
			So(errors.Is(err, services.ErrMatchNotReady), ShouldBeTrue)
		})

		Convey("Unknown matches are not found", func() {
			_, err := h.engine.SubmitResult(h.staff, services.SubmitResultInput{
				CompetitionID: c.ID, MatchID: "R9M9", WinnerID: "p1", Score: sets(6, 0, 6, 0),
			})
			So(services.KindOf(err), ShouldEqual, services.KindNotFound)
		})
	})

	Convey("A bracket with one entry cannot be generated", t, func() {
		h := newHarness()
		c := h.create(models.KindBracket, 1, nil)
		_, err := h.engine.GenerateBracket(h.staff, c.ID)
		So(errors.Is(err, services.ErrNotEnoughParticipants), ShouldBeTrue)
		So(services.KindOf(err), ShouldEqual, services.KindFailedPrecondition)
	})
}

func TestRegistrationAndSeeds(t *testing.T) {
	Convey("Given a bracket open for registration", t, func() {
		h := newHarness()
		c := h.create(models.KindBracket, 4, nil)
		_, err := h.engine.SetStatus(h.staff, c.ID, models.StatusRegistration)
		So(err, ShouldBeNil)

		Convey("A player can enter themselves", func() {
			p, err := h.engine.RegisterParticipant(player("u9"), c.ID, models.Participant{Kind: models.ParticipantIndividual, PlayerID: "u9"})
			So(err, ShouldBeNil)
			So(p.ID, ShouldNotBeEmpty)
			So(h.competition(c.ID).Participants, ShouldHaveLength, 5)
		})

		Convey("A player cannot enter someone else", func() {
			_, err := h.engine.RegisterParticipant(player("u9"), c.ID, models.Participant{Kind: models.ParticipantIndividual, PlayerID: "u8"})
			So(services.KindOf(err), ShouldEqual, services.KindPermissionDenied)
		})

		Convey("A player already entered is rejected", func() {
			_, err := h.engine.RegisterParticipant(h.staff, c.ID, models.Participant{Kind: models.ParticipantIndividual, PlayerID: "u2"})
			So(services.KindOf(err), ShouldEqual, services.KindAlreadyExists)
		})

		Convey("Seeds are assigned and removed", func() {
			res, err := h.engine.AssignSeeds(h.staff, c.ID, []services.SeedAssignment{{ParticipantID: "p3", Seed: 1}, {ParticipantID: "p4", Seed: 2}})
			So(err, ShouldBeNil)
			So(res.Assigned, ShouldEqual, 2)

			res, err = h.engine.AssignSeeds(h.staff, c.ID, []services.SeedAssignment{{ParticipantID: "p3", Seed: 0}})
			So(err, ShouldBeNil)
			So(res.Removed, ShouldEqual, 1)
			So(res.Assigned, ShouldEqual, 0)

			_, err = h.engine.AssignSeeds(h.staff, c.ID, []services.SeedAssignment{{ParticipantID: "p1", Seed: 2}})
			So(errors.Is(err, services.ErrDuplicateSeed), ShouldBeTrue)
		})

		Convey("Seeds outside 0..N are rejected", func() {
			_, err := h.engine.AssignSeeds(h.staff, c.ID, []services.SeedAssignment{{ParticipantID: "p1", Seed: 5}})
			So(errors.Is(err, services.ErrSeedOutOfRange), ShouldBeTrue)
		})

		Convey("Unknown participants are not found", func() {
			_, err := h.engine.AssignSeeds(h.staff, c.ID, []services.SeedAssignment{{ParticipantID: "nobody", Seed: 1}})
			So(services.KindOf(err), ShouldEqual, services.KindNotFound)
		})

		Convey("Seeds shape the draw", func() {
			_, err := h.engine.AssignSeeds(h.staff, c.ID, []services.SeedAssignment{{ParticipantID: "p4", Seed: 1}})
			So(err, ShouldBeNil)
			_, err = h.engine.GenerateBracket(h.staff, c.ID)
			So(err, ShouldBeNil)
			So(h.match(c.ID, "R1M1").SlotA.ParticipantID(), ShouldEqual, "p4")

			Convey("and are frozen once the bracket exists", func() {
				_, err := h.engine.AssignSeeds(h.staff, c.ID, []services.SeedAssignment{{ParticipantID: "p1", Seed: 1}})
				So(services.KindOf(err), ShouldEqual, services.KindFailedPrecondition)

				_, err = h.engine.RegisterParticipant(h.staff, c.ID, models.Participant{Kind: models.ParticipantIndividual, PlayerID: "u7"})
				So(errors.Is(err, services.ErrRegistrationClosed), ShouldBeTrue)
			})
		})

		Convey("Players cannot manage competitions", func() {
			_, err := h.engine.AssignSeeds(player("u1"), c.ID, []services.SeedAssignment{{ParticipantID: "p1", Seed: 1}})
			So(services.KindOf(err), ShouldEqual, services.KindPermissionDenied)
		})
	})
}

func TestCoordinatorBehaviour(t *testing.T) {
	Convey("Given a league", t, func() {
		h := newHarness()
		c := h.create(models.KindLeague, 2, nil)
		_, err := h.engine.GenerateRoundRobin(h.staff, c.ID)
		So(err, ShouldBeNil)

		Convey("Conflicting commits are retried transparently", func() {
			h.store.InjectConflicts(2)
			out := h.submit(c.ID, "RR1M1", "p1", sets(6, 3, 6, 3))
			So(out.MatchID, ShouldEqual, "RR1M1")
			So(rating(h, "u1").MatchesPlayed, ShouldEqual, 1)
		})

		Convey("Persistent conflicts surface as an internal error with no writes", func() {
			h.store.InjectConflicts(10)
			_, err := h.engine.SubmitResult(h.staff, services.SubmitResultInput{
				CompetitionID: c.ID, MatchID: "RR1M1", WinnerID: "p1", Score: sets(6, 3, 6, 3),
			})
			So(services.KindOf(err), ShouldEqual, services.KindInternal)
			h.store.InjectConflicts(0)
			So(h.match(c.ID, "RR1M1").Status, ShouldEqual, models.MatchStatusScheduled)
		})

		Convey("A failing notifier only produces a warning", func() {
			h.notes.fail = errors.New("socket gone")
			out := h.submit(c.ID, "RR1M1", "p1", sets(6, 3, 6, 3))
			So(out.Warnings, ShouldNotBeEmpty)
			So(h.match(c.ID, "RR1M1").Status, ShouldEqual, models.MatchStatusCompleted)
		})
	})

	Convey("Missing competitions are not found", t, func() {
		h := newHarness()
		_, err := h.engine.GetCompetition(context.Background(), "missing")
		So(services.KindOf(err), ShouldEqual, services.KindNotFound)
		_, err = h.engine.GenerateBracket(h.staff, "missing")
		So(services.KindOf(err), ShouldEqual, services.KindNotFound)
	})
}

func pair(id, playerID, partnerID string) models.Participant {
	return models.Participant{ID: id, Kind: models.ParticipantTeam, PlayerID: playerID, PartnerID: &partnerID}
}

func seedProfile(h *harness, p models.RatingProfile) {
	tx, err := h.store.Begin(context.Background())
	So(err, ShouldBeNil)
	m, err := repositories.Set(repositories.RatingRef(p.Key()), p)
	So(err, ShouldBeNil)
	So(tx.Commit(context.Background(), []repositories.Mutation{m}), ShouldBeNil)
}

func TestClubDoublesRatings(t *testing.T) {
	Convey("Given a club doubles bracket", t, func() {
		h := newHarness()
		club := "riverside"
		scope := models.ClubScope(club)
		key := func(playerID string) models.RatingKey {
			return models.RatingKey{PlayerID: playerID, Scope: scope, GameType: models.GameTypeDoubles}
		}
		seedProfile(h, models.RatingProfile{PlayerID: "c2", Scope: scope, GameType: models.GameTypeDoubles, Rating: 1200, MatchesPlayed: 40})

		c, err := h.engine.CreateCompetition(h.staff, services.CreateCompetitionInput{
			Name:     "Riverside Doubles",
			Kind:     models.KindBracket,
			ClubID:   &club,
			GameType: models.GameTypeDoubles,
			Participants: []models.Participant{
				pair("t1", "a1", "a2"),
				pair("t2", "b1", "b2"),
				pair("t3", "c1", "c2"),
				pair("t4", "d1", "d2"),
			},
		})
		So(err, ShouldBeNil)
		_, err = h.engine.GenerateBracket(h.staff, c.ID)
		So(err, ShouldBeNil)
		So(h.match(c.ID, "R1M1").SlotA.ParticipantID(), ShouldEqual, "t1")
		So(h.match(c.ID, "R1M1").SlotB.ParticipantID(), ShouldEqual, "t4")

		Convey("A retirement counts in full even when the winner trails on sets", func() {
			out := h.submit(c.ID, "R1M1", "t1", &models.Score{
				Sets:    []models.SetScore{{A: 2, B: 6}, {A: 3, B: 3}},
				Retired: true,
			})
			So(*out.NextMatchID, ShouldEqual, "R2M1")
			So(*h.match(c.ID, "R1M1").WinnerID, ShouldEqual, "t1")
			So(h.match(c.ID, "R2M1").SlotA.ParticipantID(), ShouldEqual, "t1")

			So(out.RatingChanges, ShouldHaveLength, 4)
			want := map[string]int{"a1": 16, "a2": 16, "d1": -16, "d2": -16}
			for _, ch := range out.RatingChanges {
				So(ch.Key.Scope, ShouldEqual, scope)
				So(ch.Key.GameType, ShouldEqual, models.GameTypeDoubles)
				So(ch.Delta, ShouldEqual, want[ch.Key.PlayerID])
			}
			for id, delta := range want {
				p, err := h.engine.GetRating(context.Background(), key(id))
				So(err, ShouldBeNil)
				So(p.Rating, ShouldEqual, 1200+delta)
				So(p.MatchesPlayed, ShouldEqual, 1)
			}

			Convey("and leaves profiles of other scopes and game types alone", func() {
				for _, other := range []models.RatingKey{
					{PlayerID: "a1", Scope: models.ScopeGlobal, GameType: models.GameTypeDoubles},
					{PlayerID: "a1", Scope: models.ScopeGlobal, GameType: models.GameTypeSingles},
					{PlayerID: "d2", Scope: scope, GameType: models.GameTypeSingles},
				} {
					_, err := h.engine.GetRating(context.Background(), other)
					So(services.KindOf(err), ShouldEqual, services.KindNotFound)
				}
			})
		})

		Convey("Teammates move by their own K", func() {
			out := h.submit(c.ID, "R1M2", "t3", sets(4, 6, 4, 6))
			deltas := make(map[string]int)
			for _, ch := range out.RatingChanges {
				deltas[ch.Key.PlayerID] = ch.Delta
			}
			So(deltas, ShouldResemble, map[string]int{"b1": -16, "b2": -16, "c1": 16, "c2": 8})

			veteran, err := h.engine.GetRating(context.Background(), key("c2"))
			So(err, ShouldBeNil)
			So(veteran.Rating, ShouldEqual, 1208)
			So(veteran.MatchesPlayed, ShouldEqual, 41)
		})
	})
}

func TestConcurrentResults(t *testing.T) {
	Convey("Given a four player bracket", t, func() {
		h := newHarness()
		c := h.create(models.KindBracket, 4, nil)
		_, err := h.engine.GenerateBracket(h.staff, c.ID)
		So(err, ShouldBeNil)

		Convey("Both semifinals submitted at once fill the final", func() {
			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, in := range []services.SubmitResultInput{
				{CompetitionID: c.ID, MatchID: "R1M1", WinnerID: "p1", Score: sets(6, 2, 6, 2)},
				{CompetitionID: c.ID, MatchID: "R1M2", WinnerID: "p3", Score: sets(3, 6, 3, 6)},
			} {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = h.engine.SubmitResult(h.staff, in)
				}()
			}
			wg.Wait()
			So(errs[0], ShouldBeNil)
			So(errs[1], ShouldBeNil)

			final := h.match(c.ID, "R2M1")
			So(final.SlotA.ParticipantID(), ShouldEqual, "p1")
			So(final.SlotB.ParticipantID(), ShouldEqual, "p3")
			So(final.Status, ShouldEqual, models.MatchStatusScheduled)
			So(rating(h, "u1").MatchesPlayed, ShouldEqual, 1)
			So(rating(h, "u3").MatchesPlayed, ShouldEqual, 1)
		})

		Convey("The same result submitted concurrently is recorded once", func() {
			const writers = 4
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted int
				rejected []error
			)
			for range writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := h.engine.SubmitResult(h.staff, services.SubmitResultInput{
						CompetitionID: c.ID, MatchID: "R1M1", WinnerID: "p1", Score: sets(6, 2, 6, 2),
					})
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						accepted++
						return
					}
					rejected = append(rejected, err)
				}()
			}
			wg.Wait()
			So(accepted, ShouldEqual, 1)
			So(rejected, ShouldHaveLength, writers-1)
			for _, err := range rejected {
				So(errors.Is(err, services.ErrMatchAlreadyCompleted), ShouldBeTrue)
			}
			So(rating(h, "u1").Rating, ShouldEqual, 1216)
			So(rating(h, "u1").MatchesPlayed, ShouldEqual, 1)
		})
	})
}
