package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/trentd187/matchplay/internal/events"
	"github.com/trentd187/matchplay/internal/models"
	"github.com/trentd187/matchplay/internal/testutil"
)

type capture struct {
	mu      sync.Mutex
	updates []events.MatchUpdate
	err     error
}

func (c *capture) Publish(_ context.Context, u events.MatchUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
	return c.err
}

func (c *capture) completions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, u := range c.updates {
		if u.Completed {
			n++
		}
	}
	return n
}

type EngineSuite struct {
	suite.Suite
	ctx context.Context
	fx  *testutil.Fixture
	pub *capture
	eng *Engine

	aviator  models.Player
	producer models.Player
	match    models.Match
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	db := testutil.NewDB(s.T())
	s.fx = testutil.NewFixture(s.T(), db)
	s.pub = &capture{}
	s.eng = New(db, WithPublisher(s.pub), WithLogger(testutil.QuietLogger()))

	s.aviator = s.fx.Player(s.T(), "Amelia", models.SideAviators)
	s.producer = s.fx.Player(s.T(), "Orson", models.SideProducers)
	s.match = s.fx.Match(s.T(), s.fx.Round, "Match 1")
	s.register(s.match, s.aviator)
	s.register(s.match, s.producer)
}

func (s *EngineSuite) register(m models.Match, p models.Player) {
	_, err := s.eng.RegisterParticipant(s.ctx, m.ID, p.ID, p.Team)
	s.Require().NoError(err)
}

func (s *EngineSuite) score(m models.Match, p models.Player, hole, gross int) *models.TeamHoleScore {
	ths, err := s.eng.SubmitPlayerScore(s.ctx, p.ID, m.ID, hole, &gross)
	s.Require().NoError(err)
	return ths
}

// play enters both players' scores for consecutive holes starting at 1.
// A = aviator wins the hole, P = producer wins, T = halved.
func (s *EngineSuite) play(m models.Match, av, pr models.Player, pattern string) {
	for i, c := range pattern {
		hole := i + 1
		switch c {
		case 'A':
			s.score(m, av, hole, 3)
			s.score(m, pr, hole, 4)
		case 'P':
			s.score(m, av, hole, 5)
			s.score(m, pr, hole, 4)
		case 'T':
			s.score(m, av, hole, 4)
			s.score(m, pr, hole, 4)
		}
	}
}

func (s *EngineSuite) reload(dest any, id uuid.UUID) {
	s.Require().NoError(s.fx.DB.Where("id = ?", id).First(dest).Error)
}

func (s *EngineSuite) count(model any, query string, args ...any) int64 {
	var n int64
	s.Require().NoError(s.fx.DB.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (s *EngineSuite) TestBestBallResolvesHole() {
	partner := s.fx.Player(s.T(), "Wilbur", models.SideAviators)
	s.register(s.match, partner)

	s.score(s.match, s.aviator, 1, 5)
	ths := s.score(s.match, partner, 1, 4)
	s.Equal(models.WinnerNone, ths.WinningTeam, "producers have not posted")
	s.Require().NotNil(ths.AviatorScore)
	s.Equal(4, *ths.AviatorScore)
	s.Nil(ths.ProducerScore)

	ths = s.score(s.match, s.producer, 1, 6)
	s.Equal(models.WinnerAviators, ths.WinningTeam)
	s.Equal(6, *ths.ProducerScore)
	s.Equal(int64(1), s.count(&models.TeamHoleScore{}, "match_id = ?", s.match.ID))

	m, err := s.eng.GetMatchState(s.ctx, s.match.ID)
	s.Require().NoError(err)
	s.Equal(models.MatchStatusInProgress, m.Status)
	s.Equal(models.SideAviators, m.LeadingTeam)
	s.Equal(1, m.LeadAmount)
	s.Equal(2, m.CurrentHole)
	s.Nil(m.Result)
	s.Len(m.Participants, 3)

	totals, err := s.eng.GetRoundTotals(s.ctx, s.fx.Round.ID)
	s.Require().NoError(err)
	s.Equal(1.0, totals.PendingAviators)
	s.Equal(0.0, totals.Aviators)

	tt, err := s.eng.GetTournamentTotals(s.ctx, s.fx.Tournament.ID)
	s.Require().NoError(err)
	s.Equal(totals, tt)

	s.Require().NotEmpty(s.pub.updates)
	last := s.pub.updates[len(s.pub.updates)-1]
	s.Equal(1, last.Hole)
	s.Equal(s.fx.Round.ID, last.RoundID)
	s.Equal(s.fx.Tournament.ID, last.TournamentID)
}

func (s *EngineSuite) TestHandicapStrokesNetTheScore() {
	_, err := s.eng.SetCourseHandicap(s.ctx, s.aviator.ID, s.fx.Round.ID, 9)
	s.Require().NoError(err)

	strokes, err := s.eng.StrokesForHole(s.ctx, s.aviator.ID, s.fx.Round.ID, 1)
	s.Require().NoError(err)
	s.Equal(1, strokes)
	strokes, err = s.eng.StrokesForHole(s.ctx, s.aviator.ID, s.fx.Round.ID, 10)
	s.Require().NoError(err)
	s.Equal(0, strokes)

	s.score(s.match, s.aviator, 1, 5)
	s.score(s.match, s.aviator, 10, 5)

	var scores []models.PlayerScore
	s.Require().NoError(s.fx.DB.Where("player_id = ?", s.aviator.ID).Order("hole_number").Find(&scores).Error)
	s.Require().Len(scores, 2)
	s.Equal(1, scores[0].HandicapStrokes)
	s.Equal(4, *scores[0].NetScore)
	s.Equal(0, scores[1].HandicapStrokes)
	s.Equal(5, *scores[1].NetScore)
}

func (s *EngineSuite) TestPlusHandicapGetsNoStrokes() {
	pch, err := s.eng.SetCourseHandicap(s.ctx, s.aviator.ID, s.fx.Round.ID, -2)
	s.Require().NoError(err)
	s.Equal(-2, pch.CourseHandicap)

	strokes, err := s.eng.StrokesForHole(s.ctx, s.aviator.ID, s.fx.Round.ID, 1)
	s.Require().NoError(err)
	s.Equal(0, strokes)

	s.score(s.match, s.aviator, 1, 5)
	var ps models.PlayerScore
	s.Require().NoError(s.fx.DB.Where("player_id = ? AND hole_number = 1", s.aviator.ID).First(&ps).Error)
	s.Equal(0, ps.HandicapStrokes)
	s.Require().NotNil(ps.NetScore)
	s.Equal(5, *ps.NetScore)
}

func (s *EngineSuite) TestHandicapCorrectionRescoresMatch() {
	s.play(s.match, s.aviator, s.producer, "T")

	var hole models.TeamHoleScore
	s.Require().NoError(s.fx.DB.Where("match_id = ? AND hole_number = 1", s.match.ID).First(&hole).Error)
	s.Equal(models.WinnerTie, hole.WinningTeam)

	before := len(s.pub.updates)
	_, err := s.eng.SetCourseHandicap(s.ctx, s.aviator.ID, s.fx.Round.ID, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.fx.DB.Where("match_id = ? AND hole_number = 1", s.match.ID).First(&hole).Error)
	s.Equal(models.WinnerAviators, hole.WinningTeam)
	s.Equal(3, *hole.AviatorScore)

	m, err := s.eng.GetMatchState(s.ctx, s.match.ID)
	s.Require().NoError(err)
	s.Equal(models.SideAviators, m.LeadingTeam)
	s.Len(s.pub.updates, before+1)

	// Correcting it back restores the halve.
	_, err = s.eng.SetCourseHandicap(s.ctx, s.aviator.ID, s.fx.Round.ID, 0)
	s.Require().NoError(err)
	m, err = s.eng.GetMatchState(s.ctx, s.match.ID)
	s.Require().NoError(err)
	s.Equal(models.SideNone, m.LeadingTeam)
	s.Equal(0, m.LeadAmount)
}

func (s *EngineSuite) TestEarlyFinishCascadesOnce() {
	s.play(s.match, s.aviator, s.producer, "AAAAAAAAAA")

	m, err := s.eng.GetMatchState(s.ctx, s.match.ID)
	s.Require().NoError(err)
	s.Equal(models.MatchStatusCompleted, m.Status)
	s.Require().NotNil(m.Result)
	s.Equal("10 UP", *m.Result)
	s.NotNil(m.CompletedAt)
	s.Equal(1, s.pub.completions())

	var av, pr models.Player
	s.reload(&av, s.aviator.ID)
	s.reload(&pr, s.producer.ID)
	s.Equal(1, av.Wins)
	s.Equal(1, pr.Losses)

	var mts models.PlayerMatchTypeStat
	s.Require().NoError(s.fx.DB.Where("player_id = ? AND match_type = ?", av.ID, "best_ball").First(&mts).Error)
	s.Equal(1, mts.Wins)

	s.Equal(int64(2), s.count(&models.PlayerMatchupRecord{}, "match_id = ?", s.match.ID))
	var rec models.PlayerMatchupRecord
	s.Require().NoError(s.fx.DB.Where("player_id = ?", pr.ID).First(&rec).Error)
	s.Equal(av.ID, rec.OpponentID)
	s.Equal(models.OutcomeLoss, rec.Result)

	var tps models.TournamentPlayerStat
	s.Require().NoError(s.fx.DB.Where("tournament_id = ? AND player_id = ?", s.fx.Tournament.ID, av.ID).First(&tps).Error)
	s.Equal(1, tps.Wins)
	s.Equal(1.0, tps.Points)
	s.Equal(1, tps.MatchesPlayed)

	totals, err := s.eng.GetTournamentTotals(s.ctx, s.fx.Tournament.ID)
	s.Require().NoError(err)
	s.Equal(1.0, totals.Aviators)
	s.Equal(0.0, totals.PendingAviators)

	// Scores after completion refresh the lead but never re-fire the cascade.
	s.score(s.match, s.aviator, 11, 3)
	s.score(s.match, s.producer, 11, 4)

	m, err = s.eng.GetMatchState(s.ctx, s.match.ID)
	s.Require().NoError(err)
	s.Equal(models.MatchStatusCompleted, m.Status)
	s.Equal("11 UP", *m.Result)
	s.reload(&av, s.aviator.ID)
	s.Equal(1, av.Wins)
	s.Equal(int64(2), s.count(&models.PlayerMatchupRecord{}, "match_id = ?", s.match.ID))
	s.Equal(1, s.pub.completions())
}

func (s *EngineSuite) TestAllSquareAfterEighteen() {
	s.play(s.match, s.aviator, s.producer, "APAPAPAPAPAPAPAPAP")

	m, err := s.eng.GetMatchState(s.ctx, s.match.ID)
	s.Require().NoError(err)
	s.Equal(models.MatchStatusCompleted, m.Status)
	s.Equal("AS", *m.Result)
	s.Equal(models.SideNone, m.LeadingTeam)

	var av, pr models.Player
	s.reload(&av, s.aviator.ID)
	s.reload(&pr, s.producer.ID)
	s.Equal(1, av.Ties)
	s.Equal(1, pr.Ties)

	totals, err := s.eng.GetRoundTotals(s.ctx, s.fx.Round.ID)
	s.Require().NoError(err)
	s.Equal(0.5, totals.Aviators)
	s.Equal(0.5, totals.Producers)

	h2h, err := s.eng.HeadToHead(s.ctx, av.ID, pr.ID)
	s.Require().NoError(err)
	s.Equal(1, h2h.Record.Ties)
	s.Len(h2h.Matchups, 1)
}

func (s *EngineSuite) TestClearingAScoreUnresolvesTheHole() {
	s.play(s.match, s.aviator, s.producer, "A")

	ths, err := s.eng.SubmitPlayerScore(s.ctx, s.producer.ID, s.match.ID, 1, nil)
	s.Require().NoError(err)
	s.Equal(models.WinnerNone, ths.WinningTeam)
	s.Nil(ths.ProducerScore)

	m, err := s.eng.GetMatchState(s.ctx, s.match.ID)
	s.Require().NoError(err)
	s.Equal(models.MatchStatusNotStarted, m.Status)
	s.Equal(1, m.CurrentHole)

	totals, err := s.eng.GetRoundTotals(s.ctx, s.fx.Round.ID)
	s.Require().NoError(err)
	s.Zero(totals.PendingAviators)
}

func (s *EngineSuite) TestRejectsInvalidInput() {
	gross := 4
	zero := 0
	for _, tc := range []struct {
		name  string
		hole  int
		gross *int
	}{
		{"hole zero", 0, &gross},
		{"hole nineteen", 19, &gross},
		{"zero strokes", 1, &zero},
	} {
		_, err := s.eng.SubmitPlayerScore(s.ctx, s.aviator.ID, s.match.ID, tc.hole, tc.gross)
		var verr *ValidationError
		s.True(errors.As(err, &verr), tc.name)
	}
	s.Equal(int64(0), s.count(&models.PlayerScore{}, "match_id = ?", s.match.ID))
}

func (s *EngineSuite) TestLockedMatchRejectsScores() {
	m, err := s.eng.SetMatchLocked(s.ctx, s.match.ID, true)
	s.Require().NoError(err)
	s.True(m.Locked)

	gross := 4
	_, err = s.eng.SubmitPlayerScore(s.ctx, s.aviator.ID, s.match.ID, 1, &gross)
	var locked *MatchLockedError
	s.Require().ErrorAs(err, &locked)
	s.Equal(s.match.ID, locked.MatchID)
	s.Equal(int64(0), s.count(&models.PlayerScore{}, "match_id = ?", s.match.ID))

	_, err = s.eng.SetCourseHandicap(s.ctx, s.aviator.ID, s.fx.Round.ID, 5)
	s.ErrorAs(err, &locked)

	_, err = s.eng.SetMatchLocked(s.ctx, s.match.ID, false)
	s.Require().NoError(err)
	s.score(s.match, s.aviator, 1, 4)
}

func (s *EngineSuite) TestNonParticipantRejected() {
	stranger := s.fx.Player(s.T(), "Stranger", models.SideProducers)
	gross := 4
	_, err := s.eng.SubmitPlayerScore(s.ctx, stranger.ID, s.match.ID, 1, &gross)
	var npe *NotAParticipantError
	s.Require().ErrorAs(err, &npe)
	s.Equal(stranger.ID, npe.PlayerID)

	_, err = s.eng.SubmitPlayerScore(s.ctx, s.aviator.ID, uuid.New(), 1, &gross)
	s.ErrorIs(err, ErrNotFound)
}

func (s *EngineSuite) TestUnknownMatchLeavesNoLock() {
	before := s.eng.locks.size()
	gross := 4
	for i := 0; i < 5; i++ {
		_, err := s.eng.SubmitPlayerScore(s.ctx, s.aviator.ID, uuid.New(), 1, &gross)
		s.ErrorIs(err, ErrNotFound)
		_, err = s.eng.RegisterParticipant(s.ctx, uuid.New(), s.aviator.ID, models.SideAviators)
		s.ErrorIs(err, ErrNotFound)
		_, err = s.eng.SetMatchLocked(s.ctx, uuid.New(), true)
		s.ErrorIs(err, ErrNotFound)
	}
	s.Equal(before, s.eng.locks.size())
}

func (s *EngineSuite) TestDuplicateRoundParticipation() {
	second := s.fx.Match(s.T(), s.fx.Round, "Match 2")

	_, err := s.eng.RegisterParticipant(s.ctx, second.ID, s.aviator.ID, models.SideAviators)
	var dup *DuplicateRoundParticipationError
	s.Require().ErrorAs(err, &dup)
	s.Equal(s.match.ID, dup.ExistingMatchID)
	s.Equal(int64(0), s.count(&models.MatchParticipant{}, "match_id = ?", second.ID))

	// A new round is fine.
	day2 := s.fx.AddRound(s.T(), "Day 2", "singles")
	other := s.fx.Match(s.T(), day2, "Match 3")
	s.register(other, s.aviator)

	_, err = s.eng.RegisterParticipant(s.ctx, other.ID, s.producer.ID, models.SideAviators)
	var verr *ValidationError
	s.ErrorAs(err, &verr, "producer cannot play for the aviators")
}

func (s *EngineSuite) TestLateRegistrationRejected() {
	s.play(s.match, s.aviator, s.producer, "AAAAAAAAAA")
	late := s.fx.Player(s.T(), "Bessie", models.SideAviators)

	_, err := s.eng.RegisterParticipant(s.ctx, s.match.ID, late.ID, models.SideAviators)
	var started *MatchStartedError
	s.Require().ErrorAs(err, &started)
	s.Equal(models.MatchStatusCompleted, started.Status)
	s.Equal(int64(0), s.count(&models.MatchParticipant{}, "player_id = ?", late.ID))

	stats, err := s.eng.RecomputeTournamentPlayerStats(s.ctx, s.fx.Tournament.ID)
	s.Require().NoError(err)
	for _, st := range stats {
		s.NotEqual(late.ID, st.PlayerID)
	}

	// An in-progress match is closed to newcomers too.
	second := s.fx.Match(s.T(), s.fx.Round, "Match 2")
	av2 := s.fx.Player(s.T(), "Wilbur", models.SideAviators)
	pr2 := s.fx.Player(s.T(), "Howard", models.SideProducers)
	s.register(second, av2)
	s.register(second, pr2)
	s.play(second, av2, pr2, "T")
	_, err = s.eng.RegisterParticipant(s.ctx, second.ID, late.ID, models.SideAviators)
	s.Require().ErrorAs(err, &started)
	s.Equal(models.MatchStatusInProgress, started.Status)
}

func (s *EngineSuite) TestFailedCascadeRollsBackEverything() {
	s.play(s.match, s.aviator, s.producer, "AAAAAAAAA")
	s.score(s.match, s.aviator, 10, 3)

	// Hole 10 completes the match; make the cascade's match-type upsert fail.
	s.Require().NoError(s.fx.DB.Migrator().DropTable(&models.PlayerMatchTypeStat{}))

	gross := 4
	_, err := s.eng.SubmitPlayerScore(s.ctx, s.producer.ID, s.match.ID, 10, &gross)
	s.Require().Error(err)

	m, err := s.eng.GetMatchState(s.ctx, s.match.ID)
	s.Require().NoError(err)
	s.Equal(models.MatchStatusInProgress, m.Status)
	s.Equal(9, m.LeadAmount)

	var av models.Player
	s.reload(&av, s.aviator.ID)
	s.Equal(0, av.Wins)
	s.Equal(int64(0), s.count(&models.PlayerScore{}, "player_id = ? AND hole_number = 10", s.producer.ID))
	s.Equal(int64(0), s.count(&models.PlayerMatchupRecord{}, "match_id = ?", s.match.ID))
	s.Equal(0, s.pub.completions())
}

func (s *EngineSuite) TestPublishFailureKeepsTheWrite() {
	s.pub.err = errors.New("redis down")
	s.score(s.match, s.aviator, 1, 4)
	s.Equal(int64(1), s.count(&models.PlayerScore{}, "match_id = ?", s.match.ID))
}

func (s *EngineSuite) TestConcurrentScoresCompleteOnce() {
	var wg sync.WaitGroup
	errs := make(chan error, 2*models.HolesPerRound)
	for hole := 1; hole <= models.HolesPerRound; hole++ {
		for _, entry := range []struct {
			player models.Player
			gross  int
		}{{s.aviator, 3}, {s.producer, 4}} {
			wg.Add(1)
			go func(p models.Player, hole, gross int) {
				defer wg.Done()
				_, err := s.eng.SubmitPlayerScore(s.ctx, p.ID, s.match.ID, hole, &gross)
				errs <- err
			}(entry.player, hole, entry.gross)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	m, err := s.eng.GetMatchState(s.ctx, s.match.ID)
	s.Require().NoError(err)
	s.Equal(models.MatchStatusCompleted, m.Status)
	s.Equal(1, s.pub.completions())

	var av models.Player
	s.reload(&av, s.aviator.ID)
	s.Equal(1, av.Wins)
	s.Equal(int64(2), s.count(&models.PlayerMatchupRecord{}, "match_id = ?", s.match.ID))
	s.Equal(int64(models.HolesPerRound), s.count(&models.TeamHoleScore{}, "match_id = ?", s.match.ID))
}

func (s *EngineSuite) TestRebuildMatchesIncrementalState() {
	second := s.fx.Match(s.T(), s.fx.Round, "Match 2")
	av2 := s.fx.Player(s.T(), "Bessie", models.SideAviators)
	pr2 := s.fx.Player(s.T(), "Howard", models.SideProducers)
	s.register(second, av2)
	s.register(second, pr2)

	_, err := s.eng.SetCourseHandicap(s.ctx, pr2.ID, s.fx.Round.ID, 20)
	s.Require().NoError(err)

	s.play(s.match, s.aviator, s.producer, "PPPPPPPPPP")
	s.play(second, av2, pr2, "TAT")

	_, err = s.eng.GetPlayerCareerStats(s.ctx, s.producer.ID)
	s.Require().NoError(err)

	type snapshot struct {
		players  []models.Player
		matches  []models.Match
		round    models.Round
		tourney  models.Tournament
		holes    []models.TeamHoleScore
		stats    []models.TournamentPlayerStat
		matchups int64
		career   models.PlayerCareerStat
	}
	take := func() snapshot {
		var snap snapshot
		db := s.fx.DB
		s.Require().NoError(db.Select("id", "wins", "losses", "ties").Order("id").Find(&snap.players).Error)
		s.Require().NoError(db.Select("id", "status", "current_hole", "leading_team", "lead_amount", "result").Order("id").Find(&snap.matches).Error)
		s.Require().NoError(db.Select("aviator_score", "producer_score", "pending_aviator_score", "pending_producer_score").Where("id = ?", s.fx.Round.ID).First(&snap.round).Error)
		s.Require().NoError(db.Select("aviator_score", "producer_score", "pending_aviator_score", "pending_producer_score").Where("id = ?", s.fx.Tournament.ID).First(&snap.tourney).Error)
		s.Require().NoError(db.Select("match_id", "hole_number", "aviator_score", "producer_score", "winning_team").Order("match_id, hole_number").Find(&snap.holes).Error)
		s.Require().NoError(db.Select("player_id", "wins", "losses", "ties", "points", "matches_played").Order("player_id").Find(&snap.stats).Error)
		s.Require().NoError(db.Model(&models.PlayerMatchupRecord{}).Count(&snap.matchups).Error)
		s.Require().NoError(db.Select("total_wins", "total_losses", "total_points", "tournaments_played").Where("player_id = ?", s.producer.ID).First(&snap.career).Error)
		return snap
	}
	want := take()

	// Corrupt some derived values; the rebuild must not trust them.
	s.Require().NoError(s.fx.DB.Model(&models.Player{}).Where("id = ?", s.producer.ID).Update("wins", 99).Error)
	s.Require().NoError(s.fx.DB.Model(&models.Round{}).Where("id = ?", s.fx.Round.ID).Update("aviator_score", 42).Error)

	s.Require().NoError(s.eng.RebuildAll(s.ctx))
	got := take()

	s.Equal(want.players, got.players)
	s.Equal(want.matches, got.matches)
	s.Equal(want.round, got.round)
	s.Equal(want.tourney, got.tourney)
	s.Equal(want.holes, got.holes)
	s.Equal(want.stats, got.stats)
	s.Equal(want.matchups, got.matchups)
	s.Equal(want.career, got.career)

	// Rebuilding twice changes nothing.
	s.Require().NoError(s.eng.RebuildAll(s.ctx))
	s.Equal(want.players, take().players)
}

func (s *EngineSuite) TestRebuildKeepsCompletedMatchesCompleted() {
	s.play(s.match, s.aviator, s.producer, "AAAATTTTTTTTTTT")
	var m models.Match
	s.reload(&m, s.match.ID)
	s.Require().Equal(models.MatchStatusCompleted, m.Status)
	s.Require().Equal("4 UP", *m.Result)

	// Correct hole 1 to a halve after the finish: 3 up with 3 to play would not have
	// ended the match, but completion is final.
	s.score(s.match, s.producer, 1, 3)
	var before models.Match
	s.reload(&before, s.match.ID)
	s.Require().Equal(models.MatchStatusCompleted, before.Status)
	s.Require().Equal("3 UP", *before.Result)
	s.Require().NotNil(before.CompletedAt)

	s.Require().NoError(s.eng.RebuildAll(s.ctx))

	var after models.Match
	s.reload(&after, s.match.ID)
	s.Equal(models.MatchStatusCompleted, after.Status)
	s.Require().NotNil(after.Result)
	s.Equal("3 UP", *after.Result)
	s.Equal(3, after.LeadAmount)
	s.Equal(models.SideAviators, after.LeadingTeam)
	s.Require().NotNil(after.CompletedAt)
	s.True(before.CompletedAt.Equal(*after.CompletedAt))

	var av, pr models.Player
	s.reload(&av, s.aviator.ID)
	s.reload(&pr, s.producer.ID)
	s.Equal(1, av.Wins)
	s.Equal(1, pr.Losses)
	s.Equal(int64(2), s.count(&models.PlayerMatchupRecord{}, "match_id = ?", s.match.ID))
	s.Equal(int64(1), s.count(&models.PlayerMatchTypeStat{}, "player_id = ? AND wins = 1", s.aviator.ID))

	var round models.Round
	s.reload(&round, s.fx.Round.ID)
	s.Equal(1.0, round.AviatorScore)
	s.Equal(0.0, round.PendingAviatorScore)

	s.Equal(1, s.pub.completions(), "a rebuild never announces a completion")
}

func (s *EngineSuite) TestCareerAndTournamentRollups() {
	s.play(s.match, s.aviator, s.producer, "AAAAAAAAAA")

	day2 := s.fx.AddRound(s.T(), "Day 2", "singles")
	m2 := s.fx.Match(s.T(), day2, "Singles 1")
	s.register(m2, s.aviator)
	s.register(m2, s.producer)
	s.play(m2, s.aviator, s.producer, "APAPAPAPAPAPAPAPAP")

	stats, err := s.eng.RecomputeTournamentPlayerStats(s.ctx, s.fx.Tournament.ID)
	s.Require().NoError(err)
	s.Require().Len(stats, 2)
	s.Equal(s.aviator.ID, stats[0].PlayerID)
	s.Equal(1.5, stats[0].Points)
	s.Equal(2, stats[0].MatchesPlayed)

	again, err := s.eng.RecomputeTournamentPlayerStats(s.ctx, s.fx.Tournament.ID)
	s.Require().NoError(err)
	s.Equal(stats[0].Points, again[0].Points)
	s.Equal(stats[1].Points, again[1].Points)

	career, err := s.eng.GetPlayerCareerStats(s.ctx, s.aviator.ID)
	s.Require().NoError(err)
	s.Equal(1, career.TotalWins)
	s.Equal(1, career.TotalTies)
	s.Equal(1.5, career.TotalPoints)
	s.Equal(1, career.TournamentsPlayed)
	s.Equal(2, career.MatchesPlayed)

	_, err = s.eng.GetPlayerCareerStats(s.ctx, uuid.New())
	s.ErrorIs(err, ErrNotFound)

	types, err := s.eng.MatchTypeStats(s.ctx, s.aviator.ID)
	s.Require().NoError(err)
	s.Len(types, 2)

	matchups, err := s.eng.PlayerMatchups(s.ctx, s.producer.ID)
	s.Require().NoError(err)
	s.Len(matchups, 4, "both directions of both matches")

	hist, err := s.eng.UpdateTournamentHistory(s.ctx, s.fx.Tournament.ID)
	s.Require().NoError(err)
	s.Equal(models.SideAviators, hist.WinningTeam)
	s.Equal(1.5, hist.AviatorScore)
	s.Equal(0.5, hist.ProducerScore)
	s.Equal(2026, hist.Year)

	_, err = s.eng.UpdateTournamentHistory(s.ctx, s.fx.Tournament.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), s.count(&models.TournamentHistory{}, "tournament_id = ?", s.fx.Tournament.ID))
}
