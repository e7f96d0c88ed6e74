// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trentd187/matchplay/internal/models"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
// The pool is capped at one connection: SQLite serializes writers anyway, and a single
// connection keeps the shared-cache database alive for the test's lifetime.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// QuietLogger discards everything.
func QuietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Fixture is a tournament with one round at an 18-hole course whose hole N has
// handicap rank N.
type Fixture struct {
	DB         *gorm.DB
	Tournament models.Tournament
	Course     models.Course
	Round      models.Round
}

func NewFixture(t testing.TB, db *gorm.DB) *Fixture {
	t.Helper()
	f := &Fixture{DB: db}

	f.Tournament = models.Tournament{Name: "Spring Cup", Year: 2026, IsActive: true}
	require.NoError(t, db.Create(&f.Tournament).Error)

	par := 72
	f.Course = models.Course{Name: "Pine Valley " + uuid.NewString()[:8], Par: &par}
	require.NoError(t, db.Create(&f.Course).Error)
	for n := 1; n <= models.HolesPerRound; n++ {
		rank := n
		require.NoError(t, db.Create(&models.Hole{CourseID: f.Course.ID, Number: n, Par: 4, HandicapRank: &rank}).Error)
	}

	f.Round = f.AddRound(t, "Day 1", "best_ball")
	return f
}

// AddRound adds another round to the fixture's tournament at the fixture's course.
func (f *Fixture) AddRound(t testing.TB, name, matchType string) models.Round {
	t.Helper()
	courseID := f.Course.ID
	r := models.Round{TournamentID: f.Tournament.ID, CourseID: &courseID, Name: name, MatchType: matchType}
	require.NoError(t, f.DB.Create(&r).Error)
	return r
}

func (f *Fixture) Player(t testing.TB, name string, team models.Side) models.Player {
	t.Helper()
	p := models.Player{Name: name, Team: team}
	require.NoError(t, f.DB.Create(&p).Error)
	return p
}

// Match creates an empty match in round. Participants are added separately.
func (f *Fixture) Match(t testing.TB, round models.Round, name string) models.Match {
	t.Helper()
	m := models.Match{RoundID: round.ID, Name: name, Status: models.MatchStatusNotStarted, CurrentHole: 1}
	require.NoError(t, f.DB.Create(&m).Error)
	return m
}
