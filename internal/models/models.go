// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints, default values, and relationships.
//
// The data model represents a two-team match-play tournament where:
//   - A Tournament is played over Rounds, each Round at a Course in one format (match type)
//   - A Round contains Matches; Players join a Match on one of the two Sides
//   - Players post per-hole gross scores (PlayerScore); the engine derives the team's
//     best-ball result for the hole (TeamHoleScore) and the match state from those
//   - Completed matches feed the player statistics tables
//
// Round and Tournament score columns are cached projections. The engine recomputes them
// on every relevant write and never treats them as a source of truth.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HolesPerRound is the length of a match. The engine only knows 18-hole match play.
const HolesPerRound = 18

// Base carries the UUID primary key shared by every table.
// IDs are generated in Go (BeforeCreate) rather than by a database default so the same
// models work against Postgres and the SQLite database used in tests.
type Base struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// BeforeCreate is a GORM hook that runs before every INSERT.
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Tournament is the aggregate root. Its four score columns are the sum of its rounds'.
type Tournament struct {
	Base
	Name                 string     `gorm:"not null"`
	Year                 int        `gorm:"not null"`
	IsActive             bool       `gorm:"not null;default:true"`
	StartDate            *time.Time // Optional; pointer = nullable
	EndDate              *time.Time
	AviatorScore         float64 `gorm:"not null;default:0"`
	ProducerScore        float64 `gorm:"not null;default:0"`
	PendingAviatorScore  float64 `gorm:"not null;default:0"`
	PendingProducerScore float64 `gorm:"not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Rounds               []Round `gorm:"foreignKey:TournamentID"`
}

// Course represents a golf course where rounds are played.
// Rating, slope and par are informational; the engine never derives a handicap from them.
type Course struct {
	Base
	Name         string   `gorm:"not null;uniqueIndex"`
	Location     *string  // Optional; pointer = nullable
	CourseRating *float64 `gorm:"type:decimal(4,1)"` // e.g. 72.4
	SlopeRating  *int     // 55–155
	Par          *int
	Holes        []Hole `gorm:"foreignKey:CourseID"`
}

// Hole stores per-hole details for a course.
// HandicapRank decides which holes grant strokes: 1 = hardest (first stroke), 18 = easiest.
type Hole struct {
	Base
	CourseID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_course_hole"`
	Number       int       `gorm:"not null;uniqueIndex:idx_course_hole"` // 1–18
	Par          int       `gorm:"not null"`
	HandicapRank *int      // Nullable: a hole with no rank never grants strokes
}

// Player is a member of one of the two teams.
// Wins/Losses/Ties are the player's all-time counters; the stat cascade increments them
// once per completed match and RebuildAll recomputes them from scratch.
type Player struct {
	Base
	Name      string `gorm:"not null"`
	Team      Side   `gorm:"type:text;not null"`
	Wins      int    `gorm:"not null;default:0"`
	Losses    int    `gorm:"not null;default:0"`
	Ties      int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Round is one session of a tournament, played at a course in a single format.
type Round struct {
	Base
	TournamentID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	Tournament           Tournament `gorm:"foreignKey:TournamentID"`
	CourseID             *uuid.UUID `gorm:"type:uuid"` // Nullable: without a course no hole ranks exist, so no strokes are given
	Name                 string     `gorm:"not null"`
	MatchType            string     `gorm:"not null"` // Format tag, e.g. "best_ball", "singles"
	AviatorScore         float64    `gorm:"not null;default:0"`
	ProducerScore        float64    `gorm:"not null;default:0"`
	PendingAviatorScore  float64    `gorm:"not null;default:0"`
	PendingProducerScore float64    `gorm:"not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Matches              []Match `gorm:"foreignKey:RoundID"`
}

// Match is a single head-to-head contest inside a round.
// Everything except Name and Locked is derived from the match's TeamHoleScore rows.
type Match struct {
	Base
	RoundID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	Round        Round       `gorm:"foreignKey:RoundID"`
	Name         string      `gorm:"not null"`
	Status       MatchStatus `gorm:"type:text;not null;default:'not_started'"`
	CurrentHole  int         `gorm:"not null;default:1"` // Next hole to be played
	LeadingTeam  Side        `gorm:"type:text"`          // NULL when the match is level
	LeadAmount   int         `gorm:"not null;default:0"`
	Result       *string     // "3 UP", "1 UP", "AS"; only set once completed
	Locked       bool        `gorm:"not null;default:false"` // Frozen by an administrator; score writes are rejected
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Participants []MatchParticipant `gorm:"foreignKey:MatchID"`
}

// MatchParticipant places a player on one side of a match.
// RoundID is denormalized from the match so the database can enforce the rule that a
// player plays at most one match per round (idx_round_player).
type MatchParticipant struct {
	Base
	MatchID   uuid.UUID `gorm:"type:uuid;not null;index"`
	RoundID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_round_player"`
	PlayerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_round_player"`
	Player    Player    `gorm:"foreignKey:PlayerID"`
	Side      Side      `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// PlayerScore records one player's strokes on one hole of one match.
// HandicapStrokes and NetScore are derived when the row is written and whenever the
// player's course handicap for the round changes.
type PlayerScore struct {
	Base
	PlayerID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_player_match_hole"`
	MatchID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_player_match_hole;index"`
	HoleNumber      int       `gorm:"not null;uniqueIndex:idx_player_match_hole"` // 1–18
	GrossScore      *int      // NULL = not entered yet (or cleared)
	HandicapStrokes int       `gorm:"not null;default:0"`
	NetScore        *int      // NULL whenever GrossScore is NULL, never zero
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TeamHoleScore is the best-ball result for one hole of one match.
// There is exactly one row per (match, hole); it is upserted, never duplicated.
type TeamHoleScore struct {
	Base
	MatchID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_match_hole"`
	HoleNumber    int        `gorm:"not null;uniqueIndex:idx_match_hole"`
	AviatorScore  *int       // Best net score on the aviators side; NULL if nobody posted
	ProducerScore *int       // Best net score on the producers side
	WinningTeam   HoleWinner `gorm:"type:text"` // NULL until both sides have posted
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PlayerCourseHandicap is the administrator-entered course handicap for a player in a round.
// It is authoritative input: the engine never computes it.
type PlayerCourseHandicap struct {
	Base
	PlayerID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_player_round"`
	RoundID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_player_round"`
	CourseHandicap int       `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PlayerMatchupRecord is a directional head-to-head row: PlayerID's result against
// OpponentID in one completed match. The opponent's mirror row is written separately.
type PlayerMatchupRecord struct {
	Base
	PlayerID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_matchup"`
	OpponentID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_matchup;index"`
	MatchID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_matchup;index"`
	TournamentID *uuid.UUID `gorm:"type:uuid"`
	Result       Outcome    `gorm:"type:text;not null"`
	MatchType    string     `gorm:"not null"`
	CreatedAt    time.Time
}

// PlayerMatchTypeStat counts a player's results per match format.
type PlayerMatchTypeStat struct {
	Base
	PlayerID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_player_match_type"`
	MatchType   string    `gorm:"not null;uniqueIndex:idx_player_match_type"`
	Wins        int       `gorm:"not null;default:0"`
	Losses      int       `gorm:"not null;default:0"`
	Ties        int       `gorm:"not null;default:0"`
	LastUpdated time.Time
}

// TournamentPlayerStat is one player's record inside one tournament.
// Points = wins + 0.5 × ties.
type TournamentPlayerStat struct {
	Base
	TournamentID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tournament_player"`
	PlayerID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tournament_player;index"`
	Wins          int       `gorm:"not null;default:0"`
	Losses        int       `gorm:"not null;default:0"`
	Ties          int       `gorm:"not null;default:0"`
	Points        float64   `gorm:"not null;default:0"`
	MatchesPlayed int       `gorm:"not null;default:0"`
	UpdatedAt     time.Time
}

// PlayerCareerStat rolls up every TournamentPlayerStat row of a player.
type PlayerCareerStat struct {
	Base
	PlayerID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	TotalWins         int       `gorm:"not null;default:0"`
	TotalLosses       int       `gorm:"not null;default:0"`
	TotalTies         int       `gorm:"not null;default:0"`
	TotalPoints       float64   `gorm:"not null;default:0"`
	TournamentsPlayed int       `gorm:"not null;default:0"`
	MatchesPlayed     int       `gorm:"not null;default:0"`
	LastUpdated       time.Time
}

// TournamentHistory keeps the final score of each tournament for the record book.
type TournamentHistory struct {
	Base
	TournamentID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Year           int       `gorm:"not null"`
	TournamentName string    `gorm:"not null"`
	WinningTeam    Side      `gorm:"type:text"` // NULL when the teams finished level
	AviatorScore   float64   `gorm:"not null;default:0"`
	ProducerScore  float64   `gorm:"not null;default:0"`
	UpdatedAt      time.Time
}

func (TournamentHistory) TableName() string { return "tournament_history" }

// All lists every model in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&Tournament{},
		&Course{},
		&Hole{},
		&Player{},
		&Round{},
		&Match{},
		&MatchParticipant{},
		&PlayerScore{},
		&TeamHoleScore{},
		&PlayerCourseHandicap{},
		&PlayerMatchupRecord{},
		&PlayerMatchTypeStat{},
		&TournamentPlayerStat{},
		&PlayerCareerStat{},
		&TournamentHistory{},
	}
}
