package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/matchplay/internal/events"
	"github.com/trentd187/matchplay/internal/models"
	"github.com/trentd187/matchplay/internal/scoring"
)

// StrokesForHole reports how many handicap strokes the player receives on a hole of a round.
// A player with no course handicap for the round, or a hole with no rank, gets none.
func (e *Engine) StrokesForHole(ctx context.Context, playerID, roundID uuid.UUID, holeNumber int) (int, error) {
	if err := validateHole(holeNumber); err != nil {
		return 0, err
	}
	db := e.db.WithContext(ctx)
	var round models.Round
	if err := findByID(db, &round, "round", roundID); err != nil {
		return 0, err
	}
	return e.strokesForHole(db, playerID, &round, holeNumber)
}

func (e *Engine) strokesForHole(tx *gorm.DB, playerID uuid.UUID, round *models.Round, hole int) (int, error) {
	var courseHandicap *int
	var pch models.PlayerCourseHandicap
	res := tx.Where("player_id = ? AND round_id = ?", playerID, round.ID).Limit(1).Find(&pch)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to load course handicap: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		courseHandicap = &pch.CourseHandicap
	}

	var rank *int
	if round.CourseID != nil {
		var h models.Hole
		res := tx.Where("course_id = ? AND number = ?", *round.CourseID, hole).Limit(1).Find(&h)
		if res.Error != nil {
			return 0, fmt.Errorf("failed to load hole: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			rank = h.HandicapRank
		}
	}

	return e.policy.StrokesForHole(courseHandicap, rank), nil
}

// SetCourseHandicap stores a player's course handicap for a round. If the player already
// has scores in that round, their strokes and net scores are recomputed and the match is
// re-derived from the corrected nets. Any integer is accepted; a plus handicap (zero or
// below) receives no strokes.
func (e *Engine) SetCourseHandicap(ctx context.Context, playerID, roundID uuid.UUID, courseHandicap int) (*models.PlayerCourseHandicap, error) {
	db := e.db.WithContext(ctx)
	var participant models.MatchParticipant
	res := db.Where("round_id = ? AND player_id = ?", roundID, playerID).Limit(1).Find(&participant)
	if res.Error != nil {
		return nil, res.Error
	}
	inMatch := res.RowsAffected > 0
	if inMatch {
		unlock := e.locks.lock(participant.MatchID)
		defer unlock()
	}

	var (
		stored   models.PlayerCourseHandicap
		update   events.MatchUpdate
		renetted bool
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		var round models.Round
		if err := findByID(tx, &round, "round", roundID); err != nil {
			return err
		}
		var player models.Player
		if err := findByID(tx, &player, "player", playerID); err != nil {
			return err
		}

		var match *models.Match
		if inMatch {
			var err error
			if match, err = lockMatch(tx, participant.MatchID); err != nil {
				return err
			}
			if match.Locked {
				return &MatchLockedError{MatchID: match.ID}
			}
		}

		pch := models.PlayerCourseHandicap{PlayerID: playerID, RoundID: roundID, CourseHandicap: courseHandicap}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}, {Name: "round_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"course_handicap", "updated_at"}),
		}).Create(&pch).Error
		if err != nil {
			return fmt.Errorf("failed to save course handicap: %w", err)
		}
		if err := tx.Where("player_id = ? AND round_id = ?", playerID, roundID).First(&stored).Error; err != nil {
			return err
		}

		if match == nil {
			return nil
		}
		n, err := e.renetPlayer(tx, playerID, match.ID, &round)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		renetted = true
		update, err = e.recomputeMatch(tx, match, &round)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"player_id":       playerID,
		"round_id":        roundID,
		"course_handicap": courseHandicap,
		"rescored":        renetted,
	}).Info("Course handicap set")
	if renetted {
		e.publish(ctx, update)
	}
	return &stored, nil
}

// renetPlayer recomputes strokes and net for every score the player has in the match and
// re-resolves the affected holes. It returns how many scores were touched.
func (e *Engine) renetPlayer(tx *gorm.DB, playerID, matchID uuid.UUID, round *models.Round) (int, error) {
	var scores []models.PlayerScore
	if err := tx.Where("player_id = ? AND match_id = ?", playerID, matchID).Find(&scores).Error; err != nil {
		return 0, fmt.Errorf("failed to load player scores: %w", err)
	}
	for _, s := range scores {
		strokes, err := e.strokesForHole(tx, playerID, round, s.HoleNumber)
		if err != nil {
			return 0, err
		}
		err = tx.Model(&models.PlayerScore{}).Where("id = ?", s.ID).Updates(map[string]any{
			"handicap_strokes": strokes,
			"net_score":        scoring.NetScore(s.GrossScore, strokes),
		}).Error
		if err != nil {
			return 0, fmt.Errorf("failed to update net score: %w", err)
		}
		if _, err := resolveHole(tx, matchID, s.HoleNumber); err != nil {
			return 0, err
		}
	}
	return len(scores), nil
}
