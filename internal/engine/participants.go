package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trentd187/matchplay/internal/models"
)

// RegisterParticipant puts a player on one side of a match. A player may play at most one
// match per round; a second registration fails without changing anything.
// Sides are fixed once the first score is posted.
func (e *Engine) RegisterParticipant(ctx context.Context, matchID, playerID uuid.UUID, side models.Side) (*models.MatchParticipant, error) {
	if !side.Valid() {
		return nil, &ValidationError{Field: "side", Reason: fmt.Sprintf("unknown side %q", string(side))}
	}

	unlock, err := e.lockExisting(ctx, matchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var created models.MatchParticipant
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if match.Locked {
			return &MatchLockedError{MatchID: matchID}
		}
		if match.Status != models.MatchStatusNotStarted {
			return &MatchStartedError{MatchID: matchID, Status: match.Status}
		}
		var player models.Player
		if err := findByID(tx, &player, "player", playerID); err != nil {
			return err
		}
		if player.Team != side {
			return &ValidationError{Field: "side", Reason: fmt.Sprintf("player %s plays for the %s", playerID, player.Team)}
		}

		var existing models.MatchParticipant
		res := tx.Where("round_id = ? AND player_id = ?", match.RoundID, playerID).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return &DuplicateRoundParticipationError{PlayerID: playerID, RoundID: match.RoundID, ExistingMatchID: existing.MatchID}
		}

		created = models.MatchParticipant{
			MatchID:  matchID,
			RoundID:  match.RoundID,
			PlayerID: playerID,
			Side:     side,
		}
		if err := tx.Create(&created).Error; err != nil {
			// A concurrent registration into another match of the round got there first.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &DuplicateRoundParticipationError{PlayerID: playerID, RoundID: match.RoundID}
			}
			return fmt.Errorf("failed to add participant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"match_id":  matchID,
		"player_id": playerID,
		"side":      side,
	}).Info("Participant registered")
	return &created, nil
}

// SetMatchLocked freezes or unfreezes a match. A locked match rejects score writes,
// handicap corrections and new participants.
func (e *Engine) SetMatchLocked(ctx context.Context, matchID uuid.UUID, locked bool) (*models.Match, error) {
	unlock, err := e.lockExisting(ctx, matchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var match *models.Match
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if match, err = lockMatch(tx, matchID); err != nil {
			return err
		}
		if err := tx.Model(&models.Match{}).Where("id = ?", matchID).Update("locked", locked).Error; err != nil {
			return fmt.Errorf("failed to update match lock: %w", err)
		}
		match.Locked = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"match_id": matchID, "locked": locked}).Info("Match lock changed")
	return match, nil
}
