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

// SubmitPlayerScore records (or clears, when gross is nil) a player's gross score on a hole
// and recomputes everything that depends on it: the team hole result, the match state,
// the stat cascade if the match just completed, and the round and tournament totals.
// It returns the hole's team result as committed.
func (e *Engine) SubmitPlayerScore(ctx context.Context, playerID, matchID uuid.UUID, holeNumber int, gross *int) (*models.TeamHoleScore, error) {
	if err := validateHole(holeNumber); err != nil {
		return nil, err
	}
	if gross != nil && *gross < 1 {
		return nil, &ValidationError{Field: "grossScore", Reason: "must be a positive number of strokes"}
	}

	unlock, err := e.lockExisting(ctx, matchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		result models.TeamHoleScore
		update events.MatchUpdate
	)
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if match.Locked {
			return &MatchLockedError{MatchID: matchID}
		}

		var participant models.MatchParticipant
		res := tx.Where("match_id = ? AND player_id = ?", matchID, playerID).Limit(1).Find(&participant)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotAParticipantError{PlayerID: playerID, MatchID: matchID}
		}

		var round models.Round
		if err := findByID(tx, &round, "round", match.RoundID); err != nil {
			return err
		}

		strokes, err := e.strokesForHole(tx, playerID, &round, holeNumber)
		if err != nil {
			return err
		}
		if err := upsertPlayerScore(tx, playerID, matchID, holeNumber, gross, strokes); err != nil {
			return err
		}

		ths, err := resolveHole(tx, matchID, holeNumber)
		if err != nil {
			return err
		}
		result = *ths

		update, err = e.recomputeMatch(tx, match, &round)
		if err != nil {
			return err
		}
		update.Hole = holeNumber
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"match_id":     matchID,
		"player_id":    playerID,
		"hole":         holeNumber,
		"winning_team": result.WinningTeam,
		"status":       update.Status,
	}).Debug("Score recorded")
	if update.Completed {
		e.log.WithFields(logrus.Fields{
			"match_id": matchID,
			"result":   deref(update.Result),
		}).Info("Match completed")
	}

	e.publish(ctx, update)
	return &result, nil
}

func upsertPlayerScore(tx *gorm.DB, playerID, matchID uuid.UUID, hole int, gross *int, strokes int) error {
	ps := models.PlayerScore{
		PlayerID:        playerID,
		MatchID:         matchID,
		HoleNumber:      hole,
		GrossScore:      gross,
		HandicapStrokes: strokes,
		NetScore:        scoring.NetScore(gross, strokes),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}, {Name: "match_id"}, {Name: "hole_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"gross_score", "handicap_strokes", "net_score", "updated_at"}),
	}).Create(&ps).Error
	if err != nil {
		return fmt.Errorf("failed to save player score: %w", err)
	}
	return nil
}

type sideNet struct {
	Side     models.Side
	NetScore *int
}

// resolveHole recomputes the best-ball result of one hole from every participant's net
// score and upserts the match's TeamHoleScore row for it.
func resolveHole(tx *gorm.DB, matchID uuid.UUID, hole int) (*models.TeamHoleScore, error) {
	var rows []sideNet
	err := tx.Table("player_scores AS ps").
		Select("mp.side AS side, ps.net_score AS net_score").
		Joins("JOIN match_participants mp ON mp.match_id = ps.match_id AND mp.player_id = ps.player_id").
		Where("ps.match_id = ? AND ps.hole_number = ?", matchID, hole).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load hole scores: %w", err)
	}

	nets := make([]scoring.PlayerNet, 0, len(rows))
	for _, r := range rows {
		nets = append(nets, scoring.PlayerNet{Side: r.Side, Net: r.NetScore})
	}
	res := scoring.ResolveHole(nets)

	ths := models.TeamHoleScore{
		MatchID:       matchID,
		HoleNumber:    hole,
		AviatorScore:  res.Aviators,
		ProducerScore: res.Producers,
		WinningTeam:   res.Winner,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}, {Name: "hole_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"aviator_score", "producer_score", "winning_team", "updated_at"}),
	}).Create(&ths).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save team hole score: %w", err)
	}

	// On conflict the generated ID was discarded; read back the stored row.
	var stored models.TeamHoleScore
	if err := tx.Where("match_id = ? AND hole_number = ?", matchID, hole).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to reload team hole score: %w", err)
	}
	return &stored, nil
}

// recomputeMatch derives the match state from its TeamHoleScore rows and persists it.
// On the transition into completed it runs the stat cascade exactly once. Round and
// tournament totals are refreshed on every call. match is updated in place.
func (e *Engine) recomputeMatch(tx *gorm.DB, match *models.Match, round *models.Round) (events.MatchUpdate, error) {
	var holes []models.TeamHoleScore
	if err := tx.Where("match_id = ?", match.ID).Find(&holes).Error; err != nil {
		return events.MatchUpdate{}, fmt.Errorf("failed to load hole results: %w", err)
	}
	tallies := make([]scoring.HoleTally, 0, len(holes))
	for _, h := range holes {
		tallies = append(tallies, scoring.HoleTally{HoleNumber: h.HoleNumber, Winner: h.WinningTeam})
	}

	prev := match.Status
	st := scoring.NextMatchState(prev, tallies)
	completed := scoring.JustCompleted(prev, st.Status)

	match.Status = st.Status
	match.CurrentHole = st.CurrentHole
	match.LeadingTeam = st.LeadingTeam
	match.LeadAmount = st.LeadAmount
	match.Result = st.Result
	if completed {
		now := e.now()
		match.CompletedAt = &now
	}

	err := tx.Model(&models.Match{}).Where("id = ?", match.ID).Updates(map[string]any{
		"status":       match.Status,
		"current_hole": match.CurrentHole,
		"leading_team": match.LeadingTeam,
		"lead_amount":  match.LeadAmount,
		"result":       match.Result,
		"completed_at": match.CompletedAt,
	}).Error
	if err != nil {
		return events.MatchUpdate{}, fmt.Errorf("failed to save match state: %w", err)
	}

	if completed {
		if err := e.cascade(tx, match, round); err != nil {
			return events.MatchUpdate{}, err
		}
	}
	if _, err := recomputeRound(tx, round.ID); err != nil {
		return events.MatchUpdate{}, err
	}
	if _, err := recomputeTournament(tx, round.TournamentID); err != nil {
		return events.MatchUpdate{}, err
	}

	return events.MatchUpdate{
		MatchID:      match.ID,
		RoundID:      round.ID,
		TournamentID: round.TournamentID,
		Status:       match.Status,
		LeadingTeam:  match.LeadingTeam,
		LeadAmount:   match.LeadAmount,
		CurrentHole:  match.CurrentHole,
		Result:       match.Result,
		Completed:    completed,
		At:           e.now(),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
