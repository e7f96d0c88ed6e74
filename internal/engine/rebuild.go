package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trentd187/matchplay/internal/events"
	"github.com/trentd187/matchplay/internal/models"
	"github.com/trentd187/matchplay/internal/scoring"
)

// RebuildAll discards every derived value and replays all stored player scores through the
// same path live writes use. Afterwards the database matches what incremental scoring
// would have produced, which makes it the repair tool for any drift.
// A match that was already completed stays completed with its original completion time,
// and its cascade is applied again from the replayed state.
// No other write runs while a rebuild is in progress.
func (e *Engine) RebuildAll(ctx context.Context) error {
	unlock := e.locks.lockAll()
	defer unlock()

	var (
		replayed, completed int
		updates             []events.MatchUpdate
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		finished, err := resetDerived(tx)
		if err != nil {
			return err
		}

		var rounds []models.Round
		if err := tx.Order("created_at, id").Find(&rounds).Error; err != nil {
			return fmt.Errorf("failed to load rounds: %w", err)
		}
		for i := range rounds {
			round := &rounds[i]
			var matches []models.Match
			if err := tx.Where("round_id = ?", round.ID).Order("created_at, id").Find(&matches).Error; err != nil {
				return fmt.Errorf("failed to load matches: %w", err)
			}
			for j := range matches {
				match := &matches[j]
				update, n, err := e.replayMatch(tx, match, round, finished[match.ID])
				if err != nil {
					return fmt.Errorf("failed to replay match %s: %w", match.ID, err)
				}
				if n > 0 {
					replayed++
				}
				updates = append(updates, update)
				if match.Status == models.MatchStatusCompleted {
					completed++
				}
			}
			if _, err := recomputeRound(tx, round.ID); err != nil {
				return err
			}
		}

		var tournamentIDs []uuid.UUID
		if err := tx.Model(&models.Tournament{}).Pluck("id", &tournamentIDs).Error; err != nil {
			return fmt.Errorf("failed to load tournaments: %w", err)
		}
		for _, id := range tournamentIDs {
			if _, err := recomputeTournament(tx, id); err != nil {
				return err
			}
		}

		// Career rows only exist for players someone asked about; refresh those.
		var careerPlayers []uuid.UUID
		if err := tx.Model(&models.PlayerCareerStat{}).Pluck("player_id", &careerPlayers).Error; err != nil {
			return fmt.Errorf("failed to load career stats: %w", err)
		}
		for _, id := range careerPlayers {
			if _, err := e.recomputeCareer(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		e.log.WithError(err).Error("Rebuild failed; nothing was changed")
		return err
	}

	e.log.WithFields(logrus.Fields{
		"matches_replayed":  replayed,
		"matches_completed": completed,
	}).Info("Rebuilt derived scoring state")
	e.publish(ctx, updates...)
	return nil
}

// resetDerived clears everything the engine computes, leaving only authoritative input:
// tournaments, courses, players, rounds, matches (name and lock), participants, gross
// scores and course handicaps. It returns the completion time of every match that was
// completed before the reset.
func resetDerived(tx *gorm.DB) (map[uuid.UUID]time.Time, error) {
	var done []models.Match
	err := tx.Select("id", "completed_at", "updated_at").
		Where("status = ?", models.MatchStatusCompleted).
		Find(&done).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load completed matches: %w", err)
	}
	finished := make(map[uuid.UUID]time.Time, len(done))
	for _, m := range done {
		at := m.UpdatedAt
		if m.CompletedAt != nil {
			at = *m.CompletedAt
		}
		finished[m.ID] = at
	}

	for _, m := range []any{
		&models.TeamHoleScore{},
		&models.PlayerMatchupRecord{},
		&models.PlayerMatchTypeStat{},
		&models.TournamentPlayerStat{},
	} {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return nil, fmt.Errorf("failed to clear derived rows: %w", err)
		}
	}

	all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := all.Model(&models.Player{}).Updates(map[string]any{"wins": 0, "losses": 0, "ties": 0}).Error; err != nil {
		return nil, fmt.Errorf("failed to reset player records: %w", err)
	}
	err = all.Model(&models.Match{}).Updates(map[string]any{
		"status":       models.MatchStatusNotStarted,
		"current_hole": 1,
		"leading_team": models.SideNone,
		"lead_amount":  0,
		"result":       nil,
		"completed_at": nil,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to reset matches: %w", err)
	}
	return finished, nil
}

// replayMatch re-nets every score of the match with the current handicaps, resolves each
// scored hole and derives the match state, firing the cascade if the match completes.
// A non-zero completedAt marks a match that had already completed: it is replayed from
// the completed state, so it cannot fall back to in progress, and its cascade is fired here.
// Returns the resulting update and the number of holes resolved.
func (e *Engine) replayMatch(tx *gorm.DB, match *models.Match, round *models.Round, completedAt time.Time) (events.MatchUpdate, int, error) {
	match.Status = models.MatchStatusNotStarted
	match.CurrentHole = 1
	match.LeadingTeam = models.SideNone
	match.LeadAmount = 0
	match.Result = nil
	match.CompletedAt = nil
	wasCompleted := !completedAt.IsZero()
	if wasCompleted {
		match.Status = models.MatchStatusCompleted
		match.CompletedAt = &completedAt
	}

	var scores []models.PlayerScore
	if err := tx.Where("match_id = ?", match.ID).Find(&scores).Error; err != nil {
		return events.MatchUpdate{}, 0, fmt.Errorf("failed to load scores: %w", err)
	}
	holes := make(map[int]bool)
	for _, s := range scores {
		strokes, err := e.strokesForHole(tx, s.PlayerID, round, s.HoleNumber)
		if err != nil {
			return events.MatchUpdate{}, 0, err
		}
		err = tx.Model(&models.PlayerScore{}).Where("id = ?", s.ID).Updates(map[string]any{
			"handicap_strokes": strokes,
			"net_score":        scoring.NetScore(s.GrossScore, strokes),
		}).Error
		if err != nil {
			return events.MatchUpdate{}, 0, fmt.Errorf("failed to update net score: %w", err)
		}
		holes[s.HoleNumber] = true
	}
	for h := 1; h <= models.HolesPerRound; h++ {
		if !holes[h] {
			continue
		}
		if _, err := resolveHole(tx, match.ID, h); err != nil {
			return events.MatchUpdate{}, 0, err
		}
	}
	update, err := e.recomputeMatch(tx, match, round)
	if err != nil {
		return events.MatchUpdate{}, 0, err
	}
	if wasCompleted {
		if err := e.cascade(tx, match, round); err != nil {
			return events.MatchUpdate{}, 0, err
		}
	}
	return update, len(holes), nil
}
