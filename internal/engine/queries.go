package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/matchplay/internal/models"
	"github.com/trentd187/matchplay/internal/scoring"
)

// GetMatchState returns the stored match with its round and participants.
func (e *Engine) GetMatchState(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	var m models.Match
	db := e.db.WithContext(ctx).Preload("Round").Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("side, created_at")
	})
	if err := findByID(db, &m, "match", matchID); err != nil {
		return nil, err
	}
	return &m, nil
}

// HoleResults returns the match's team results ordered by hole.
func (e *Engine) HoleResults(ctx context.Context, matchID uuid.UUID) ([]models.TeamHoleScore, error) {
	var rows []models.TeamHoleScore
	err := e.db.WithContext(ctx).Where("match_id = ?", matchID).Order("hole_number").Find(&rows).Error
	return rows, err
}

func (e *Engine) GetRoundTotals(ctx context.Context, roundID uuid.UUID) (scoring.Totals, error) {
	var r models.Round
	if err := findByID(e.db.WithContext(ctx), &r, "round", roundID); err != nil {
		return scoring.Totals{}, err
	}
	return scoring.Totals{
		Aviators:         r.AviatorScore,
		Producers:        r.ProducerScore,
		PendingAviators:  r.PendingAviatorScore,
		PendingProducers: r.PendingProducerScore,
	}, nil
}

func (e *Engine) GetTournamentTotals(ctx context.Context, tournamentID uuid.UUID) (scoring.Totals, error) {
	var t models.Tournament
	if err := findByID(e.db.WithContext(ctx), &t, "tournament", tournamentID); err != nil {
		return scoring.Totals{}, err
	}
	return scoring.Totals{
		Aviators:         t.AviatorScore,
		Producers:        t.ProducerScore,
		PendingAviators:  t.PendingAviatorScore,
		PendingProducers: t.PendingProducerScore,
	}, nil
}

// GetPlayerCareerStats recomputes the player's career rollup from their per-tournament
// rows, stores it, and returns it.
func (e *Engine) GetPlayerCareerStats(ctx context.Context, playerID uuid.UUID) (*models.PlayerCareerStat, error) {
	var out models.PlayerCareerStat
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var player models.Player
		if err := findByID(tx, &player, "player", playerID); err != nil {
			return err
		}
		stat, err := e.recomputeCareer(tx, playerID)
		if err != nil {
			return err
		}
		out = *stat
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) recomputeCareer(tx *gorm.DB, playerID uuid.UUID) (*models.PlayerCareerStat, error) {
	var rows []models.TournamentPlayerStat
	if err := tx.Where("player_id = ?", playerID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load tournament stats: %w", err)
	}
	c := scoring.CareerFrom(rows)

	stat := models.PlayerCareerStat{
		PlayerID:          playerID,
		TotalWins:         c.Wins,
		TotalLosses:       c.Losses,
		TotalTies:         c.Ties,
		TotalPoints:       c.Points,
		TournamentsPlayed: c.TournamentsPlayed,
		MatchesPlayed:     c.MatchesPlayed,
		LastUpdated:       e.now(),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_wins", "total_losses", "total_ties", "total_points",
			"tournaments_played", "matches_played", "last_updated",
		}),
	}).Create(&stat).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save career stats: %w", err)
	}

	var stored models.PlayerCareerStat
	if err := tx.Where("player_id = ?", playerID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// RecomputeTournamentPlayerStats rebuilds the per-player record of everyone who played a
// match in the tournament, ordered by points.
func (e *Engine) RecomputeTournamentPlayerStats(ctx context.Context, tournamentID uuid.UUID) ([]models.TournamentPlayerStat, error) {
	var out []models.TournamentPlayerStat
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := findByID(tx, &t, "tournament", tournamentID); err != nil {
			return err
		}
		var playerIDs []uuid.UUID
		err := tx.Table("match_participants AS mp").
			Distinct("mp.player_id").
			Joins("JOIN rounds r ON r.id = mp.round_id").
			Where("r.tournament_id = ?", tournamentID).
			Pluck("mp.player_id", &playerIDs).Error
		if err != nil {
			return fmt.Errorf("failed to load tournament players: %w", err)
		}
		for _, id := range playerIDs {
			if _, err := e.recomputeTournamentPlayerStat(tx, tournamentID, id); err != nil {
				return err
			}
		}
		return tx.Where("tournament_id = ?", tournamentID).
			Order("points DESC, wins DESC").
			Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTournamentHistory writes the tournament's current completed score to the record
// book. The winner is whoever has more completed points; level scores record no winner.
func (e *Engine) UpdateTournamentHistory(ctx context.Context, tournamentID uuid.UUID) (*models.TournamentHistory, error) {
	var out models.TournamentHistory
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := findByID(tx, &t, "tournament", tournamentID); err != nil {
			return err
		}
		totals, err := recomputeTournament(tx, tournamentID)
		if err != nil {
			return err
		}

		var winner models.Side
		switch {
		case totals.Aviators > totals.Producers:
			winner = models.SideAviators
		case totals.Producers > totals.Aviators:
			winner = models.SideProducers
		}

		h := models.TournamentHistory{
			TournamentID:   tournamentID,
			Year:           t.Year,
			TournamentName: t.Name,
			WinningTeam:    winner,
			AviatorScore:   totals.Aviators,
			ProducerScore:  totals.Producers,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tournament_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"year", "tournament_name", "winning_team", "aviator_score", "producer_score", "updated_at"}),
		}).Create(&h).Error
		if err != nil {
			return fmt.Errorf("failed to save tournament history: %w", err)
		}
		return tx.Where("tournament_id = ?", tournamentID).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PlayerMatchups lists every head-to-head row involving the player, newest first.
func (e *Engine) PlayerMatchups(ctx context.Context, playerID uuid.UUID) ([]models.PlayerMatchupRecord, error) {
	var rows []models.PlayerMatchupRecord
	err := e.db.WithContext(ctx).
		Where("player_id = ? OR opponent_id = ?", playerID, playerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// HeadToHeadSummary is a player's record against one opponent.
type HeadToHeadSummary struct {
	PlayerID   uuid.UUID                    `json:"player_id"`
	OpponentID uuid.UUID                    `json:"opponent_id"`
	Record     scoring.Record               `json:"record"`
	Matchups   []models.PlayerMatchupRecord `json:"matchups"`
}

// HeadToHead tallies the player's results against opponent from the player's own rows.
func (e *Engine) HeadToHead(ctx context.Context, playerID, opponentID uuid.UUID) (*HeadToHeadSummary, error) {
	var rows []models.PlayerMatchupRecord
	err := e.db.WithContext(ctx).
		Where("player_id = ? AND opponent_id = ?", playerID, opponentID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	h := &HeadToHeadSummary{PlayerID: playerID, OpponentID: opponentID, Matchups: rows}
	for _, r := range rows {
		h.Record.Add(r.Result)
	}
	return h, nil
}

func (e *Engine) MatchTypeStats(ctx context.Context, playerID uuid.UUID) ([]models.PlayerMatchTypeStat, error) {
	var rows []models.PlayerMatchTypeStat
	err := e.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("last_updated DESC").
		Find(&rows).Error
	return rows, err
}
