package engine

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/matchplay/internal/models"
	"github.com/trentd187/matchplay/internal/scoring"
)

// counterColumn maps an outcome to the wins/losses/ties column it increments.
func counterColumn(o models.Outcome) string {
	switch o {
	case models.OutcomeWin:
		return "wins"
	case models.OutcomeLoss:
		return "losses"
	default:
		return "ties"
	}
}

// cascade applies a completed match to player statistics. Called exactly once per match,
// inside the transaction that completed it.
func (e *Engine) cascade(tx *gorm.DB, match *models.Match, round *models.Round) error {
	var participants []models.MatchParticipant
	if err := tx.Where("match_id = ?", match.ID).Order("created_at, id").Find(&participants).Error; err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}

	tournamentID := round.TournamentID
	for _, p := range participants {
		outcome := scoring.PersonalOutcome(match.LeadingTeam, p.Side)
		col := counterColumn(outcome)

		res := tx.Model(&models.Player{}).Where("id = ?", p.PlayerID).
			Update(col, gorm.Expr(col+" + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("failed to update player record: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("player", p.PlayerID)
		}

		if err := e.bumpMatchTypeStat(tx, p.PlayerID, round.MatchType, col); err != nil {
			return err
		}

		for _, opp := range participants {
			if opp.Side == p.Side {
				continue
			}
			rec := models.PlayerMatchupRecord{
				PlayerID:     p.PlayerID,
				OpponentID:   opp.PlayerID,
				MatchID:      match.ID,
				TournamentID: &tournamentID,
				Result:       outcome,
				MatchType:    round.MatchType,
			}
			// The unique index makes a replayed cascade a no-op instead of a duplicate.
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to record matchup: %w", err)
			}
		}
	}

	for _, p := range participants {
		if _, err := e.recomputeTournamentPlayerStat(tx, tournamentID, p.PlayerID); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) bumpMatchTypeStat(tx *gorm.DB, playerID uuid.UUID, matchType, col string) error {
	now := e.now()
	stat := models.PlayerMatchTypeStat{
		PlayerID:    playerID,
		MatchType:   matchType,
		LastUpdated: now,
	}
	switch col {
	case "wins":
		stat.Wins = 1
	case "losses":
		stat.Losses = 1
	default:
		stat.Ties = 1
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "match_type"}},
		DoUpdates: clause.Assignments(map[string]any{
			col:            gorm.Expr("player_match_type_stats." + col + " + 1"),
			"last_updated": now,
		}),
	}).Create(&stat).Error
	if err != nil {
		return fmt.Errorf("failed to update match type stats: %w", err)
	}
	return nil
}

type sideLead struct {
	Side        models.Side
	LeadingTeam models.Side
}

// recomputeTournamentPlayerStat rebuilds one player's record in one tournament from the
// completed matches they played in it.
func (e *Engine) recomputeTournamentPlayerStat(tx *gorm.DB, tournamentID, playerID uuid.UUID) (*models.TournamentPlayerStat, error) {
	var rows []sideLead
	err := tx.Table("match_participants AS mp").
		Select("mp.side AS side, m.leading_team AS leading_team").
		Joins("JOIN matches m ON m.id = mp.match_id").
		Joins("JOIN rounds r ON r.id = m.round_id").
		Where("mp.player_id = ? AND r.tournament_id = ? AND m.status = ?", playerID, tournamentID, models.MatchStatusCompleted).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament results: %w", err)
	}

	var rec scoring.Record
	for _, r := range rows {
		rec.Add(scoring.PersonalOutcome(r.LeadingTeam, r.Side))
	}

	stat := models.TournamentPlayerStat{
		TournamentID:  tournamentID,
		PlayerID:      playerID,
		Wins:          rec.Wins,
		Losses:        rec.Losses,
		Ties:          rec.Ties,
		Points:        rec.Points(),
		MatchesPlayed: rec.Played(),
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tournament_id"}, {Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"wins", "losses", "ties", "points", "matches_played", "updated_at"}),
	}).Create(&stat).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save tournament player stats: %w", err)
	}
	return &stat, nil
}

// recomputeRound re-derives a round's four score columns from its matches.
func recomputeRound(tx *gorm.DB, roundID uuid.UUID) (scoring.Totals, error) {
	var matches []models.Match
	if err := tx.Select("status", "leading_team").Where("round_id = ?", roundID).Find(&matches).Error; err != nil {
		return scoring.Totals{}, fmt.Errorf("failed to load round matches: %w", err)
	}
	totals := scoring.RoundTotals(summaries(matches))

	err := tx.Model(&models.Round{}).Where("id = ?", roundID).Updates(map[string]any{
		"aviator_score":          totals.Aviators,
		"producer_score":         totals.Producers,
		"pending_aviator_score":  totals.PendingAviators,
		"pending_producer_score": totals.PendingProducers,
	}).Error
	if err != nil {
		return scoring.Totals{}, fmt.Errorf("failed to save round totals: %w", err)
	}
	return totals, nil
}

// recomputeTournament re-derives a tournament's totals from the matches of all its rounds,
// so a stale round column can never leak into the tournament figure.
func recomputeTournament(tx *gorm.DB, tournamentID uuid.UUID) (scoring.Totals, error) {
	var matches []models.Match
	err := tx.Select("matches.round_id", "matches.status", "matches.leading_team").
		Joins("JOIN rounds ON rounds.id = matches.round_id").
		Where("rounds.tournament_id = ?", tournamentID).
		Find(&matches).Error
	if err != nil {
		return scoring.Totals{}, fmt.Errorf("failed to load tournament matches: %w", err)
	}

	byRound := make(map[uuid.UUID][]models.Match)
	for _, m := range matches {
		byRound[m.RoundID] = append(byRound[m.RoundID], m)
	}
	rounds := make([]scoring.Totals, 0, len(byRound))
	for _, ms := range byRound {
		rounds = append(rounds, scoring.RoundTotals(summaries(ms)))
	}
	totals := scoring.TournamentTotals(rounds)

	err = tx.Model(&models.Tournament{}).Where("id = ?", tournamentID).Updates(map[string]any{
		"aviator_score":          totals.Aviators,
		"producer_score":         totals.Producers,
		"pending_aviator_score":  totals.PendingAviators,
		"pending_producer_score": totals.PendingProducers,
	}).Error
	if err != nil {
		return scoring.Totals{}, fmt.Errorf("failed to save tournament totals: %w", err)
	}
	return totals, nil
}

func summaries(matches []models.Match) []scoring.MatchSummary {
	out := make([]scoring.MatchSummary, 0, len(matches))
	for _, m := range matches {
		out = append(out, scoring.MatchSummary{Status: m.Status, LeadingTeam: m.LeadingTeam})
	}
	return out
}
