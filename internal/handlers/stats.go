package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/trentd187/matchplay/internal/engine"
)

// GetRoundTotals handles GET /api/v1/rounds/:id/totals.
func GetRoundTotals(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roundID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		totals, err := eng.GetRoundTotals(c.UserContext(), roundID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(totals)
	}
}

// GetTournamentTotals handles GET /api/v1/tournaments/:id/totals.
func GetTournamentTotals(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tournamentID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		totals, err := eng.GetTournamentTotals(c.UserContext(), tournamentID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(totals)
	}
}

// CareerResponse is a player's all-time rollup.
type CareerResponse struct {
	PlayerID          string  `json:"player_id"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	Ties              int     `json:"ties"`
	Points            float64 `json:"points"`
	TournamentsPlayed int     `json:"tournaments_played"`
	MatchesPlayed     int     `json:"matches_played"`
}

// GetCareer handles GET /api/v1/players/:id/career. The rollup is recomputed on every call.
func GetCareer(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		stat, err := eng.GetPlayerCareerStats(c.UserContext(), playerID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(CareerResponse{
			PlayerID:          stat.PlayerID.String(),
			Wins:              stat.TotalWins,
			Losses:            stat.TotalLosses,
			Ties:              stat.TotalTies,
			Points:            stat.TotalPoints,
			TournamentsPlayed: stat.TournamentsPlayed,
			MatchesPlayed:     stat.MatchesPlayed,
		})
	}
}

type MatchupResponse struct {
	PlayerID   string `json:"player_id"`
	OpponentID string `json:"opponent_id"`
	MatchID    string `json:"match_id"`
	Result     string `json:"result"`
	MatchType  string `json:"match_type"`
	CreatedAt  string `json:"created_at"`
}

// GetMatchups handles GET /api/v1/players/:id/matchups.
func GetMatchups(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		rows, err := eng.PlayerMatchups(c.UserContext(), playerID)
		if err != nil {
			return respondError(c, log, err)
		}
		resp := make([]MatchupResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, MatchupResponse{
				PlayerID:   r.PlayerID.String(),
				OpponentID: r.OpponentID.String(),
				MatchID:    r.MatchID.String(),
				Result:     string(r.Result),
				MatchType:  r.MatchType,
				CreatedAt:  r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
		return c.JSON(resp)
	}
}

// GetHeadToHead handles GET /api/v1/players/:id/head-to-head/:opponentId.
func GetHeadToHead(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		opponentID, err := parseID("opponentId", c.Params("opponentId"))
		if err != nil {
			return respondError(c, log, err)
		}
		h2h, err := eng.HeadToHead(c.UserContext(), playerID, opponentID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"player_id":   h2h.PlayerID,
			"opponent_id": h2h.OpponentID,
			"wins":        h2h.Record.Wins,
			"losses":      h2h.Record.Losses,
			"ties":        h2h.Record.Ties,
			"matches":     len(h2h.Matchups),
		})
	}
}

type MatchTypeStatResponse struct {
	MatchType string `json:"match_type"`
	Wins      int    `json:"wins"`
	Losses    int    `json:"losses"`
	Ties      int    `json:"ties"`
}

// GetMatchTypeStats handles GET /api/v1/players/:id/match-types.
func GetMatchTypeStats(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		rows, err := eng.MatchTypeStats(c.UserContext(), playerID)
		if err != nil {
			return respondError(c, log, err)
		}
		resp := make([]MatchTypeStatResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, MatchTypeStatResponse{MatchType: r.MatchType, Wins: r.Wins, Losses: r.Losses, Ties: r.Ties})
		}
		return c.JSON(resp)
	}
}
