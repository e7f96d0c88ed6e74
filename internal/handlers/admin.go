package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/trentd187/matchplay/internal/engine"
	"github.com/trentd187/matchplay/internal/models"
)

// RegisterParticipantRequest is the JSON body of POST /api/v1/matches/:id/participants.
type RegisterParticipantRequest struct {
	PlayerID string `json:"player_id"`
	Side     string `json:"side"` // "aviators" or "producers"
}

// RegisterParticipant handles POST /api/v1/matches/:id/participants (admin only).
// Answers 409 when the player already plays another match of the same round.
func RegisterParticipant(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		matchID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		var req RegisterParticipantRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		playerID, err := parseID("player_id", req.PlayerID)
		if err != nil {
			return respondError(c, log, err)
		}
		side, err := models.ParseSide(req.Side)
		if err != nil {
			return respondError(c, log, &engine.ValidationError{Field: "side", Reason: err.Error()})
		}

		p, err := eng.RegisterParticipant(c.UserContext(), matchID, playerID, side)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ParticipantResponse{PlayerID: p.PlayerID.String(), Side: p.Side})
	}
}

type SetMatchLockRequest struct {
	Locked bool `json:"locked"`
}

// SetMatchLock handles PUT /api/v1/matches/:id/lock (admin only).
func SetMatchLock(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		matchID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		var req SetMatchLockRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		m, err := eng.SetMatchLocked(c.UserContext(), matchID, req.Locked)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"id": m.ID, "locked": m.Locked})
	}
}

type SetCourseHandicapRequest struct {
	CourseHandicap *int `json:"course_handicap"`
}

// SetCourseHandicap handles PUT /api/v1/rounds/:id/handicaps/:playerId (admin only).
// Scores the player already posted in the round are re-netted with the new value.
func SetCourseHandicap(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roundID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		playerID, err := parseID("playerId", c.Params("playerId"))
		if err != nil {
			return respondError(c, log, err)
		}
		var req SetCourseHandicapRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.CourseHandicap == nil {
			return respondError(c, log, &engine.ValidationError{Field: "course_handicap", Reason: "is required"})
		}

		h, err := eng.SetCourseHandicap(c.UserContext(), playerID, roundID, *req.CourseHandicap)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"player_id":       h.PlayerID,
			"round_id":        h.RoundID,
			"course_handicap": h.CourseHandicap,
		})
	}
}

// RecomputeTournamentPlayerStats handles POST /api/v1/tournaments/:id/player-stats (admin only).
func RecomputeTournamentPlayerStats(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tournamentID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		stats, err := eng.RecomputeTournamentPlayerStats(c.UserContext(), tournamentID)
		if err != nil {
			return respondError(c, log, err)
		}
		resp := make([]fiber.Map, 0, len(stats))
		for _, s := range stats {
			resp = append(resp, fiber.Map{
				"player_id":      s.PlayerID,
				"wins":           s.Wins,
				"losses":         s.Losses,
				"ties":           s.Ties,
				"points":         s.Points,
				"matches_played": s.MatchesPlayed,
			})
		}
		return c.JSON(resp)
	}
}

// UpdateTournamentHistory handles POST /api/v1/tournaments/:id/history (admin only).
func UpdateTournamentHistory(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tournamentID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		h, err := eng.UpdateTournamentHistory(c.UserContext(), tournamentID)
		if err != nil {
			return respondError(c, log, err)
		}
		var winner *models.Side
		if h.WinningTeam != models.SideNone {
			winner = &h.WinningTeam
		}
		return c.JSON(fiber.Map{
			"tournament_id":   h.TournamentID,
			"year":            h.Year,
			"tournament_name": h.TournamentName,
			"winning_team":    winner,
			"aviator_score":   h.AviatorScore,
			"producer_score":  h.ProducerScore,
		})
	}
}

// Rebuild handles POST /api/v1/rebuild (admin only). It blocks every other write until
// the replay finishes.
func Rebuild(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := eng.RebuildAll(c.UserContext()); err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"status": "rebuilt"})
	}
}
