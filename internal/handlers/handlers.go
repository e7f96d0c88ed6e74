// Package handlers contains the HTTP route handlers for the match-play scoring API.
// Each exported function follows the "handler factory" pattern: it takes its
// dependencies (the scoring engine, a logger) and returns a fiber.Handler, so nothing
// is kept in global variables.
//
// Handlers are thin: they parse the request, call one engine operation and shape the
// response. All scoring rules live in the engine.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trentd187/matchplay/internal/engine"
	"github.com/trentd187/matchplay/internal/live"
	"github.com/trentd187/matchplay/internal/middleware"
)

// RegisterRoutes mounts every API route on router. router is expected to run the Auth
// middleware already; admin routes add the role check themselves.
func RegisterRoutes(router fiber.Router, eng *engine.Engine, hub *live.Hub, log *logrus.Logger) {
	// Scoring and read models, open to every signed-in caller
	router.Post("/matches/:id/scores", SubmitScore(eng, log))
	router.Get("/matches/:id", GetMatch(eng, log))
	router.Get("/matches/:id/stream", StreamMatch(eng, hub, log))
	router.Get("/rounds/:id/totals", GetRoundTotals(eng, log))
	router.Get("/tournaments/:id/totals", GetTournamentTotals(eng, log))
	router.Get("/players/:id/career", GetCareer(eng, log))
	router.Get("/players/:id/matchups", GetMatchups(eng, log))
	router.Get("/players/:id/match-types", GetMatchTypeStats(eng, log))
	router.Get("/players/:id/head-to-head/:opponentId", GetHeadToHead(eng, log))

	// Administrative corrections
	admin := middleware.RequireRole(log, middleware.RoleAdmin)
	router.Post("/matches/:id/participants", admin, RegisterParticipant(eng, log))
	router.Put("/matches/:id/lock", admin, SetMatchLock(eng, log))
	router.Put("/rounds/:id/handicaps/:playerId", admin, SetCourseHandicap(eng, log))
	router.Post("/tournaments/:id/player-stats", admin, RecomputeTournamentPlayerStats(eng, log))
	router.Post("/tournaments/:id/history", admin, UpdateTournamentHistory(eng, log))
	router.Post("/rebuild", admin, Rebuild(eng, log))
}

// parseID parses a UUID from a route parameter or body field. A malformed value is a
// validation error, which respondError turns into a 400.
func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &engine.ValidationError{Field: field, Reason: "must be a UUID"}
	}
	return id, nil
}

// respondError maps engine errors to status codes. Unknown errors are logged and
// answered with a generic 500 so internals never leak to clients.
func respondError(c *fiber.Ctx, log *logrus.Logger, err error) error {
	var (
		validation *engine.ValidationError
		locked     *engine.MatchLockedError
		notPlaying *engine.NotAParticipantError
		duplicate  *engine.DuplicateRoundParticipationError
		started    *engine.MatchStartedError
	)
	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Error()})
	case errors.As(err, &locked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": locked.Error()})
	case errors.As(err, &notPlaying):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": notPlaying.Error()})
	case errors.As(err, &duplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":             duplicate.Error(),
			"existing_match_id": duplicate.ExistingMatchID,
		})
	case errors.As(err, &started):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  started.Error(),
			"status": started.Status,
		})
	case errors.Is(err, engine.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}
