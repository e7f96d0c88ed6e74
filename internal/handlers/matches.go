package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/trentd187/matchplay/internal/engine"
	"github.com/trentd187/matchplay/internal/events"
	"github.com/trentd187/matchplay/internal/live"
	"github.com/trentd187/matchplay/internal/models"
)

// MatchResponse is what clients see of a match. A dedicated struct keeps the JSON shape
// independent of the GORM model.
type MatchResponse struct {
	ID           string                `json:"id"`
	RoundID      string                `json:"round_id"`
	Name         string                `json:"name"`
	Status       models.MatchStatus    `json:"status"`
	CurrentHole  int                   `json:"current_hole"`
	LeadingTeam  *models.Side          `json:"leading_team"` // null when level
	LeadAmount   int                   `json:"lead_amount"`
	Result       *string               `json:"result"`
	Locked       bool                  `json:"locked"`
	CompletedAt  *time.Time            `json:"completed_at"`
	Participants []ParticipantResponse `json:"participants"`
	Holes        []HoleResponse        `json:"holes,omitempty"`
}

type ParticipantResponse struct {
	PlayerID string      `json:"player_id"`
	Side     models.Side `json:"side"`
}

// HoleResponse is one hole's best-ball result.
type HoleResponse struct {
	HoleNumber    int                `json:"hole_number"`
	AviatorScore  *int               `json:"aviator_score"`
	ProducerScore *int               `json:"producer_score"`
	WinningTeam   *models.HoleWinner `json:"winning_team"` // null until both sides posted
}

func toHoleResponse(h models.TeamHoleScore) HoleResponse {
	resp := HoleResponse{
		HoleNumber:    h.HoleNumber,
		AviatorScore:  h.AviatorScore,
		ProducerScore: h.ProducerScore,
	}
	if h.WinningTeam != models.WinnerNone {
		w := h.WinningTeam
		resp.WinningTeam = &w
	}
	return resp
}

func toMatchResponse(m *models.Match, holes []models.TeamHoleScore) MatchResponse {
	resp := MatchResponse{
		ID:           m.ID.String(),
		RoundID:      m.RoundID.String(),
		Name:         m.Name,
		Status:       m.Status,
		CurrentHole:  m.CurrentHole,
		LeadAmount:   m.LeadAmount,
		Result:       m.Result,
		Locked:       m.Locked,
		CompletedAt:  m.CompletedAt,
		Participants: make([]ParticipantResponse, 0, len(m.Participants)),
	}
	if m.LeadingTeam != models.SideNone {
		side := m.LeadingTeam
		resp.LeadingTeam = &side
	}
	for _, p := range m.Participants {
		resp.Participants = append(resp.Participants, ParticipantResponse{PlayerID: p.PlayerID.String(), Side: p.Side})
	}
	for _, h := range holes {
		resp.Holes = append(resp.Holes, toHoleResponse(h))
	}
	return resp
}

// SubmitScoreRequest is the JSON body of POST /api/v1/matches/:id/scores.
// A null gross_score clears the player's score for the hole.
type SubmitScoreRequest struct {
	PlayerID   string `json:"player_id"`
	HoleNumber int    `json:"hole_number"`
	GrossScore *int   `json:"gross_score"`
}

// SubmitScore handles POST /api/v1/matches/:id/scores.
// It responds with the hole's team result and the match state after the write.
func SubmitScore(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		matchID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}

		var req SubmitScoreRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		playerID, err := parseID("player_id", req.PlayerID)
		if err != nil {
			return respondError(c, log, err)
		}

		hole, err := eng.SubmitPlayerScore(c.UserContext(), playerID, matchID, req.HoleNumber, req.GrossScore)
		if err != nil {
			return respondError(c, log, err)
		}
		match, err := eng.GetMatchState(c.UserContext(), matchID)
		if err != nil {
			return respondError(c, log, err)
		}

		return c.JSON(fiber.Map{
			"hole":  toHoleResponse(*hole),
			"match": toMatchResponse(match, nil),
		})
	}
}

// GetMatch handles GET /api/v1/matches/:id, returning the match with every hole result.
func GetMatch(eng *engine.Engine, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		matchID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		match, err := eng.GetMatchState(c.UserContext(), matchID)
		if err != nil {
			return respondError(c, log, err)
		}
		holes, err := eng.HoleResults(c.UserContext(), matchID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(toMatchResponse(match, holes))
	}
}

// heartbeatInterval keeps idle streams alive through proxies and lets the writer notice a
// client that went away.
const heartbeatInterval = 15 * time.Second

// StreamMatch handles GET /api/v1/matches/:id/stream as a server-sent events stream.
// The first "match" event is the current state; every committed change follows.
// snapshotUpdate describes the stored match in the same shape the engine publishes, so a
// new subscriber's first event looks like every later one. match.Round must be loaded.
func snapshotUpdate(match *models.Match) events.MatchUpdate {
	return events.MatchUpdate{
		MatchID:      match.ID,
		RoundID:      match.RoundID,
		TournamentID: match.Round.TournamentID,
		Status:       match.Status,
		LeadingTeam:  match.LeadingTeam,
		LeadAmount:   match.LeadAmount,
		CurrentHole:  match.CurrentHole,
		Result:       match.Result,
		At:           time.Now().UTC(),
	}
}

func StreamMatch(eng *engine.Engine, hub *live.Hub, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		matchID, err := parseID("id", c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		match, err := eng.GetMatchState(c.UserContext(), matchID)
		if err != nil {
			return respondError(c, log, err)
		}
		initial, err := json.Marshal(snapshotUpdate(match))
		if err != nil {
			return respondError(c, log, err)
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		client := hub.Subscribe(matchID)
		entry := log.WithField("match_id", matchID)
		entry.Debug("Match stream opened")

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer func() {
				hub.Unsubscribe(client)
				entry.Debug("Match stream closed")
			}()

			if err := writeEvent(w, initial); err != nil {
				return
			}
			ticker := time.NewTicker(heartbeatInterval)
			defer ticker.Stop()
			for {
				select {
				case data, ok := <-client.Send:
					if !ok {
						return
					}
					if err := writeEvent(w, data); err != nil {
						return
					}
				case <-ticker.C:
					if _, err := w.WriteString(": ping\n\n"); err != nil {
						return
					}
					if err := w.Flush(); err != nil {
						return
					}
				}
			}
		})
		return nil
	}
}

func writeEvent(w *bufio.Writer, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: match\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
