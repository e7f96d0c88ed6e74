// Package events carries match updates out of the engine once a write has committed.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trentd187/matchplay/internal/models"
)

// MatchUpdate is a snapshot of a match after a committed write.
type MatchUpdate struct {
	MatchID      uuid.UUID          `json:"match_id"`
	RoundID      uuid.UUID          `json:"round_id"`
	TournamentID uuid.UUID          `json:"tournament_id"`
	Status       models.MatchStatus `json:"status"`
	LeadingTeam  models.Side        `json:"leading_team,omitempty"`
	LeadAmount   int                `json:"lead_amount"`
	CurrentHole  int                `json:"current_hole"`
	Result       *string            `json:"result,omitempty"`
	Hole         int                `json:"hole,omitempty"` // Hole whose score triggered the update; 0 for bulk recomputes
	Completed    bool               `json:"completed"`      // True only on the update that completed the match
	At           time.Time          `json:"at"`
}

// Publisher delivers match updates to whoever is watching.
// Implementations must not assume the update can be retracted: it describes committed state.
type Publisher interface {
	Publish(ctx context.Context, u MatchUpdate) error
}

// Multi fans an update out to several publishers. Every publisher is tried even if an
// earlier one fails; the errors are joined.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, u MatchUpdate) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every update.
type Nop struct{}

func (Nop) Publish(context.Context, MatchUpdate) error { return nil }
