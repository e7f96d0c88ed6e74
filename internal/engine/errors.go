package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/trentd187/matchplay/internal/models"
)

// ErrNotFound is wrapped by every lookup failure so handlers can map it to a 404.
var ErrNotFound = errors.New("not found")

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
}

// MatchLockedError is returned when a write targets a match an administrator has frozen.
type MatchLockedError struct {
	MatchID uuid.UUID
}

func (e *MatchLockedError) Error() string {
	return fmt.Sprintf("match %s is locked", e.MatchID)
}

// MatchStartedError is returned when a participant is added to a match that already has
// scores. The cascade for such a match would never credit the late player.
type MatchStartedError struct {
	MatchID uuid.UUID
	Status  models.MatchStatus
}

func (e *MatchStartedError) Error() string {
	return fmt.Sprintf("match %s is %s; participants can only be added before play starts", e.MatchID, e.Status)
}

// NotAParticipantError is returned when a score is posted for a player who is not in the match.
type NotAParticipantError struct {
	PlayerID uuid.UUID
	MatchID  uuid.UUID
}

func (e *NotAParticipantError) Error() string {
	return fmt.Sprintf("player %s is not a participant in match %s", e.PlayerID, e.MatchID)
}

// DuplicateRoundParticipationError is returned when a player is added to a second match
// in the same round.
type DuplicateRoundParticipationError struct {
	PlayerID        uuid.UUID
	RoundID         uuid.UUID
	ExistingMatchID uuid.UUID // uuid.Nil when only the unique index caught the conflict
}

func (e *DuplicateRoundParticipationError) Error() string {
	if e.ExistingMatchID == uuid.Nil {
		return fmt.Sprintf("player %s already plays a match in round %s", e.PlayerID, e.RoundID)
	}
	return fmt.Sprintf("player %s already plays match %s in round %s", e.PlayerID, e.ExistingMatchID, e.RoundID)
}

// ValidationError reports bad caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
