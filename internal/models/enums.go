package models

import (
	"database/sql/driver"
	"fmt"
)

// --- Enums ---
// Go doesn't have a built-in enum keyword, so each closed value set below is a named
// string type plus constants. Every type also implements sql.Scanner and driver.Valuer
// so that a value outside the set is rejected both when it is written and when a row
// is read back. Nothing loosely typed crosses the database boundary.

// Side is one of the two teams competing in the tournament.
// The zero value (SideNone) means "no side" and is stored as NULL.
type Side string

const (
	SideNone      Side = ""
	SideAviators  Side = "aviators"
	SideProducers Side = "producers"
)

// ParseSide converts raw input (a request body, a CSV column) into a Side.
// An empty string is not accepted here: callers that allow "no side" use SideNone directly.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideAviators, SideProducers:
		return Side(s), nil
	default:
		return SideNone, fmt.Errorf("unknown side %q", s)
	}
}

// Opponent returns the other team. SideNone has no opponent.
func (s Side) Opponent() Side {
	switch s {
	case SideAviators:
		return SideProducers
	case SideProducers:
		return SideAviators
	default:
		return SideNone
	}
}

func (s Side) Valid() bool {
	return s == SideAviators || s == SideProducers
}

func (s Side) Value() (driver.Value, error) {
	if s == SideNone {
		return nil, nil
	}
	if !s.Valid() {
		return nil, fmt.Errorf("unknown side %q", string(s))
	}
	return string(s), nil
}

func (s *Side) Scan(src any) error {
	raw, ok, err := scanString(src)
	if err != nil {
		return err
	}
	if !ok {
		*s = SideNone
		return nil
	}
	v, err := ParseSide(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// HoleWinner is the resolved result of a single hole.
// WinnerNone means the hole cannot be decided yet (a side has no posted score).
type HoleWinner string

const (
	WinnerNone      HoleWinner = ""
	WinnerAviators  HoleWinner = "aviators"
	WinnerProducers HoleWinner = "producers"
	WinnerTie       HoleWinner = "tie"
)

// Resolved reports whether the hole counts toward the match tally.
// A halved hole is resolved; it just doesn't move the lead.
func (w HoleWinner) Resolved() bool {
	return w != WinnerNone
}

// Side returns the team that won the hole, or SideNone for a tie or an open hole.
func (w HoleWinner) Side() Side {
	switch w {
	case WinnerAviators:
		return SideAviators
	case WinnerProducers:
		return SideProducers
	default:
		return SideNone
	}
}

func (w HoleWinner) Value() (driver.Value, error) {
	switch w {
	case WinnerNone:
		return nil, nil
	case WinnerAviators, WinnerProducers, WinnerTie:
		return string(w), nil
	default:
		return nil, fmt.Errorf("unknown hole winner %q", string(w))
	}
}

func (w *HoleWinner) Scan(src any) error {
	raw, ok, err := scanString(src)
	if err != nil {
		return err
	}
	if !ok {
		*w = WinnerNone
		return nil
	}
	switch HoleWinner(raw) {
	case WinnerAviators, WinnerProducers, WinnerTie:
		*w = HoleWinner(raw)
		return nil
	default:
		return fmt.Errorf("unknown hole winner %q", raw)
	}
}

// MatchStatus tracks the lifecycle of a match.
// Transitions only move forward: not_started → in_progress → completed.
type MatchStatus string

const (
	MatchStatusNotStarted MatchStatus = "not_started"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

func ParseMatchStatus(s string) (MatchStatus, error) {
	switch MatchStatus(s) {
	case MatchStatusNotStarted, MatchStatusInProgress, MatchStatusCompleted:
		return MatchStatus(s), nil
	default:
		return "", fmt.Errorf("unknown match status %q", s)
	}
}

func (m MatchStatus) Value() (driver.Value, error) {
	if _, err := ParseMatchStatus(string(m)); err != nil {
		return nil, err
	}
	return string(m), nil
}

func (m *MatchStatus) Scan(src any) error {
	raw, ok, err := scanString(src)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("match status cannot be NULL")
	}
	v, err := ParseMatchStatus(raw)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Outcome is a completed match seen from one player's point of view.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeTie  Outcome = "tie"
)

func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeWin, OutcomeLoss, OutcomeTie:
		return Outcome(s), nil
	default:
		return "", fmt.Errorf("unknown outcome %q", s)
	}
}

func (o Outcome) Value() (driver.Value, error) {
	if _, err := ParseOutcome(string(o)); err != nil {
		return nil, err
	}
	return string(o), nil
}

func (o *Outcome) Scan(src any) error {
	raw, ok, err := scanString(src)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("outcome cannot be NULL")
	}
	v, err := ParseOutcome(raw)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// scanString normalizes the handful of shapes a text column arrives in.
// ok is false for NULL.
func scanString(src any) (string, bool, error) {
	switch v := src.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case []byte:
		return string(v), true, nil
	default:
		return "", false, fmt.Errorf("cannot scan %T into an enum", src)
	}
}
