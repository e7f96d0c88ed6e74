package scoring

import (
	"fmt"
	"sort"

	"github.com/trentd187/matchplay/internal/models"
)

// AllSquare is the result string of a match that finished level.
const AllSquare = "AS"

// HoleTally is the slice of a TeamHoleScore row the state machine needs.
type HoleTally struct {
	HoleNumber int
	Winner     models.HoleWinner
}

// MatchState is everything the state machine derives for a match.
type MatchState struct {
	Status         models.MatchStatus
	LeadingTeam    models.Side
	LeadAmount     int
	CurrentHole    int
	Result         *string
	AviatorWins    int
	ProducerWins   int
	HolesResolved  int
	LastHoleScored int
}

// NextMatchState derives a match's state from its hole results.
//
// prev is the status currently stored for the match. Completed is terminal: once a match
// has been decided it stays completed, although lead and result keep tracking the holes.
//
// Completion rules, in order:
//  1. every hole resolved: completed, "1 UP" with a leader, "AS" without
//  2. the lead exceeds the holes left after the last scored hole: completed, "<lead> UP"
//  3. at least one hole scored: in progress
//  4. otherwise not started
func NextMatchState(prev models.MatchStatus, holes []HoleTally) MatchState {
	sorted := make([]HoleTally, len(holes))
	copy(sorted, holes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].HoleNumber < sorted[j].HoleNumber })

	var st MatchState
	for _, h := range sorted {
		if !h.Winner.Resolved() {
			continue
		}
		st.HolesResolved++
		switch h.Winner.Side() {
		case models.SideAviators:
			st.AviatorWins++
		case models.SideProducers:
			st.ProducerWins++
		}
		if h.HoleNumber > st.LastHoleScored {
			st.LastHoleScored = h.HoleNumber
		}
	}

	switch {
	case st.AviatorWins > st.ProducerWins:
		st.LeadingTeam = models.SideAviators
		st.LeadAmount = st.AviatorWins - st.ProducerWins
	case st.ProducerWins > st.AviatorWins:
		st.LeadingTeam = models.SideProducers
		st.LeadAmount = st.ProducerWins - st.AviatorWins
	}
	st.CurrentHole = st.LastHoleScored + 1

	remaining := models.HolesPerRound - st.LastHoleScored
	switch {
	case st.HolesResolved >= models.HolesPerRound:
		st.Status = models.MatchStatusCompleted
		if st.LeadingTeam != models.SideNone {
			st.Result = strPtr(formatUp(1))
		} else {
			st.Result = strPtr(AllSquare)
		}
	case st.LeadAmount > remaining:
		st.Status = models.MatchStatusCompleted
		st.Result = strPtr(formatUp(st.LeadAmount))
	case st.LastHoleScored > 0:
		st.Status = models.MatchStatusInProgress
	default:
		st.Status = models.MatchStatusNotStarted
	}

	if prev == models.MatchStatusCompleted && st.Status != models.MatchStatusCompleted {
		st.Status = models.MatchStatusCompleted
		if st.LeadingTeam != models.SideNone {
			st.Result = strPtr(formatUp(st.LeadAmount))
		} else {
			st.Result = strPtr(AllSquare)
		}
	}
	return st
}

// JustCompleted reports the one edge that fires the stat cascade.
func JustCompleted(prev, next models.MatchStatus) bool {
	return prev != models.MatchStatusCompleted && next == models.MatchStatusCompleted
}

func formatUp(n int) string {
	return fmt.Sprintf("%d UP", n)
}

func strPtr(s string) *string { return &s }
