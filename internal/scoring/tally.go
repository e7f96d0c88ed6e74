package scoring

import "github.com/trentd187/matchplay/internal/models"

// Totals are the four team score columns kept on rounds and tournaments.
// Completed matches count toward Aviators/Producers; matches still being played count
// toward the Pending fields, by who leads right now.
type Totals struct {
	Aviators         float64 `json:"aviator_score"`
	Producers        float64 `json:"producer_score"`
	PendingAviators  float64 `json:"pending_aviator_score"`
	PendingProducers float64 `json:"pending_producer_score"`
}

func (t Totals) Add(o Totals) Totals {
	return Totals{
		Aviators:         t.Aviators + o.Aviators,
		Producers:        t.Producers + o.Producers,
		PendingAviators:  t.PendingAviators + o.PendingAviators,
		PendingProducers: t.PendingProducers + o.PendingProducers,
	}
}

// MatchSummary is what a round tally needs from a match.
type MatchSummary struct {
	Status      models.MatchStatus
	LeadingTeam models.Side
}

// RoundTotals awards a point per match: 1 to the leader, 0.5 each when level.
// Not-started matches contribute nothing.
func RoundTotals(matches []MatchSummary) Totals {
	var t Totals
	for _, m := range matches {
		var av, pr *float64
		switch m.Status {
		case models.MatchStatusCompleted:
			av, pr = &t.Aviators, &t.Producers
		case models.MatchStatusInProgress:
			av, pr = &t.PendingAviators, &t.PendingProducers
		default:
			continue
		}
		switch m.LeadingTeam {
		case models.SideAviators:
			*av += 1
		case models.SideProducers:
			*pr += 1
		default:
			*av += 0.5
			*pr += 0.5
		}
	}
	return t
}

// TournamentTotals sums round totals.
func TournamentTotals(rounds []Totals) Totals {
	var t Totals
	for _, r := range rounds {
		t = t.Add(r)
	}
	return t
}

// PersonalOutcome is a completed match's result for a player on side.
func PersonalOutcome(leading, side models.Side) models.Outcome {
	switch leading {
	case models.SideNone:
		return models.OutcomeTie
	case side:
		return models.OutcomeWin
	default:
		return models.OutcomeLoss
	}
}

// Record is a win/loss/tie line.
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

func (r *Record) Add(o models.Outcome) {
	switch o {
	case models.OutcomeWin:
		r.Wins++
	case models.OutcomeLoss:
		r.Losses++
	case models.OutcomeTie:
		r.Ties++
	}
}

// Points counts a win as 1 and a tie as 0.5.
func (r Record) Points() float64 {
	return float64(r.Wins) + 0.5*float64(r.Ties)
}

func (r Record) Played() int {
	return r.Wins + r.Losses + r.Ties
}

// Career is a player's all-tournament rollup.
type Career struct {
	Record
	Points            float64
	MatchesPlayed     int
	TournamentsPlayed int
}

// CareerFrom sums per-tournament stat rows. It is a full recompute by construction:
// the caller passes every row the player has.
func CareerFrom(stats []models.TournamentPlayerStat) Career {
	var c Career
	for _, s := range stats {
		c.Wins += s.Wins
		c.Losses += s.Losses
		c.Ties += s.Ties
		c.Points += s.Points
		c.MatchesPlayed += s.MatchesPlayed
	}
	c.TournamentsPlayed = len(stats)
	return c
}
