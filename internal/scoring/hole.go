package scoring

import "github.com/trentd187/matchplay/internal/models"

// PlayerNet is one player's net score on a hole, tagged with the side they play for.
type PlayerNet struct {
	Side models.Side
	Net  *int
}

// HoleResult is the best-ball outcome of a hole.
type HoleResult struct {
	Aviators  *int
	Producers *int
	Winner    models.HoleWinner
}

// ResolveHole computes each side's best (lowest) net score and the hole's winner.
// Players without a posted score are ignored. If either side has nobody posted, the hole
// stays open (WinnerNone) and doesn't count toward the match.
func ResolveHole(scores []PlayerNet) HoleResult {
	var res HoleResult
	for _, s := range scores {
		if s.Net == nil {
			continue
		}
		switch s.Side {
		case models.SideAviators:
			res.Aviators = lowest(res.Aviators, *s.Net)
		case models.SideProducers:
			res.Producers = lowest(res.Producers, *s.Net)
		}
	}

	if res.Aviators == nil || res.Producers == nil {
		return res
	}
	switch {
	case *res.Aviators < *res.Producers:
		res.Winner = models.WinnerAviators
	case *res.Producers < *res.Aviators:
		res.Winner = models.WinnerProducers
	default:
		res.Winner = models.WinnerTie
	}
	return res
}

func lowest(cur *int, v int) *int {
	if cur == nil || v < *cur {
		return &v
	}
	return cur
}
