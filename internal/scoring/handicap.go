// Package scoring holds the pure match-play rules: handicap stroke allocation, best-ball
// hole resolution, the match state machine and the round/tournament/player tallies.
// Nothing in this package touches the database; the engine package loads rows, calls these
// functions and writes the results back inside one transaction.
package scoring

// HandicapPolicy holds the tunable parts of stroke allocation.
type HandicapPolicy struct {
	// DoubleStrokeThreshold is the course handicap at which a player starts receiving a
	// second stroke on the hardest holes.
	DoubleStrokeThreshold int
	// DoubleStrokeHoles is how many of the hardest holes (by handicap rank) grant that
	// second stroke.
	DoubleStrokeHoles int
}

// DefaultHandicapPolicy grants the second stroke from a course handicap of 18 on the
// two hardest holes.
var DefaultHandicapPolicy = HandicapPolicy{
	DoubleStrokeThreshold: 18,
	DoubleStrokeHoles:     2,
}

// StrokesForHole returns how many strokes a player receives on a hole.
//
// A nil course handicap (none entered for the round) or a nil/invalid hole rank means no
// strokes. Otherwise the player gets one stroke on each of the N hardest holes, N being the
// course handicap, and a second one on the policy's hardest holes once the handicap reaches
// the threshold.
func (p HandicapPolicy) StrokesForHole(courseHandicap, handicapRank *int) int {
	if courseHandicap == nil || handicapRank == nil {
		return 0
	}
	hcp, rank := *courseHandicap, *handicapRank
	if hcp <= 0 || rank < 1 {
		return 0
	}
	strokes := 0
	if rank <= hcp {
		strokes = 1
	}
	if strokes > 0 && hcp >= p.DoubleStrokeThreshold && rank <= p.DoubleStrokeHoles {
		strokes++
	}
	return strokes
}

// NetScore subtracts handicap strokes from a gross score, flooring at zero.
// A nil gross score stays nil: an unentered hole is never a zero.
func NetScore(gross *int, strokes int) *int {
	if gross == nil {
		return nil
	}
	net := *gross - strokes
	if net < 0 {
		net = 0
	}
	return &net
}
