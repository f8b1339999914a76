// Package votescore derives an alignment estimate per member from roll-call
// agreement rates with two reference blocs (the axis poles).
package votescore

import (
	"sort"

	"github.com/opencivic/alignator/models"
)

// Options tunes the insufficient-sample guard.
type Options struct {
	// MinSample is the minimum number of cast (yea/nay) ballots required for
	// non-zero confidence. The guard is a strict less-than: exactly MinSample
	// ballots meets the threshold.
	MinSample int
	// SampleSaturation is the cast-ballot count at which confidence reaches 1.
	SampleSaturation int
}

// DefaultOptions returns the standard sample guard settings.
func DefaultOptions() Options {
	return Options{MinSample: 5, SampleSaturation: 20}
}

// pollPosition is a pole's majority yea/nay stance on one roll call.
type polePosition struct {
	value   models.VoteValue
	defined bool
}

// Score computes (agreement rate with pole A) - (agreement rate with pole B)
// for every member id given. Abstain/absent ballots are excluded from every
// denominator. Members below the sample guard keep their computed value but
// get confidence 0; the aggregator decides how to weight it.
func Score(memberIDs []string, votes []models.Vote, refs models.AxisReferences, opts Options) map[string]models.SignalScore {
	if opts.MinSample <= 0 {
		opts.MinSample = 5
	}
	if opts.SampleSaturation < opts.MinSample {
		opts.SampleSaturation = opts.MinSample * 4
	}

	poleA := toSet(refs.PoleA)
	poleB := toSet(refs.PoleB)

	// Pre-compute pole stances per roll call.
	stancesA := make([]polePosition, len(votes))
	stancesB := make([]polePosition, len(votes))
	for i, v := range votes {
		stancesA[i] = majority(v, poleA)
		stancesB[i] = majority(v, poleB)
	}

	ids := append([]string(nil), memberIDs...)
	sort.Strings(ids)
	out := make(map[string]models.SignalScore, len(ids))
	for _, id := range ids {
		var cast, matchA, totalA, matchB, totalB int
		for i, v := range votes {
			ballot, ok := v.Ballots[id]
			if !ok || !ballot.Cast() {
				continue
			}
			cast++
			if stancesA[i].defined {
				totalA++
				if ballot == stancesA[i].value {
					matchA++
				}
			}
			if stancesB[i].defined {
				totalB++
				if ballot == stancesB[i].value {
					matchB++
				}
			}
		}
		out[id] = models.SignalScore{
			Value:      rate(matchA, totalA) - rate(matchB, totalB),
			Confidence: confidence(cast, opts),
		}
	}
	return out
}

// majority returns the pole's majority cast value on a roll call. A tie, or
// no cast ballots from the pole, leaves the stance undefined and the roll
// call is skipped for that pole.
func majority(vote models.Vote, pole map[string]struct{}) polePosition {
	var yeas, nays int
	for id := range pole {
		switch vote.Ballots[id] {
		case models.VoteYea:
			yeas++
		case models.VoteNay:
			nays++
		}
	}
	switch {
	case yeas > nays:
		return polePosition{value: models.VoteYea, defined: true}
	case nays > yeas:
		return polePosition{value: models.VoteNay, defined: true}
	default:
		return polePosition{}
	}
}

func rate(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

func confidence(cast int, opts Options) float64 {
	if cast < opts.MinSample {
		return 0
	}
	c := float64(cast) / float64(opts.SampleSaturation)
	if c > 1 {
		c = 1
	}
	return c
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
