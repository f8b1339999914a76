package votescore

import (
	"testing"
	"time"

	"github.com/opencivic/alignator/models"
)

func refs() models.AxisReferences {
	return models.AxisReferences{
		Axis:  "economic",
		PoleA: []string{"a1", "a2"},
		PoleB: []string{"b1", "b2"},
	}
}

// vote builds a roll call where both poles vote their bloc line and the
// subject casts the given ballot.
func blocVote(id string, subject models.VoteValue) models.Vote {
	return models.Vote{
		ID:        id,
		Timestamp: time.Now(),
		Ballots: map[string]models.VoteValue{
			"a1": models.VoteYea, "a2": models.VoteYea,
			"b1": models.VoteNay, "b2": models.VoteNay,
			"m1": subject,
		},
	}
}

func TestScorePerfectPoleAgreement(t *testing.T) {
	t.Parallel()
	var votes []models.Vote
	for i := 0; i < 20; i++ {
		votes = append(votes, blocVote(string(rune('a'+i)), models.VoteYea))
	}
	out := Score([]string{"m1"}, votes, refs(), DefaultOptions())
	got := out["m1"]
	// Always with pole A, never with pole B: rate 1 - rate 0.
	if got.Value != 1 {
		t.Fatalf("value = %v, want 1", got.Value)
	}
	if got.Confidence != 1 {
		t.Fatalf("confidence = %v, want 1 at saturation", got.Confidence)
	}
}

func TestScoreMinSampleGuard(t *testing.T) {
	t.Parallel()
	votes := []models.Vote{
		blocVote("v1", models.VoteYea),
		blocVote("v2", models.VoteYea),
	}
	out := Score([]string{"m1"}, votes, refs(), Options{MinSample: 5, SampleSaturation: 20})
	got := out["m1"]
	if got.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0 below min sample", got.Confidence)
	}
	// The value is still computed; the aggregator decides what to do with it.
	if got.Value != 1 {
		t.Fatalf("value = %v, want 1", got.Value)
	}
}

func TestScoreExactlyMinSampleCounts(t *testing.T) {
	t.Parallel()
	var votes []models.Vote
	for i := 0; i < 5; i++ {
		votes = append(votes, blocVote(string(rune('a'+i)), models.VoteNay))
	}
	out := Score([]string{"m1"}, votes, refs(), Options{MinSample: 5, SampleSaturation: 20})
	got := out["m1"]
	if got.Confidence != 0.25 {
		t.Fatalf("confidence = %v, want 5/20", got.Confidence)
	}
	if got.Value != -1 {
		t.Fatalf("value = %v, want -1 for pole B agreement", got.Value)
	}
}

func TestScoreAbstainExcluded(t *testing.T) {
	t.Parallel()
	var votes []models.Vote
	for i := 0; i < 10; i++ {
		votes = append(votes, blocVote(string(rune('a'+i)), models.VoteAbstain))
	}
	// Ten abstentions: zero cast ballots, everything at zero.
	out := Score([]string{"m1"}, votes, refs(), DefaultOptions())
	if got := out["m1"]; got != (models.SignalScore{}) {
		t.Fatalf("abstaining member = %+v, want zero signal", got)
	}
}

func TestScoreUndefinedPoleSkipsRollCall(t *testing.T) {
	t.Parallel()
	// Pole A splits evenly: its stance on this roll call is undefined.
	split := models.Vote{
		ID:        "split",
		Timestamp: time.Now(),
		Ballots: map[string]models.VoteValue{
			"a1": models.VoteYea, "a2": models.VoteNay,
			"b1": models.VoteNay, "b2": models.VoteNay,
			"m1": models.VoteNay,
		},
	}
	votes := []models.Vote{split}
	for i := 0; i < 5; i++ {
		votes = append(votes, blocVote(string(rune('a'+i)), models.VoteNay))
	}
	out := Score([]string{"m1"}, votes, refs(), Options{MinSample: 1, SampleSaturation: 6})
	got := out["m1"]
	// Pole A agreement over 5 defined roll calls: 0. Pole B over 6: 6/6.
	if got.Value != -1 {
		t.Fatalf("value = %v, want -1", got.Value)
	}
	if got.Confidence != 1 {
		t.Fatalf("confidence = %v, want 1", got.Confidence)
	}
}

func TestMajority(t *testing.T) {
	t.Parallel()
	pole := map[string]struct{}{"a": {}, "b": {}, "c": {}}
	v := models.Vote{Ballots: map[string]models.VoteValue{
		"a": models.VoteYea, "b": models.VoteYea, "c": models.VoteNay,
	}}
	if got := majority(v, pole); !got.defined || got.value != models.VoteYea {
		t.Fatalf("majority = %+v", got)
	}
	tie := models.Vote{Ballots: map[string]models.VoteValue{
		"a": models.VoteYea, "b": models.VoteNay, "c": models.VoteAbsent,
	}}
	if got := majority(tie, pole); got.defined {
		t.Fatalf("tie must leave stance undefined, got %+v", got)
	}
}
