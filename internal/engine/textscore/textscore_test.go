package textscore

import (
	"testing"
	"time"

	"github.com/opencivic/alignator/internal/engine/lexicon"
	"github.com/opencivic/alignator/models"
)

func testStore(t *testing.T) *lexicon.Store {
	t.Helper()
	s, err := lexicon.NewStore([]lexicon.AxisLexicon{{
		Name: "economic",
		Entries: []lexicon.Entry{
			{Term: "minimum wage", Weight: 0.8},
			{Term: "wage", Weight: 0.2},
			{Term: "deregulation", Weight: -0.7},
			{Term: "union", Weight: 0.5},
		},
	}})
	if err != nil {
		t.Fatalf("building store: %v", err)
	}
	return s
}

func doc(text string) models.Document {
	return models.Document{ID: "d1", Sponsor: "m1", Text: text, Timestamp: time.Now()}
}

func TestScoreDocumentRange(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	texts := []string{
		"Raise the minimum wage and support every union in the state.",
		"deregulation deregulation deregulation",
		"Nothing in this text matches at all.",
		"",
	}
	for _, text := range texts {
		res := ScoreDocument(doc(text), "economic", s)
		if res.Score < -1 || res.Score > 1 {
			t.Fatalf("score out of range for %q: %v", text, res.Score)
		}
		if res.Coverage < 0 || res.Coverage > 1 {
			t.Fatalf("coverage out of range for %q: %v", text, res.Coverage)
		}
		if res.Coverage == 0 && res.Score != 0 {
			t.Fatalf("zero coverage must force zero score, got %v", res.Score)
		}
	}
}

func TestScoreDocumentZeroMatches(t *testing.T) {
	t.Parallel()
	res := ScoreDocument(doc("completely unrelated words here"), "economic", testStore(t))
	if res.Score != 0 || res.Coverage != 0 {
		t.Fatalf("expected {0, 0}, got %+v", res)
	}
}

func TestScoreDocumentDeterministic(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	a := ScoreDocument(doc("The minimum wage and the union!"), "economic", s)
	b := ScoreDocument(doc("the  MINIMUM wage, and the union"), "economic", s)
	if a != b {
		t.Fatalf("identical token multisets must score identically: %+v vs %+v", a, b)
	}
	// Scoring the same document twice is bit-for-bit stable.
	if c := ScoreDocument(doc("The minimum wage and the union!"), "economic", s); c != a {
		t.Fatalf("rescoring changed output: %+v vs %+v", c, a)
	}
}

func TestGreedyLongestFirstMatching(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	// "minimum wage" must match as the bigram (0.8), not bigram plus the
	// "wage" unigram (which would add 0.2).
	res := ScoreDocument(doc("minimum wage"), "economic", s)
	if res.Coverage != 1 {
		t.Fatalf("coverage = %v, want 1", res.Coverage)
	}
	// sum 0.8 over sqrt(2) matched tokens
	want := 0.8 / 1.4142135623730951
	if diff := res.Score - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("score = %v, want %v", res.Score, want)
	}
}

func TestAggregateMember(t *testing.T) {
	t.Parallel()
	if got := AggregateMember(nil); got != (models.SignalScore{}) {
		t.Fatalf("no documents must yield zero signal, got %+v", got)
	}
	if got := AggregateMember([]Result{{Score: 0, Coverage: 0}}); got != (models.SignalScore{}) {
		t.Fatalf("all-zero coverage must yield zero signal, got %+v", got)
	}
	got := AggregateMember([]Result{
		{Score: 0.5, Coverage: 0.2},
		{Score: -0.5, Coverage: 0.2},
	})
	if got.Value != 0 {
		t.Fatalf("symmetric documents should cancel, got %v", got.Value)
	}
	if got.Confidence != 0.2 {
		t.Fatalf("confidence = %v, want mean coverage 0.2", got.Confidence)
	}
}
