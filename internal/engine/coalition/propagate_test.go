package coalition

import (
	"testing"

	"github.com/opencivic/alignator/models"
)

func lineGraph(t *testing.T) *Graph {
	t.Helper()
	// a - b - c, unit weights
	b := NewBuilder([]string{"a", "b", "c"}, 1)
	b.AddDocument(models.Document{Sponsor: "a", CoSponsors: []string{"b"}})
	b.AddDocument(models.Document{Sponsor: "b", CoSponsors: []string{"c"}})
	return b.Graph()
}

func TestPropagateConverges(t *testing.T) {
	t.Parallel()
	g := lineGraph(t)
	out := Propagate(g, map[string]float64{"a": 1, "c": -1}, DefaultOptions())
	if !out.Converged {
		t.Fatalf("expected convergence in %d iterations", out.Iterations)
	}
	// Anchors stay clamped.
	if out.Scores["a"] != (models.SignalScore{Value: 1, Confidence: 1}) {
		t.Fatalf("anchor a = %+v", out.Scores["a"])
	}
	if out.Scores["c"] != (models.SignalScore{Value: -1, Confidence: 1}) {
		t.Fatalf("anchor c = %+v", out.Scores["c"])
	}
	// b averages its two neighbors.
	mid := out.Scores["b"]
	if mid.Value > 1e-3 || mid.Value < -1e-3 {
		t.Fatalf("middle node value = %v, want ~0", mid.Value)
	}
	if mid.Confidence != 1 {
		t.Fatalf("resolved confidence = %v, want 1", mid.Confidence)
	}
}

func TestPropagateAnchorValuesClipped(t *testing.T) {
	t.Parallel()
	g := lineGraph(t)
	out := Propagate(g, map[string]float64{"a": 5}, DefaultOptions())
	if got := out.Scores["a"].Value; got != 1 {
		t.Fatalf("anchor value clipped to %v, want 1", got)
	}
}

func TestPropagateDisconnected(t *testing.T) {
	t.Parallel()
	b := NewBuilder([]string{"a", "b", "x", "y"}, 1)
	b.AddDocument(models.Document{Sponsor: "a", CoSponsors: []string{"b"}})
	b.AddDocument(models.Document{Sponsor: "x", CoSponsors: []string{"y"}})
	out := Propagate(b.Graph(), map[string]float64{"a": 0.8}, DefaultOptions())

	if got := out.Scores["b"]; got.Confidence != 1 || got.Value != 0.8 {
		t.Fatalf("reachable leaf = %+v", got)
	}
	for _, id := range []string{"x", "y"} {
		if got := out.Scores[id]; got != (models.SignalScore{}) {
			t.Fatalf("unreachable %s = %+v, want zero signal", id, got)
		}
	}
}

func TestPropagateReproducible(t *testing.T) {
	t.Parallel()
	g := lineGraph(t)
	anchors := map[string]float64{"a": 0.9, "c": -0.4}
	first := Propagate(g, anchors, DefaultOptions())
	for i := 0; i < 5; i++ {
		again := Propagate(g, anchors, DefaultOptions())
		if again.Iterations != first.Iterations || again.Converged != first.Converged {
			t.Fatalf("bookkeeping drifted on repeat %d", i)
		}
		for id, want := range first.Scores {
			if got := again.Scores[id]; got != want {
				t.Fatalf("repeat %d: %s = %+v, want %+v", i, id, got, want)
			}
		}
	}
}

func TestPropagateIterationCapLowersConfidence(t *testing.T) {
	t.Parallel()
	g := lineGraph(t)
	out := Propagate(g, map[string]float64{"a": 1}, Options{Tolerance: 1e-12, MaxIterations: 1})
	if out.Converged {
		t.Fatalf("one iteration should not converge at tolerance 1e-12")
	}
	if got := out.Scores["b"].Confidence; got != 0.5 {
		t.Fatalf("cap-hit confidence = %v, want 0.5", got)
	}
	// Anchors are exempt from the haircut.
	if got := out.Scores["a"].Confidence; got != 1 {
		t.Fatalf("anchor confidence = %v, want 1", got)
	}
}

func TestPropagateEmptyGraph(t *testing.T) {
	t.Parallel()
	out := Propagate(NewBuilder(nil, 1).Graph(), map[string]float64{"a": 1}, DefaultOptions())
	if len(out.Scores) != 0 || !out.Converged {
		t.Fatalf("empty graph outcome = %+v", out)
	}
}
