package aggregate

import (
	"math"
	"testing"

	"github.com/opencivic/alignator/models"
)

func TestWeightsValidate(t *testing.T) {
	t.Parallel()
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
	if err := (Weights{Text: 0.5, Coalition: 0.5, Vote: 0}).Validate(); err != nil {
		t.Fatalf("zero vote weight should validate: %v", err)
	}
	if err := (Weights{Text: 0.5, Coalition: 0.5, Vote: 0.5}).Validate(); err == nil {
		t.Fatalf("sum 1.5 must fail")
	}
	if err := (Weights{Text: 1.3, Coalition: -0.3, Vote: 0}).Validate(); err == nil {
		t.Fatalf("negative weight must fail")
	}
}

func TestCombineDropoutRenormalizes(t *testing.T) {
	t.Parallel()
	w := Weights{Text: 0.5, Coalition: 0.3, Vote: 0.2}
	text := models.SignalScore{Value: 0.8, Confidence: 1}
	dead := models.SignalScore{}
	got := Combine(text, dead, dead, w)
	// With the other two signals at confidence 0 the value is text alone,
	// not text diluted toward 0.
	if got.Value != 0.8 {
		t.Fatalf("value = %v, want 0.8", got.Value)
	}
	if got.Confidence != 0.5 {
		t.Fatalf("confidence = %v, want weight share 0.5", got.Confidence)
	}
}

func TestCombineAllZeroConfidence(t *testing.T) {
	t.Parallel()
	dead := models.SignalScore{Value: 0.9}
	got := Combine(dead, dead, dead, DefaultWeights())
	if got != (models.SignalScore{}) {
		t.Fatalf("all-dead signals = %+v, want zero", got)
	}
	if math.IsNaN(got.Value) || math.IsNaN(got.Confidence) {
		t.Fatalf("NaN leaked: %+v", got)
	}
}

func TestCombineWeightedMean(t *testing.T) {
	t.Parallel()
	w := Weights{Text: 0.5, Coalition: 0.25, Vote: 0.25}
	got := Combine(
		models.SignalScore{Value: 1, Confidence: 1},
		models.SignalScore{Value: -1, Confidence: 1},
		models.SignalScore{Value: -1, Confidence: 1},
		w,
	)
	if got.Value != 0 {
		t.Fatalf("value = %v, want 0", got.Value)
	}
	if got.Confidence != 1 {
		t.Fatalf("confidence = %v, want 1", got.Confidence)
	}
}

func TestCombineClipsValue(t *testing.T) {
	t.Parallel()
	// Confidence outside [0,1] is clipped before use.
	got := Combine(
		models.SignalScore{Value: 1, Confidence: 7},
		models.SignalScore{},
		models.SignalScore{},
		DefaultWeights(),
	)
	if got.Value != 1 || got.Confidence > 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()
	th := DefaultThresholds()
	cases := []struct {
		value float64
		want  string
	}{
		{0.9, "left"},
		{0.31, "left"},
		{0.3, "center"},
		{0, "center"},
		{-0.3, "center"},
		{-0.31, "right"},
		{-1, "right"},
	}
	for _, tc := range cases {
		if got := Label(tc.value, th); got != tc.want {
			t.Fatalf("Label(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
