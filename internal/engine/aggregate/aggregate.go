// Package aggregate combines the text, coalition, and vote sub-scores into
// one calibrated per-member alignment score with a confidence measure.
package aggregate

import (
	"fmt"
	"math"

	"github.com/opencivic/alignator/models"
)

// Weights is the configured per-signal weighting. Must sum to 1.
type Weights struct {
	Text      float64 `mapstructure:"text" json:"text"`
	Coalition float64 `mapstructure:"coalition" json:"coalition"`
	Vote      float64 `mapstructure:"vote" json:"vote"`
}

// DefaultWeights returns equal thirds.
func DefaultWeights() Weights {
	return Weights{Text: 1.0 / 3, Coalition: 1.0 / 3, Vote: 1.0 / 3}
}

// Validate checks that weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Text, w.Coalition, w.Vote} {
		if v < 0 {
			return fmt.Errorf("negative signal weight: %v", v)
		}
	}
	if sum := w.Text + w.Coalition + w.Vote; math.Abs(sum-1) > 0.001 {
		return fmt.Errorf("signal weights sum to %.4f, must sum to 1.0", sum)
	}
	return nil
}

// Thresholds maps an aggregate value to an ideology label.
type Thresholds struct {
	Left  float64 `mapstructure:"left" json:"left"`   // value above this labels "left"
	Right float64 `mapstructure:"right" json:"right"` // value below this labels "right"
}

// DefaultThresholds matches the conventional +-0.3 banding.
func DefaultThresholds() Thresholds {
	return Thresholds{Left: 0.3, Right: -0.3}
}

// Combine merges the three sub-scores. Each signal's multiplier is its
// configured weight times its own confidence, re-normalized so signals with
// confidence 0 drop out entirely instead of pulling the average toward 0.
// All-zero multipliers yield {0, 0}; the result is clipped and never NaN.
func Combine(text, coalition, vote models.SignalScore, w Weights) models.SignalScore {
	type part struct {
		score  models.SignalScore
		weight float64
	}
	parts := []part{
		{text, w.Text},
		{coalition, w.Coalition},
		{vote, w.Vote},
	}

	var num, denom, confNum, confDenom float64
	for _, p := range parts {
		mult := p.weight * clip(p.score.Confidence, 0, 1)
		num += mult * p.score.Value
		denom += mult
		confNum += p.weight * clip(p.score.Confidence, 0, 1)
		confDenom += p.weight
	}
	if denom == 0 || confDenom == 0 {
		return models.SignalScore{}
	}
	return models.SignalScore{
		Value:      clip(num/denom, -1, 1),
		Confidence: clip(confNum/confDenom, 0, 1),
	}
}

// Label converts an aggregate value to its ideology band.
func Label(value float64, th Thresholds) string {
	switch {
	case value > th.Left:
		return "left"
	case value < th.Right:
		return "right"
	default:
		return "center"
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
