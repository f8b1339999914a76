// Package textscore scores a document's lean on an axis using the lexicon
// store. Pure functions over immutable inputs; safe to run per-document in
// parallel.
package textscore

import (
	"math"
	"strings"

	"github.com/opencivic/alignator/internal/engine/lexicon"
	"github.com/opencivic/alignator/models"
)

// Result is the per-document output: a clipped score and the fraction of
// tokens the lexicon matched, used downstream as a confidence signal.
type Result struct {
	Score    float64 // [-1, 1]
	Coverage float64 // [0, 1]
}

// ScoreDocument scores one document against an axis lexicon. A document with
// zero matches yields score 0 and coverage 0; never an error.
func ScoreDocument(doc models.Document, axis string, store *lexicon.Store) Result {
	return scoreTokens(Tokenize(doc.Text), axis, store)
}

func scoreTokens(tokens []string, axis string, store *lexicon.Store) Result {
	if len(tokens) == 0 {
		return Result{}
	}
	maxGram := store.MaxGram(axis)
	if maxGram < 1 {
		return Result{}
	}

	var sum float64
	matched := 0
	// Greedy longest-first n-gram matching so a matched phrase never also
	// counts its constituent unigrams.
	for i := 0; i < len(tokens); {
		n := maxGram
		if rem := len(tokens) - i; n > rem {
			n = rem
		}
		advanced := false
		for ; n >= 1; n-- {
			gram := strings.Join(tokens[i:i+n], " ")
			if w, ok := store.Lookup(axis, gram); ok {
				sum += w
				matched += n
				i += n
				advanced = true
				break
			}
		}
		if !advanced {
			i++
		}
	}

	if matched == 0 {
		return Result{}
	}
	score := sum / math.Sqrt(float64(matched))
	return Result{
		Score:    clip(score, -1, 1),
		Coverage: float64(matched) / float64(len(tokens)),
	}
}

// AggregateMember folds a member's per-document results into one signal:
// value is the coverage-weighted mean of document scores, confidence the mean
// coverage. No documents, or no matched tokens anywhere, degrades to {0, 0}.
func AggregateMember(results []Result) models.SignalScore {
	if len(results) == 0 {
		return models.SignalScore{}
	}
	var weighted, totalCov float64
	for _, r := range results {
		weighted += r.Coverage * r.Score
		totalCov += r.Coverage
	}
	if totalCov == 0 {
		return models.SignalScore{}
	}
	return models.SignalScore{
		Value:      clip(weighted/totalCov, -1, 1),
		Confidence: clip(totalCov/float64(len(results)), 0, 1),
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
