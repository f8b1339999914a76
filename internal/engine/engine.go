// Package engine turns heterogeneous raw records (text, co-sponsorship
// edges, roll-call votes) into reproducible per-member, per-window alignment
// scores. The engine never touches network or disk: all records arrive in
// memory from the calling collaborator.
package engine

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/opencivic/alignator/internal/engine/aggregate"
	"github.com/opencivic/alignator/internal/engine/coalition"
	"github.com/opencivic/alignator/internal/engine/lexicon"
	"github.com/opencivic/alignator/internal/engine/textscore"
	"github.com/opencivic/alignator/internal/engine/votescore"
	"github.com/opencivic/alignator/models"
)

// Params bundles the tunables of one engine instance.
type Params struct {
	Weights     aggregate.Weights
	Thresholds  aggregate.Thresholds
	VoteWeight  float64 // co-voting edge weight in the coalition graph
	Propagation coalition.Options
	VoteSample  votescore.Options
}

// DefaultParams returns the standard engine settings.
func DefaultParams() Params {
	return Params{
		Weights:     aggregate.DefaultWeights(),
		Thresholds:  aggregate.DefaultThresholds(),
		VoteWeight:  1,
		Propagation: coalition.DefaultOptions(),
		VoteSample:  votescore.DefaultOptions(),
	}
}

// Engine is a reusable scoring engine bound to one lexicon store. Safe for
// concurrent Run calls: all state is read-only after construction.
type Engine struct {
	params   Params
	lexicons *lexicon.Store
	logger   *log.Logger
}

// New creates an engine. A nil logger falls back to a prefixed default.
func New(params Params, lexicons *lexicon.Store, logger *log.Logger) (*Engine, error) {
	if err := params.Weights.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ENGINE] ", log.LstdFlags)
	}
	return &Engine{params: params, lexicons: lexicons, logger: logger}, nil
}

// Axes returns the axis names the engine can score.
func (e *Engine) Axes() []string { return e.lexicons.Axes() }

// Run scores every active member on every lexicon axis for one window.
// Coalition and vote signals require axis references; axes without them fall
// back to text-only evidence. runID and computedAt are supplied by the caller
// so the numeric result never depends on wall-clock time. An empty batch
// yields zero records, not an error.
func (e *Engine) Run(ctx context.Context, window models.Window, batch models.Batch, refs []models.AxisReferences, runID string, computedAt time.Time) []models.AlignmentScore {
	members, docs, votes := e.filter(window, batch)
	if len(members) == 0 {
		return nil
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	sort.Strings(memberIDs)

	// The graph is axis-independent; build it once per run. Single-threaded
	// construction keeps edge accumulation serialized.
	builder := coalition.NewBuilder(memberIDs, e.params.VoteWeight)
	for _, d := range docs {
		builder.AddDocument(d)
	}
	for _, v := range votes {
		builder.AddVote(v)
	}
	graph := builder.Graph()

	refByAxis := make(map[string]models.AxisReferences, len(refs))
	for _, r := range refs {
		refByAxis[r.Axis] = r
	}

	var scores []models.AlignmentScore
	for _, axis := range e.lexicons.Axes() {
		axisScores := e.scoreAxis(ctx, axis, memberIDs, docs, votes, graph, refByAxis[axis])
		for _, id := range memberIDs {
			s := axisScores[id]
			agg := aggregate.Combine(s.text, s.coalition, s.vote, e.params.Weights)
			scores = append(scores, models.AlignmentScore{
				MemberID:   id,
				Axis:       axis,
				Window:     window,
				Value:      agg.Value,
				Confidence: agg.Confidence,
				Label:      aggregate.Label(agg.Value, e.params.Thresholds),
				Text:       s.text,
				Coalition:  s.coalition,
				Vote:       s.vote,
				RunID:      runID,
				ComputedAt: computedAt,
			})
		}
	}
	return scores
}

type memberSignals struct {
	text      models.SignalScore
	coalition models.SignalScore
	vote      models.SignalScore
}

// scoreAxis runs the three sub-scorers for one axis. The scorers are pure
// functions over immutable inputs, so they run as independent tasks.
func (e *Engine) scoreAxis(ctx context.Context, axis string, memberIDs []string, docs []models.Document, votes []models.Vote, graph *coalition.Graph, refs models.AxisReferences) map[string]memberSignals {
	var (
		wg             sync.WaitGroup
		textScores     map[string]models.SignalScore
		coalitionOut   coalition.Outcome
		voteScores     map[string]models.SignalScore
		haveReferences = len(refs.Anchors) > 0 || len(refs.PoleA) > 0 || len(refs.PoleB) > 0
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		textScores = e.scoreText(axis, memberIDs, docs)
	}()

	if haveReferences {
		wg.Add(2)
		go func() {
			defer wg.Done()
			coalitionOut = coalition.Propagate(graph, refs.Anchors, e.params.Propagation)
		}()
		go func() {
			defer wg.Done()
			voteScores = votescore.Score(memberIDs, votes, refs, e.params.VoteSample)
		}()
	}
	wg.Wait()

	if haveReferences && !coalitionOut.Converged {
		e.logger.Printf("axis %s: propagation hit iteration cap (%d), confidence reduced", axis, coalitionOut.Iterations)
	}

	out := make(map[string]memberSignals, len(memberIDs))
	for _, id := range memberIDs {
		s := memberSignals{text: textScores[id]}
		if haveReferences {
			s.coalition = coalitionOut.Scores[id]
			s.vote = voteScores[id]
		}
		out[id] = s
	}
	return out
}

// scoreText scores each document once, then folds results per member over
// the documents they sponsored or co-sponsored.
func (e *Engine) scoreText(axis string, memberIDs []string, docs []models.Document) map[string]models.SignalScore {
	known := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		known[id] = struct{}{}
	}

	perMember := make(map[string][]textscore.Result, len(memberIDs))
	for _, d := range docs {
		res := textscore.ScoreDocument(d, axis, e.lexicons)
		if _, ok := known[d.Sponsor]; ok {
			perMember[d.Sponsor] = append(perMember[d.Sponsor], res)
		}
		for _, co := range d.CoSponsors {
			if co == d.Sponsor {
				continue
			}
			if _, ok := known[co]; ok {
				perMember[co] = append(perMember[co], res)
			}
		}
	}

	out := make(map[string]models.SignalScore, len(memberIDs))
	for _, id := range memberIDs {
		out[id] = textscore.AggregateMember(perMember[id])
	}
	return out
}

// filter restricts the batch to the window and drops malformed records.
// A bad document or ballot is logged and skipped; it never aborts the run.
func (e *Engine) filter(window models.Window, batch models.Batch) ([]models.Member, []models.Document, []models.Vote) {
	var members []models.Member
	for _, m := range batch.Members {
		if m.ID == "" {
			e.logger.Printf("skipping member with empty id")
			continue
		}
		if !m.ActiveFrom.Before(window.End) {
			continue
		}
		if m.ActiveTo != nil && m.ActiveTo.Before(window.Start) {
			continue
		}
		members = append(members, m)
	}

	var docs []models.Document
	for _, d := range batch.Documents {
		if d.ID == "" || d.Sponsor == "" {
			e.logger.Printf("skipping malformed document %q", d.ID)
			continue
		}
		if !window.Contains(d.Timestamp) {
			continue
		}
		docs = append(docs, d)
	}

	var votes []models.Vote
	for _, v := range batch.Votes {
		if v.ID == "" || !window.Contains(v.Timestamp) {
			continue
		}
		clean := v
		clean.Ballots = make(map[string]models.VoteValue, len(v.Ballots))
		for id, val := range v.Ballots {
			if !val.Valid() {
				e.logger.Printf("vote %s: skipping invalid ballot %q for member %s", v.ID, val, id)
				continue
			}
			clean.Ballots[id] = val
		}
		votes = append(votes, clean)
	}
	return members, docs, votes
}
