package coalition

import (
	"github.com/opencivic/alignator/models"
)

// Options bounds the label-propagation fixed point computation.
type Options struct {
	Tolerance     float64 // max per-member change treated as converged
	MaxIterations int
}

// DefaultOptions returns the standard propagation bounds.
func DefaultOptions() Options {
	return Options{Tolerance: 1e-4, MaxIterations: 100}
}

// Outcome carries per-member estimates plus convergence bookkeeping.
type Outcome struct {
	Scores     map[string]models.SignalScore
	Iterations int
	Converged  bool
}

// Propagate spreads anchor positions across the graph by synchronous weighted
// averaging over neighbors. Anchors are clamped and never updated. Members
// with no path to any anchor get {0, 0}. Given the same graph and anchors the
// fixed point is bit-for-bit reproducible: updates are synchronous and the
// arena order is fixed.
func Propagate(g *Graph, anchors map[string]float64, opts Options) Outcome {
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-4
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}

	n := len(g.nodes)
	out := Outcome{Scores: make(map[string]models.SignalScore, n), Converged: true}
	if n == 0 {
		return out
	}

	anchor := make([]bool, n)
	est := make([]float64, n)
	for id, v := range anchors {
		idx, ok := g.nodeIdx[id]
		if !ok {
			continue
		}
		anchor[idx] = true
		est[idx] = clip(v, -1, 1)
	}

	reachable := reachableFromAnchors(g, anchor)

	next := make([]float64, n)
	iterations := 0
	converged := false
	for iter := 0; iter < opts.MaxIterations; iter++ {
		iterations = iter + 1
		maxChange := 0.0
		copy(next, est)
		for i := 0; i < n; i++ {
			if anchor[i] || !reachable[i] || len(g.adj[i]) == 0 {
				continue
			}
			var sum, total float64
			for _, e := range g.adj[i] {
				sum += e.weight * est[e.target]
				total += e.weight
			}
			v := sum / total // total > 0: node has edges
			if d := abs(v - est[i]); d > maxChange {
				maxChange = d
			}
			next[i] = v
		}
		est, next = next, est
		if maxChange < opts.Tolerance {
			converged = true
			break
		}
	}

	// Hitting the iteration cap reduces confidence rather than failing.
	resolvedConf := 1.0
	if !converged {
		resolvedConf = 0.5
	}
	out.Iterations = iterations
	out.Converged = converged
	for i, id := range g.nodes {
		switch {
		case anchor[i]:
			out.Scores[id] = models.SignalScore{Value: est[i], Confidence: 1}
		case reachable[i]:
			out.Scores[id] = models.SignalScore{Value: clip(est[i], -1, 1), Confidence: resolvedConf}
		default:
			out.Scores[id] = models.SignalScore{}
		}
	}
	return out
}

func reachableFromAnchors(g *Graph, anchor []bool) []bool {
	reachable := make([]bool, len(g.nodes))
	queue := make([]int, 0, len(g.nodes))
	for i, isAnchor := range anchor {
		if isAnchor {
			reachable[i] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.adj[cur] {
			if !reachable[e.target] {
				reachable[e.target] = true
				queue = append(queue, e.target)
			}
		}
	}
	return reachable
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

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
