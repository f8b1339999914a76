// Package coalition builds a weighted co-sponsorship/co-voting graph over
// members and derives relative-position estimates from it.
package coalition

import (
	"sort"
	"sync"

	"github.com/opencivic/alignator/models"
)

type edgeEntry struct {
	target int
	weight float64
}

// Graph is an undirected weighted member graph with an integer-indexed node
// arena. Node order is fixed (sorted by member id) so traversal is
// deterministic across runs.
type Graph struct {
	nodes   []string
	nodeIdx map[string]int
	adj     [][]edgeEntry
}

// Nodes returns member ids in arena order.
func (g *Graph) Nodes() []string { return g.nodes }

// Weight returns the accumulated edge weight between two members; 0 when no
// edge exists. Symmetric by construction.
func (g *Graph) Weight(a, b string) float64 {
	ai, ok := g.nodeIdx[a]
	if !ok {
		return 0
	}
	bi, ok := g.nodeIdx[b]
	if !ok {
		return 0
	}
	for _, e := range g.adj[ai] {
		if e.target == bi {
			return e.weight
		}
	}
	return 0
}

// EdgeCount returns the number of unordered pairs with weight > 0.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, edges := range g.adj {
		total += len(edges)
	}
	return total / 2
}

// Builder accumulates edge weights from documents and votes. Accumulation
// into the same unordered pair is serialized by a mutex; lost updates are a
// correctness bug here, not a performance tradeoff.
type Builder struct {
	mu         sync.Mutex
	nodeIdx    map[string]int
	nodes      []string
	weights    map[[2]int]float64
	voteWeight float64
}

// NewBuilder creates a builder over a fixed member set. Records referencing
// members outside the set are ignored. voteWeight <= 0 falls back to 1.
func NewBuilder(memberIDs []string, voteWeight float64) *Builder {
	if voteWeight <= 0 {
		voteWeight = 1
	}
	ids := append([]string(nil), memberIDs...)
	sort.Strings(ids)
	b := &Builder{
		nodeIdx:    make(map[string]int, len(ids)),
		weights:    make(map[[2]int]float64),
		voteWeight: voteWeight,
	}
	for _, id := range ids {
		if _, dup := b.nodeIdx[id]; dup {
			continue
		}
		b.nodeIdx[id] = len(b.nodes)
		b.nodes = append(b.nodes, id)
	}
	return b
}

// AddDocument adds weight 1 to each (primary sponsor, co-sponsor) edge.
// Self-edges are never created.
func (b *Builder) AddDocument(doc models.Document) {
	pi, ok := b.nodeIdx[doc.Sponsor]
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, co := range doc.CoSponsors {
		ci, ok := b.nodeIdx[co]
		if !ok || ci == pi {
			continue
		}
		b.weights[pairKey(pi, ci)]++
	}
}

// AddVote adds the configured vote weight to every pair of members who cast
// the same yea/nay value. Abstain and absent ballots contribute nothing.
func (b *Builder) AddVote(vote models.Vote) {
	var yeas, nays []int
	for id, v := range vote.Ballots {
		idx, ok := b.nodeIdx[id]
		if !ok {
			continue
		}
		switch v {
		case models.VoteYea:
			yeas = append(yeas, idx)
		case models.VoteNay:
			nays = append(nays, idx)
		}
	}
	sort.Ints(yeas)
	sort.Ints(nays)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addClique(yeas)
	b.addClique(nays)
}

func (b *Builder) addClique(idxs []int) {
	for i := 0; i < len(idxs); i++ {
		for j := i + 1; j < len(idxs); j++ {
			b.weights[pairKey(idxs[i], idxs[j])] += b.voteWeight
		}
	}
}

// Graph finalizes accumulation into an adjacency structure with neighbors
// sorted by arena index. The builder may keep accumulating afterwards; the
// returned graph is a snapshot.
func (b *Builder) Graph() *Graph {
	b.mu.Lock()
	defer b.mu.Unlock()
	g := &Graph{
		nodes:   append([]string(nil), b.nodes...),
		nodeIdx: make(map[string]int, len(b.nodes)),
		adj:     make([][]edgeEntry, len(b.nodes)),
	}
	for id, idx := range b.nodeIdx {
		g.nodeIdx[id] = idx
	}
	for key, w := range b.weights {
		if w <= 0 {
			continue
		}
		g.adj[key[0]] = append(g.adj[key[0]], edgeEntry{target: key[1], weight: w})
		g.adj[key[1]] = append(g.adj[key[1]], edgeEntry{target: key[0], weight: w})
	}
	for i := range g.adj {
		edges := g.adj[i]
		sort.Slice(edges, func(a, b int) bool { return edges[a].target < edges[b].target })
	}
	return g
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
