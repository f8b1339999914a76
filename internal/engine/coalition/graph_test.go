package coalition

import (
	"fmt"
	"sync"
	"testing"

	"github.com/opencivic/alignator/models"
)

func TestBuilderDocumentEdges(t *testing.T) {
	t.Parallel()
	b := NewBuilder([]string{"m3", "m1", "m2"}, 1)
	b.AddDocument(models.Document{Sponsor: "m1", CoSponsors: []string{"m2", "m3", "m1"}})
	b.AddDocument(models.Document{Sponsor: "m1", CoSponsors: []string{"m2"}})
	g := b.Graph()

	if got := g.Weight("m1", "m2"); got != 2 {
		t.Fatalf("Weight(m1, m2) = %v, want 2", got)
	}
	if got := g.Weight("m2", "m1"); got != 2 {
		t.Fatalf("weights must be symmetric, Weight(m2, m1) = %v", got)
	}
	if got := g.Weight("m1", "m3"); got != 1 {
		t.Fatalf("Weight(m1, m3) = %v, want 1", got)
	}
	// m1 listed as its own co-sponsor must not create a self-edge.
	if got := g.Weight("m1", "m1"); got != 0 {
		t.Fatalf("self-edge weight = %v, want 0", got)
	}
	if got := g.EdgeCount(); got != 2 {
		t.Fatalf("EdgeCount = %d, want 2", got)
	}
}

func TestBuilderIgnoresUnknownMembers(t *testing.T) {
	t.Parallel()
	b := NewBuilder([]string{"m1", "m2"}, 1)
	b.AddDocument(models.Document{Sponsor: "ghost", CoSponsors: []string{"m1"}})
	b.AddDocument(models.Document{Sponsor: "m1", CoSponsors: []string{"ghost", "m2"}})
	g := b.Graph()
	if got := g.EdgeCount(); got != 1 {
		t.Fatalf("EdgeCount = %d, want 1", got)
	}
	if got := g.Weight("m1", "m2"); got != 1 {
		t.Fatalf("Weight(m1, m2) = %v, want 1", got)
	}
}

func TestBuilderVoteCliques(t *testing.T) {
	t.Parallel()
	b := NewBuilder([]string{"m1", "m2", "m3", "m4"}, 0.5)
	b.AddVote(models.Vote{Ballots: map[string]models.VoteValue{
		"m1": models.VoteYea,
		"m2": models.VoteYea,
		"m3": models.VoteNay,
		"m4": models.VoteAbstain,
	}})
	g := b.Graph()
	if got := g.Weight("m1", "m2"); got != 0.5 {
		t.Fatalf("same-yea edge = %v, want 0.5", got)
	}
	if got := g.Weight("m1", "m3"); got != 0 {
		t.Fatalf("opposite votes must not connect, got %v", got)
	}
	if got := g.Weight("m1", "m4"); got != 0 {
		t.Fatalf("abstain must not connect, got %v", got)
	}
}

func TestBuilderConcurrentAccumulation(t *testing.T) {
	t.Parallel()
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%02d", i)
	}
	b := NewBuilder(ids, 1)

	const workers = 8
	const perWorker = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				b.AddDocument(models.Document{Sponsor: "m00", CoSponsors: []string{"m01"}})
			}
		}()
	}
	wg.Wait()

	g := b.Graph()
	if got := g.Weight("m00", "m01"); got != workers*perWorker {
		t.Fatalf("Weight(m00, m01) = %v, want %d", got, workers*perWorker)
	}
}

func TestGraphSnapshot(t *testing.T) {
	t.Parallel()
	b := NewBuilder([]string{"m1", "m2"}, 1)
	b.AddDocument(models.Document{Sponsor: "m1", CoSponsors: []string{"m2"}})
	g := b.Graph()
	b.AddDocument(models.Document{Sponsor: "m1", CoSponsors: []string{"m2"}})
	if got := g.Weight("m1", "m2"); got != 1 {
		t.Fatalf("snapshot mutated by later accumulation: %v", got)
	}
}
