package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/opencivic/alignator/config"
	"github.com/opencivic/alignator/internal/cache"
	"github.com/opencivic/alignator/internal/engine"
	"github.com/opencivic/alignator/internal/helpers"
	"github.com/opencivic/alignator/internal/store"
	"github.com/opencivic/alignator/internal/telemetry"
	"github.com/opencivic/alignator/models"
)

// Runner executes scoring runs: load a window's records, run the engine,
// persist the versioned scores, refresh the cache and search index.
type Runner struct {
	Store  *store.Store
	Engine *engine.Engine
	Cache  *cache.ScoreCache
	Search *SearchIndex
	Tele   *telemetry.Telemetry
	Refs   []models.AxisReferences
	Logger *log.Logger
}

// References converts configured axis references to engine input.
func References(cfgs []config.ReferenceConfig) []models.AxisReferences {
	out := make([]models.AxisReferences, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, models.AxisReferences{
			Axis:    c.Axis,
			Anchors: c.Anchors,
			PoleA:   c.PoleA,
			PoleB:   c.PoleB,
		})
	}
	return out
}

// Execute runs the engine over one window and persists the result. The run
// row is finished with failed status on any storage error; engine scoring
// itself degrades confidence instead of failing.
func (r *Runner) Execute(ctx context.Context, window models.Window) (string, int, error) {
	if !window.Valid() {
		return "", 0, fmt.Errorf("invalid window: end must be after start")
	}
	started := time.Now()
	runID, err := r.Store.CreateRun(ctx, window)
	if err != nil {
		return "", 0, err
	}

	batch, err := r.Store.LoadBatch(ctx, window)
	if err != nil {
		r.finish(ctx, runID, models.RunStatusFailed, err, started, 0)
		return runID, 0, err
	}
	for i := range batch.Documents {
		batch.Documents[i].Text = helpers.CleanDocumentText(batch.Documents[i].Text)
	}

	scores := r.Engine.Run(ctx, window, batch, r.Refs, runID, time.Now().UTC())

	if err := r.Store.SaveScores(ctx, scores); err != nil {
		r.finish(ctx, runID, models.RunStatusFailed, err, started, 0)
		return runID, 0, err
	}
	if r.Cache != nil {
		if err := r.Cache.SetLatest(ctx, scores); err != nil {
			r.Logger.Printf("run %s: cache refresh failed: %v", runID, err)
		}
	}
	if r.Search != nil {
		if err := r.Search.Rebuild(batch.Documents); err != nil {
			r.Logger.Printf("run %s: search index rebuild failed: %v", runID, err)
		}
	}

	r.finish(ctx, runID, models.RunStatusSucceeded, nil, started, len(scores))
	r.Logger.Printf("run %s: scored %d member-axis pairs in %s", runID, len(scores), time.Since(started).Round(time.Millisecond))
	return runID, len(scores), nil
}

func (r *Runner) finish(ctx context.Context, runID, status string, runErr error, started time.Time, scores int) {
	if err := r.Store.FinishRun(ctx, runID, status, runErr); err != nil {
		r.Logger.Printf("run %s: finishing failed: %v", runID, err)
	}
	if r.Tele != nil {
		r.Tele.ObserveRun(status, time.Since(started), scores)
	}
}
