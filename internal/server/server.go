// Package server wires the HTTP API, scheduler, and scoring runner together.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opencivic/alignator/config"
	"github.com/opencivic/alignator/internal/cache"
	"github.com/opencivic/alignator/internal/engine"
	"github.com/opencivic/alignator/internal/engine/lexicon"
	"github.com/opencivic/alignator/internal/store"
	"github.com/opencivic/alignator/internal/telemetry"
)

// EngineParams converts engine configuration to engine inputs.
func EngineParams(cfg config.EngineConfig) engine.Params {
	p := engine.DefaultParams()
	p.Weights.Text = cfg.Weights.Text
	p.Weights.Coalition = cfg.Weights.Coalition
	p.Weights.Vote = cfg.Weights.Vote
	p.Thresholds.Left = cfg.Labels.Left
	p.Thresholds.Right = cfg.Labels.Right
	p.VoteWeight = cfg.VoteEdgeWeight
	p.Propagation.Tolerance = cfg.Propagation.Tolerance
	p.Propagation.MaxIterations = cfg.Propagation.MaxIterations
	p.VoteSample.MinSample = cfg.VoteSample.MinSample
	p.VoteSample.SampleSaturation = cfg.VoteSample.SampleSaturation
	return p
}

// Run starts the HTTP API and, when enabled, the scheduler. Blocks until the
// listener stops.
func Run(cfg *config.Config) error {
	logger := telemetry.Logger("[HTTP] ")
	tele := telemetry.New()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(tele.Registry, promhttp.HandlerOpts{})))

	lexicons, err := lexicon.LoadFile(cfg.Lexicons.Path)
	if err != nil {
		return fmt.Errorf("loading lexicons: %w", err)
	}
	eng, err := engine.New(EngineParams(cfg.Engine), lexicons, telemetry.Logger("[ENGINE] "))
	if err != nil {
		return err
	}

	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return err
	}
	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}
	defer st.Close()
	if err := store.Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	// Redis is a cache, not a dependency: scoring still works without it.
	var scoreCache *cache.ScoreCache
	rdb, err := cache.Conn(ctx, cfg.Storage.Redis.Addr(), cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.Redis.Timeout)
	if err != nil {
		logger.Printf("redis unavailable, running without score cache: %v", err)
	} else {
		scoreCache = cache.NewScoreCache(rdb, 0)
		defer rdb.Close()
	}

	search, err := NewSearchIndex()
	if err != nil {
		return err
	}

	runner := &Runner{
		Store:  st,
		Engine: eng,
		Cache:  scoreCache,
		Search: search,
		Tele:   tele,
		Refs:   References(cfg.References),
		Logger: telemetry.Logger("[RUNNER] "),
	}

	handlers := &Handlers{Runner: runner}
	handlers.Register(e.Group("/api"))

	if cfg.Scheduler.Enabled {
		sched := &Scheduler{
			Runner: runner,
			Rdb:    rdb,
			Cfg:    cfg.Scheduler,
			Logger: telemetry.Logger("[SCHED] "),
			Stop:   make(chan struct{}),
		}
		sched.Start()
		defer close(sched.Stop)
	}

	return e.Start(cfg.Server.Address)
}
