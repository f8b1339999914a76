package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/opencivic/alignator/internal/cache"
	"github.com/opencivic/alignator/models"
)

// Handlers serves the read-only dashboard API plus run triggering.
type Handlers struct {
	Runner *Runner
}

// Register mounts the API routes.
func (h *Handlers) Register(g *echo.Group) {
	g.GET("/members", h.listMembers)
	g.GET("/members/:id/scores", h.memberScores)
	g.GET("/scores", h.latestScores)
	g.GET("/scores/:axis/:member", h.latestScore)
	g.GET("/parties/scores", h.partyScores)
	g.GET("/documents/search", h.searchDocuments)
	g.POST("/runs", h.triggerRun)
	g.GET("/runs/:id", h.getRun)
}

func (h *Handlers) listMembers(c echo.Context) error {
	members, err := h.Runner.Store.ListMembers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if members == nil {
		members = []models.Member{}
	}
	return c.JSON(http.StatusOK, members)
}

func (h *Handlers) memberScores(c echo.Context) error {
	scores, err := h.Runner.Store.MemberScores(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if scores == nil {
		scores = []models.AlignmentScore{}
	}
	return c.JSON(http.StatusOK, scores)
}

// latestScores returns the most recent score version per (member, axis).
// Members scored with no usable signal still appear, carrying confidence 0;
// the dashboard renders those as "insufficient data".
func (h *Handlers) latestScores(c echo.Context) error {
	scores, err := h.Runner.Store.LatestScores(c.Request().Context(), c.QueryParam("axis"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if scores == nil {
		scores = []models.AlignmentScore{}
	}
	return c.JSON(http.StatusOK, scores)
}

func (h *Handlers) latestScore(c echo.Context) error {
	ctx := c.Request().Context()
	axis, member := c.Param("axis"), c.Param("member")
	if h.Runner.Cache != nil {
		sc, err := h.Runner.Cache.GetLatest(ctx, axis, member)
		if err == nil {
			if h.Runner.Tele != nil {
				h.Runner.Tele.CacheHits.WithLabelValues("hit").Inc()
			}
			return c.JSON(http.StatusOK, sc)
		}
		if !errors.Is(err, cache.ErrMiss) {
			h.Runner.Logger.Printf("cache lookup %s/%s: %v", axis, member, err)
		}
		if h.Runner.Tele != nil {
			h.Runner.Tele.CacheHits.WithLabelValues("miss").Inc()
		}
	}
	scores, err := h.Runner.Store.MemberScores(ctx, member)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for _, sc := range scores {
		if sc.Axis == axis {
			return c.JSON(http.StatusOK, sc)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "no score for member on axis")
}

func (h *Handlers) partyScores(c echo.Context) error {
	axis := c.QueryParam("axis")
	if axis == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "axis query parameter required")
	}
	rollup, err := h.Runner.Store.PartyScores(c.Request().Context(), axis)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rollup)
}

func (h *Handlers) searchDocuments(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q query parameter required")
	}
	size, _ := strconv.Atoi(c.QueryParam("size"))
	hits, err := h.Runner.Search.Search(q, size)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hits)
}

// RunRequest names the window one scoring run covers.
type RunRequest struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// RunResponse reports the created run.
type RunResponse struct {
	RunID  string `json:"run_id"`
	Scores int    `json:"scores"`
}

func (h *Handlers) triggerRun(c echo.Context) error {
	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	window := models.Window{Start: req.WindowStart, End: req.WindowEnd}
	if !window.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "window_end must be after window_start")
	}
	runID, n, err := h.Runner.Execute(c.Request().Context(), window)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, RunResponse{RunID: runID, Scores: n})
}

func (h *Handlers) getRun(c echo.Context) error {
	run, err := h.Runner.Store.GetRun(c.Request().Context(), c.Param("id"))
	if errors.Is(err, models.ErrRunNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, run)
}
