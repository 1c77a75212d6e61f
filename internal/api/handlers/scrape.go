package handlers

import (
	"errors"
	"net/http"
	"sync"

	"lmp-scraper/internal/analysis"
	"lmp-scraper/internal/api/models"
	"lmp-scraper/internal/config"
	"lmp-scraper/internal/logger"
	"lmp-scraper/internal/model"
	"lmp-scraper/internal/scrape"

	"github.com/gin-gonic/gin"
)

// ScrapeHandler runs range scrapes, one at a time
type ScrapeHandler struct {
	cfg     *config.Config
	scraper *scrape.Scraper
	logger  logger.Logger
	mu      sync.Mutex
}

// NewScrapeHandler creates a new scrape handler
func NewScrapeHandler(cfg *config.Config, s *scrape.Scraper, log logger.Logger) *ScrapeHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ScrapeHandler{cfg: cfg, scraper: s, logger: log}
}

// RunScrape handles POST /api/v1/scrape
func (h *ScrapeHandler) RunScrape(c *gin.Context) {
	var req models.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	if !h.mu.TryLock() {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "SCRAPE_IN_PROGRESS",
				Message: "Another scrape is running; try again when it finishes",
			},
		})
		return
	}
	defer h.mu.Unlock()

	opts, err := h.options(config.ScrapeConfig{
		Node:        req.Node,
		Market:      req.Market,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		TZIn:        req.TZIn,
		TZQuery:     req.TZQuery,
		MaxAttempts: req.MaxAttempts,
	})
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_OPTIONS", err)
		return
	}

	res, err := h.scraper.Run(c.Request.Context(), opts)
	switch {
	case errors.Is(err, scrape.ErrInvalidOptions):
		abortWithError(c, http.StatusBadRequest, "INVALID_OPTIONS", err)
		return
	case err != nil && res == nil:
		abortWithError(c, http.StatusInternalServerError, "SCRAPE_ERROR", err)
		return
	case err != nil:
		h.logger.Warn("Scrape interrupted", logger.String("run_id", res.RunID), logger.Error(err))
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "SCRAPE_INTERRUPTED",
				Message: err.Error(),
				Details: map[string]any{"run_id": res.RunID, "written": res.Written, "points": len(res.Series)},
			},
		})
		return
	}

	c.JSON(http.StatusOK, buildScrapeResponse(opts, res, req.IncludeSeries))
}

// Plan handles GET /api/v1/plan
func (h *ScrapeHandler) Plan(c *gin.Context) {
	var req models.PlanRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	opts, err := h.options(config.ScrapeConfig{
		Node:      req.Node,
		Market:    req.Market,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		TZIn:      req.TZIn,
		TZQuery:   req.TZQuery,
	})
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_OPTIONS", err)
		return
	}
	plan, err := h.scraper.Plan(opts)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_OPTIONS", err)
		return
	}

	spec, _ := opts.Market.Spec()
	resp := models.PlanResponse{Market: marketInfo(spec), Windows: make([]models.PlannedWindow, 0, len(plan))}
	for _, p := range plan {
		resp.Windows = append(resp.Windows, models.PlannedWindow{
			Start:      p.Window.Start.String(),
			End:        p.Window.End.String(),
			URL:        p.Request.URL(h.cfg.OASIS.BaseURL),
			Advisories: p.Request.Advisories,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// options overlays request fields on the configured scrape defaults and
// caps the attempt budget.
func (h *ScrapeHandler) options(override config.ScrapeConfig) (scrape.Options, error) {
	sc := config.MergeScrape(h.cfg.Scrape, override)
	if h.cfg.API.MaxAttempts > 0 && sc.MaxAttempts > h.cfg.API.MaxAttempts {
		sc.MaxAttempts = h.cfg.API.MaxAttempts
	}
	return scrape.OptionsFromConfig(sc)
}

func buildScrapeResponse(opts scrape.Options, res *scrape.Result, includeSeries bool) models.ScrapeResponse {
	resp := models.ScrapeResponse{
		RunID:   res.RunID,
		Status:  "complete",
		Node:    opts.Node,
		Market:  opts.Market.String(),
		Written: res.Written,
		Points:  len(res.Series),
		Windows: make([]models.WindowResult, 0, len(res.Records)),
	}
	if res.Written {
		resp.Path = res.Path
	}
	if len(res.Series) > 0 {
		stats := analysis.Summarize(res.Series)
		resp.Stats = &stats
	}
	switch {
	case len(res.Series) == 0:
		resp.Status = "empty"
	case res.Count(model.WindowSucceeded) < len(res.Records):
		resp.Status = "partial"
	}
	for _, rec := range res.Records {
		resp.Windows = append(resp.Windows, models.WindowResult{
			Start:     rec.Window.Start.String(),
			End:       rec.Window.End.String(),
			State:     string(rec.State),
			Attempts:  rec.Attempts,
			Points:    rec.Points,
			LastError: rec.LastErr,
		})
	}
	if includeSeries {
		resp.Series = make([]models.PricePoint, len(res.Series))
		for i, p := range res.Series {
			resp.Series[i] = models.PricePoint{Time: p.Time, Price: p.Price}
		}
	}
	return resp
}

func abortWithError(c *gin.Context, status int, code string, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}
