// Package api exposes the scraper over HTTP.
package api

import (
	"net/http"

	"lmp-scraper/internal/api/handlers"
	"lmp-scraper/internal/api/middleware"
	"lmp-scraper/internal/config"
	"lmp-scraper/internal/logger"
	"lmp-scraper/internal/metrics"
	"lmp-scraper/internal/scrape"

	"github.com/gin-gonic/gin"
)

// Deps are the services the router wires into its handlers.
type Deps struct {
	Config  *config.Config
	Scraper *scrape.Scraper
	Metrics *metrics.Metrics
	Logger  logger.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(d.Config.API.AllowedOrigins))
	router.Use(middleware.Logger(d.Logger))
	router.Use(middleware.ErrorHandler(d.Logger))

	scrapeHandler := handlers.NewScrapeHandler(d.Config, d.Scraper, d.Logger)
	nodeHandler := handlers.NewNodeHandler(d.Config.NodesFile)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/markets", handlers.ListMarkets)
		api.GET("/nodes", nodeHandler.ListNodes)
		api.GET("/plan", scrapeHandler.Plan)
		api.POST("/scrape", scrapeHandler.RunScrape)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
