package handlers

import (
	"net/http"

	"lmp-scraper/internal/api/models"
	"lmp-scraper/internal/model"

	"github.com/gin-gonic/gin"
)

// ListMarkets handles GET /api/v1/markets
func ListMarkets(c *gin.Context) {
	markets := make([]models.MarketInfo, 0, len(model.Markets()))
	for _, m := range model.Markets() {
		spec, _ := m.Spec()
		markets = append(markets, marketInfo(spec))
	}
	c.JSON(http.StatusOK, gin.H{"markets": markets})
}

func marketInfo(spec model.MarketSpec) models.MarketInfo {
	return models.MarketInfo{
		ID:              spec.Market.String(),
		ChunkDays:       spec.ChunkDays,
		ResultFrequency: spec.ResultFrequency.String(),
		QueryName:       spec.QueryName,
		MarketRunID:     spec.MarketRunID,
		PriceColumn:     spec.PriceColumn,
		MaxSpanDays:     spec.MaxSpanDays,
	}
}
