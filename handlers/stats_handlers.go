// api/handlers/stats_handlers.go
package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"pulsetrack/api/models"
)

// StatsStore answers the two aggregate query shapes over the events
// table.
type StatsStore interface {
	GetPageViews(ctx context.Context, req models.StatsRequest) ([]models.Metric, error)
	GetUniqueVisitors(ctx context.Context, req models.StatsRequest) ([]models.Metric, error)
}

type StatsHandlers struct {
	Store StatsStore
}

func NewStatsHandlers(s StatsStore) *StatsHandlers {
	return &StatsHandlers{
		Store: s,
	}
}

// ViewStats serves POST /stats/. The body selects the metric with
// "what": "pv" for page views, "uv" for unique visitors; anything else
// falls back to page views.
func (h *StatsHandlers) ViewStats(c *gin.Context) {
	var req models.StatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	var metrics []models.Metric
	var err error

	switch req.What {
	case "uv":
		metrics, err = h.Store.GetUniqueVisitors(c.Request.Context(), req)
	default:
		metrics, err = h.Store.GetPageViews(c.Request.Context(), req)
	}

	if err != nil {
		log.Printf("error querying stats for site %s: %v", req.SiteID, err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	if metrics == nil {
		metrics = []models.Metric{}
	}

	c.JSON(http.StatusOK, metrics)
}
